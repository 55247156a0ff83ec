// Package output turns finalized aggregates into the persisted record set
// and writes it as JSON tables.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pable/go-cs-demostats/internal/aggregator"
	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/model"
)

// matchNamespace scopes the name-based match ids.
var matchNamespace = uuid.MustParse("6f1c2b7e-3d4a-5e8f-9a0b-1c2d3e4f5a6b")

var ErrNoDemoHash = errors.New("output: demo hash is required")

// MatchInput is everything known about one finished demo.
type MatchInput struct {
	DemoHash     string // hex SHA-256 of the decompressed demo
	Engine       string
	Header       demo.Header
	FileInfo     *demo.FileInfo
	TickRate     float64
	MapName      string
	RoundsPlayed int
	CTScore      int
	TScore       int
	ValveMatchID uint64
	Results      aggregator.Results
}

// MatchID derives the match id from the demo content hash, so the same
// demo always gets the same id.
func MatchID(demoHash string) string {
	return uuid.NewSHA1(matchNamespace, []byte(demoHash)).String()
}

// Build stamps the match id on every record and puts every table in a
// stable order.
func Build(in MatchInput) (model.RecordSet, error) {
	if in.DemoHash == "" {
		return model.RecordSet{}, ErrNoDemoHash
	}
	id := MatchID(in.DemoHash)
	res := in.Results

	mapName := in.MapName
	if mapName == "" {
		mapName = in.Header.MapName
	}
	match := model.MatchRecord{
		MatchID:         id,
		DemoHash:        in.DemoHash,
		MapName:         mapName,
		ServerName:      in.Header.ServerName,
		BuildNum:        in.Header.BuildNum,
		NetworkProtocol: in.Header.NetworkProtocol,
		TickRate:        round2(in.TickRate),
		RoundsPlayed:    in.RoundsPlayed,
		CTScore:         in.CTScore,
		TScore:          in.TScore,
		Winner:          winner(in.CTScore, in.TScore),
		ValveMatchID:    in.ValveMatchID,
		Engine:          in.Engine,
	}
	if in.FileInfo != nil {
		match.PlaybackTicks = in.FileInfo.PlaybackTicks
		match.PlaybackSeconds = round2(float64(in.FileInfo.PlaybackTime))
	}

	rs := model.RecordSet{
		Match:       match,
		Rounds:      nonNil(res.Rounds),
		Kills:       nonNil(res.Kills),
		Weapons:     nonNil(res.Weapons),
		Flashes:     nonNil(res.Flashes),
		Damage:      nonNil(res.Damage),
		Players:     nonNil(res.Players),
		Clutches:    nonNil(res.Clutches),
		MultiKills:  nonNil(res.MultiKills),
		FirstBloods: nonNil(res.FirstBloods),
		Chat:        nonNil(res.Chat),
		Voice:       nonNil(res.Voice),
	}

	for i := range rs.Rounds {
		rs.Rounds[i].MatchID = id
	}
	sort.SliceStable(rs.Rounds, func(i, j int) bool { return rs.Rounds[i].RoundNumber < rs.Rounds[j].RoundNumber })

	for i := range rs.Kills {
		rs.Kills[i].MatchID = id
	}
	sort.SliceStable(rs.Kills, func(i, j int) bool {
		a, b := rs.Kills[i], rs.Kills[j]
		if a.RoundNumber != b.RoundNumber {
			return a.RoundNumber < b.RoundNumber
		}
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		return a.Seq < b.Seq
	})

	for i := range rs.Weapons {
		rs.Weapons[i].MatchID = id
	}
	sort.SliceStable(rs.Weapons, func(i, j int) bool {
		a, b := rs.Weapons[i], rs.Weapons[j]
		if a.SteamID != b.SteamID {
			return a.SteamID < b.SteamID
		}
		return a.Weapon < b.Weapon
	})

	for i := range rs.Flashes {
		f := &rs.Flashes[i]
		f.MatchID = id
		f.EnemyBlindDuration = round2(f.EnemyBlindDuration)
		f.TeamBlindDuration = round2(f.TeamBlindDuration)
		f.SelfBlindDuration = round2(f.SelfBlindDuration)
	}
	sort.SliceStable(rs.Flashes, func(i, j int) bool { return rs.Flashes[i].SteamID < rs.Flashes[j].SteamID })

	for i := range rs.Damage {
		rs.Damage[i].MatchID = id
	}
	sort.SliceStable(rs.Damage, func(i, j int) bool { return rs.Damage[i].SteamID < rs.Damage[j].SteamID })

	for i := range rs.Players {
		rs.Players[i].MatchID = id
	}
	sort.SliceStable(rs.Players, func(i, j int) bool { return rs.Players[i].SteamID < rs.Players[j].SteamID })

	for i := range rs.Clutches {
		rs.Clutches[i].MatchID = id
	}
	sort.SliceStable(rs.Clutches, func(i, j int) bool { return rs.Clutches[i].RoundNumber < rs.Clutches[j].RoundNumber })

	for i := range rs.MultiKills {
		rs.MultiKills[i].MatchID = id
	}
	sort.SliceStable(rs.MultiKills, func(i, j int) bool { return rs.MultiKills[i].SteamID < rs.MultiKills[j].SteamID })

	for i := range rs.FirstBloods {
		rs.FirstBloods[i].MatchID = id
	}
	sort.SliceStable(rs.FirstBloods, func(i, j int) bool { return rs.FirstBloods[i].RoundNumber < rs.FirstBloods[j].RoundNumber })

	for i := range rs.Chat {
		rs.Chat[i].MatchID = id
	}
	sort.SliceStable(rs.Chat, func(i, j int) bool {
		a, b := rs.Chat[i], rs.Chat[j]
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		return a.Seq < b.Seq
	})

	for i := range rs.Voice {
		rs.Voice[i].MatchID = id
	}
	sort.SliceStable(rs.Voice, func(i, j int) bool { return rs.Voice[i].SteamID < rs.Voice[j].SteamID })

	return rs, nil
}

func winner(ct, t int) model.Team {
	switch {
	case ct > t:
		return model.TeamCT
	case t > ct:
		return model.TeamT
	default:
		return model.TeamUnknown
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// nonNil copies s. Empty tables encode as [].
func nonNil[T any](s []T) []T {
	return append(make([]T, 0, len(s)), s...)
}

// Encode writes rs as indented JSON. The output depends only on rs.
func Encode(w io.Writer, rs model.RecordSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rs)
}

// Run is the per-run record kept apart from match data.
type Run struct {
	MatchID     string    `json:"match_id"`
	DemoHash    string    `json:"demo_hash"`
	Engine      string    `json:"engine"`
	ProcessedAt time.Time `json:"processed_at"`
}

type table struct {
	name string
	rows any
}

func tables(rs model.RecordSet) []table {
	return []table{
		{"match", rs.Match},
		{"rounds", rs.Rounds},
		{"kills", rs.Kills},
		{"weapon_stats", rs.Weapons},
		{"flash_stats", rs.Flashes},
		{"damage_stats", rs.Damage},
		{"player_matches", rs.Players},
		{"clutch_stats", rs.Clutches},
		{"multikill_stats", rs.MultiKills},
		{"first_blood_stats", rs.FirstBloods},
		{"chat_messages", rs.Chat},
		{"voice", rs.Voice},
	}
}

// WriteDir writes one JSON file per table to <dir>/<match_id>/ plus
// run.json. Files are staged in a temporary directory and renamed into
// place, replacing any earlier output for the match.
func WriteDir(dir string, rs model.RecordSet, processedAt time.Time) (string, error) {
	id := rs.Match.MatchID
	if id == "" {
		return "", errors.New("output: record set has no match id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	tmp, err := os.MkdirTemp(dir, "."+id+"-*")
	if err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	defer os.RemoveAll(tmp)

	for _, t := range tables(rs) {
		if err := writeJSON(filepath.Join(tmp, t.name+".json"), t.rows); err != nil {
			return "", err
		}
	}
	run := Run{MatchID: id, DemoHash: rs.Match.DemoHash, Engine: rs.Match.Engine, ProcessedAt: processedAt.UTC()}
	if err := writeJSON(filepath.Join(tmp, "run.json"), run); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		return "", fmt.Errorf("output: %w", err)
	}

	final := filepath.Join(dir, id)
	if err := os.RemoveAll(final); err != nil {
		return "", fmt.Errorf("output: replace %s: %w", final, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	return final, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("output: encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
