package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-cs-demostats/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// PrintMatchHeader prints a one-line summary header for the match.
func PrintMatchHeader(w io.Writer, m model.MatchRecord) {
	length := "?"
	if m.PlaybackSeconds > 0 {
		length = fmt.Sprintf("%dm%02ds", int(m.PlaybackSeconds)/60, int(m.PlaybackSeconds)%60)
	}
	fmt.Fprintf(w, "\nMap: %s  |  Score: CT %d - T %d  |  Rounds: %d  |  Length: %s  |  Engine: %s  |  Match: %s\n\n",
		m.MapName, m.CTScore, m.TScore, m.RoundsPlayed, length, m.Engine, shortID(m.MatchID))
}

// PrintSummaryHeader is PrintMatchHeader for a stored match.
func PrintSummaryHeader(w io.Writer, s model.MatchSummary) {
	fmt.Fprintf(w, "\nMap: %s  |  Score: CT %d - T %d  |  Rounds: %d  |  Engine: %s  |  Match: %s\n\n",
		s.MapName, s.CTScore, s.TScore, s.RoundsPlayed, s.Engine, shortID(s.MatchID))
}

// PrintMatchList renders stored matches, newest first.
func PrintMatchList(w io.Writer, matches []model.MatchSummary) {
	table := newTable(w)
	table.Header("MATCH", "MAP", "SCORE", "ROUNDS", "TICK", "ENGINE", "PROCESSED")
	for _, m := range matches {
		table.Append(
			shortID(m.MatchID),
			m.MapName,
			fmt.Sprintf("%d-%d", m.CTScore, m.TScore),
			strconv.Itoa(m.RoundsPlayed),
			fmt.Sprintf("%.0f", m.TickRate),
			m.Engine,
			m.ProcessedAt,
		)
	}
	table.Render()
}

// PrintPlayerTable prints the player lines. If focusSteamID is non-zero,
// that player's row is marked with ">".
func PrintPlayerTable(w io.Writer, players []model.PlayerMatchRecord, focusSteamID uint64) {
	table := newTable(w)
	table.Header(" ", "NAME", "TEAM", "K", "A", "D", "K/D", "HS%", "ADR", "MVP", "FA", "TRADE_K", "TRADE_D")

	for _, s := range players {
		marker := " "
		if focusSteamID != 0 && s.SteamID == focusSteamID {
			marker = ">"
		}
		name := s.Name
		if s.Bot {
			name += " (bot)"
		}
		table.Append(
			marker,
			name,
			s.Team.String(),
			strconv.Itoa(s.Kills),
			strconv.Itoa(s.Assists),
			strconv.Itoa(s.Deaths),
			fmt.Sprintf("%.2f", s.KDRatio()),
			fmt.Sprintf("%.0f%%", s.HSPercent()),
			fmt.Sprintf("%.1f", s.ADR),
			strconv.Itoa(s.MVPs),
			strconv.Itoa(s.FlashAssists),
			strconv.Itoa(s.TradeKills),
			strconv.Itoa(s.TradedDeaths),
		)
	}
	table.Render()
}

// PrintRoundTable prints one row per round with the running score.
func PrintRoundTable(w io.Writer, rounds []model.RoundRecord) {
	table := newTable(w)
	table.Header("RND", "WINNER", "REASON", "SCORE", "PLANT", "DEFUSE", "TICKS")
	for _, r := range rounds {
		table.Append(
			strconv.Itoa(r.RoundNumber),
			r.WinnerSide.String(),
			r.EndReason.String(),
			fmt.Sprintf("%d-%d", r.CTScoreAfter, r.TScoreAfter),
			yesNo(r.BombPlanted),
			yesNo(r.BombDefused),
			fmt.Sprintf("%d-%d", r.StartTick, r.EndTick),
		)
	}
	table.Render()
}

// PrintKillFeed prints the kills of one round, or of all rounds when
// round is zero.
func PrintKillFeed(w io.Writer, kills []model.KillRecord, round int) {
	table := newTable(w)
	table.Header("RND", "TICK", "ATTACKER", "", "VICTIM", "WEAPON", "FLAGS")
	for _, k := range kills {
		if round != 0 && k.RoundNumber != round {
			continue
		}
		attacker := "world"
		if k.Attacker != nil {
			attacker = k.Attacker.Name
		}
		if k.Assister != nil {
			attacker += " + " + k.Assister.Name
		}
		table.Append(
			strconv.Itoa(k.RoundNumber),
			strconv.Itoa(k.Tick),
			attacker,
			">",
			k.Victim.Name,
			k.Weapon,
			killFlags(k),
		)
	}
	table.Render()
}

func killFlags(k model.KillRecord) string {
	var flags string
	add := func(on bool, s string) {
		if !on {
			return
		}
		if flags != "" {
			flags += ","
		}
		flags += s
	}
	add(k.Headshot, "hs")
	add(k.Wallbang, "wb")
	add(k.ThroughSmoke, "smoke")
	add(k.NoScope, "noscope")
	add(k.AttackerBlind, "blind")
	add(k.FlashAssist, "fa")
	return flags
}

// PrintFlashTable prints who blinded whom and for how long.
func PrintFlashTable(w io.Writer, flashes []model.FlashStatRecord) {
	table := newTable(w)
	table.Header("NAME", "THROWN", "ENEMIES", "ENEMY_S", "TEAM", "TEAM_S", "SELF", "SELF_S")
	for _, f := range flashes {
		table.Append(
			f.Name,
			strconv.Itoa(f.FlashesThrown),
			strconv.Itoa(f.EnemiesFlashed),
			fmt.Sprintf("%.2f", f.EnemyBlindDuration),
			strconv.Itoa(f.TeammatesFlashed),
			fmt.Sprintf("%.2f", f.TeamBlindDuration),
			strconv.Itoa(f.SelfFlashes),
			fmt.Sprintf("%.2f", f.SelfBlindDuration),
		)
	}
	table.Render()
}

// PrintWeaponTable prints per-weapon lines. If focusSteamID is non-zero only
// that player's weapons are shown.
func PrintWeaponTable(w io.Writer, weapons []model.WeaponStatRecord, focusSteamID uint64) {
	table := newTable(w)
	table.Header("NAME", "WEAPON", "K", "HS", "DMG", "SHOTS", "HITS", "ACC%")
	for i := range weapons {
		ws := &weapons[i]
		if focusSteamID != 0 && ws.SteamID != focusSteamID {
			continue
		}
		table.Append(
			ws.Name,
			ws.Weapon,
			strconv.Itoa(ws.Kills),
			strconv.Itoa(ws.Headshots),
			strconv.Itoa(ws.Damage),
			strconv.Itoa(ws.Shots),
			strconv.Itoa(ws.Hits),
			fmt.Sprintf("%.1f", ws.Accuracy()),
		)
	}
	table.Render()
}

// PrintDamageTable splits each player's damage by victim relation.
func PrintDamageTable(w io.Writer, damage []model.DamageStatRecord) {
	table := newTable(w)
	table.Header("NAME", "ENEMY", "TEAM", "SELF", "UTIL", "TOTAL", "TAKEN", "TEAM_HITS")
	for _, d := range damage {
		table.Append(
			d.Name,
			strconv.Itoa(d.EnemyDamage),
			strconv.Itoa(d.TeamDamage),
			strconv.Itoa(d.SelfDamage),
			strconv.Itoa(d.UtilityDamage),
			strconv.Itoa(d.TotalDamage),
			strconv.Itoa(d.DamageTaken),
			strconv.Itoa(d.TeamDamageIncidents),
		)
	}
	table.Render()
}

// PrintHighlights prints clutches, multi-kills and first bloods.
func PrintHighlights(w io.Writer, rs model.RecordSet) {
	if len(rs.Clutches) > 0 {
		table := newTable(w)
		table.Header("RND", "CLUTCH", "TEAM", "VS", "K", "WON")
		for _, c := range rs.Clutches {
			table.Append(strconv.Itoa(c.RoundNumber), c.Name, c.Team.String(),
				strconv.Itoa(c.Opponents), strconv.Itoa(c.Kills), yesNo(c.Won))
		}
		table.Render()
	}

	if len(rs.MultiKills) > 0 {
		table := newTable(w)
		table.Header("NAME", "2K", "3K", "4K", "ACE")
		for _, m := range rs.MultiKills {
			table.Append(m.Name, strconv.Itoa(m.TwoK), strconv.Itoa(m.ThreeK),
				strconv.Itoa(m.FourK), strconv.Itoa(m.Aces))
		}
		table.Render()
	}

	if len(rs.FirstBloods) > 0 {
		table := newTable(w)
		table.Header("RND", "OPENER", "", "VICTIM", "WEAPON")
		for _, f := range rs.FirstBloods {
			table.Append(strconv.Itoa(f.RoundNumber), f.Killer.Name, ">", f.Victim.Name, f.Weapon)
		}
		table.Render()
	}
}

// PrintChat prints the chat log in order.
func PrintChat(w io.Writer, chat []model.ChatRecord) {
	for _, c := range chat {
		scope := c.Team.String()
		if c.AllChat {
			scope = "ALL"
		}
		fmt.Fprintf(w, "[R%02d %7d] (%s) %s: %s\n", c.RoundNumber, c.Tick, scope, c.Name, c.Message)
	}
}

// PrintVoice prints voice activity per speaker.
func PrintVoice(w io.Writer, voice []model.VoiceStatRecord) {
	table := newTable(w)
	table.Header("NAME", "PACKETS", "SIZE", "FIRST", "LAST")
	for _, v := range voice {
		table.Append(v.Name, humanize.Comma(int64(v.Packets)), humanize.Bytes(uint64(v.Bytes)),
			strconv.Itoa(v.FirstTick), strconv.Itoa(v.LastTick))
	}
	table.Render()
}

// PrintRecordSet renders a freshly processed match.
func PrintRecordSet(w io.Writer, rs model.RecordSet, focusSteamID uint64) {
	PrintMatchHeader(w, rs.Match)
	PrintPlayerTable(w, rs.Players, focusSteamID)
	PrintRoundTable(w, rs.Rounds)
	PrintFlashTable(w, rs.Flashes)
	PrintDamageTable(w, rs.Damage)
	PrintWeaponTable(w, rs.Weapons, focusSteamID)
	PrintHighlights(w, rs)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
