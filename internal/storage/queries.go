package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pable/go-cs-demostats/internal/model"
)

// MatchExists returns true if a match with the given id is already stored.
func (db *DB) MatchExists(matchID string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM matches WHERE match_id = ?", matchID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveRecordSet replaces everything stored for rs.Match.MatchID in a single
// transaction. A failure leaves the previous rows untouched.
func (db *DB) SaveRecordSet(rs model.RecordSet, processedAt time.Time) error {
	id := rs.Match.MatchID
	if id == "" {
		return errors.New("save record set: empty match id")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteMatch(tx, id); err != nil {
		return err
	}

	m := rs.Match
	valveID := ""
	if m.ValveMatchID != 0 {
		valveID = strconv.FormatUint(m.ValveMatchID, 10)
	}
	_, err = tx.Exec(`
		INSERT INTO matches(
			match_id, demo_hash, map_name, server_name, build_num, network_protocol,
			tick_rate, playback_ticks, playback_seconds, rounds_played,
			ct_score, t_score, winner, valve_match_id, engine, processed_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, m.DemoHash, m.MapName, m.ServerName, m.BuildNum, m.NetworkProtocol,
		m.TickRate, m.PlaybackTicks, m.PlaybackSeconds, m.RoundsPlayed,
		m.CTScore, m.TScore, teamText(m.Winner), valveID, m.Engine,
		processedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	err = insertRows(tx, "rounds", `
		INSERT INTO rounds(
			match_id, round_number, winner_side, end_reason, reason_code,
			ct_score_after, t_score_after, bomb_planted, bomb_defused, start_tick, end_tick
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		len(rs.Rounds), func(i int) []any {
			r := rs.Rounds[i]
			return []any{
				id, r.RoundNumber, teamText(r.WinnerSide), r.EndReason.String(), r.ReasonCode,
				r.CTScoreAfter, r.TScoreAfter, boolInt(r.BombPlanted), boolInt(r.BombDefused),
				r.StartTick, r.EndTick,
			}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "kills", `
		INSERT INTO kills(
			match_id, round_number, tick, seq,
			attacker_steam_id, attacker_name, attacker_team,
			victim_steam_id, victim_name, victim_team,
			assister_steam_id, assister_name, assister_team,
			weapon, hit_group, headshot, wallbang, penetrated,
			through_smoke, no_scope, attacker_blind, flash_assist
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		len(rs.Kills), func(i int) []any {
			k := rs.Kills[i]
			aID, aName, aTeam := participantCols(k.Attacker)
			sID, sName, sTeam := participantCols(k.Assister)
			return []any{
				id, k.RoundNumber, k.Tick, k.Seq,
				aID, aName, aTeam,
				formatID(k.Victim.SteamID), k.Victim.Name, teamText(k.Victim.Team),
				sID, sName, sTeam,
				k.Weapon, k.HitGroup.String(), boolInt(k.Headshot), boolInt(k.Wallbang), k.Penetrated,
				boolInt(k.ThroughSmoke), boolInt(k.NoScope), boolInt(k.AttackerBlind), boolInt(k.FlashAssist),
			}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "weapon_stats", `
		INSERT INTO weapon_stats(match_id, steam_id, name, weapon, kills, headshots, damage, shots, hits)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		len(rs.Weapons), func(i int) []any {
			w := rs.Weapons[i]
			return []any{id, formatID(w.SteamID), w.Name, w.Weapon, w.Kills, w.Headshots, w.Damage, w.Shots, w.Hits}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "flash_stats", `
		INSERT INTO flash_stats(
			match_id, steam_id, name, enemies_flashed, enemy_blind_duration,
			teammates_flashed, team_blind_duration, self_flashes, self_blind_duration, flashes_thrown
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		len(rs.Flashes), func(i int) []any {
			f := rs.Flashes[i]
			return []any{
				id, formatID(f.SteamID), f.Name, f.EnemiesFlashed, f.EnemyBlindDuration,
				f.TeammatesFlashed, f.TeamBlindDuration, f.SelfFlashes, f.SelfBlindDuration, f.FlashesThrown,
			}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "damage_stats", `
		INSERT INTO damage_stats(
			match_id, steam_id, name, enemy_damage, team_damage, self_damage,
			total_damage, utility_damage, team_damage_incidents, damage_taken
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		len(rs.Damage), func(i int) []any {
			d := rs.Damage[i]
			return []any{
				id, formatID(d.SteamID), d.Name, d.EnemyDamage, d.TeamDamage, d.SelfDamage,
				d.TotalDamage, d.UtilityDamage, d.TeamDamageIncidents, d.DamageTaken,
			}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "player_matches", `
		INSERT INTO player_matches(
			match_id, steam_id, name, team, bot, kills, deaths, assists, headshots,
			flash_assists, damage, trade_kills, traded_deaths, rounds_played,
			mvps, score, adr
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		len(rs.Players), func(i int) []any {
			p := rs.Players[i]
			return []any{
				id, formatID(p.SteamID), p.Name, teamText(p.Team), boolInt(p.Bot),
				p.Kills, p.Deaths, p.Assists, p.Headshots, p.FlashAssists, p.Damage,
				p.TradeKills, p.TradedDeaths, p.RoundsPlayed,
				p.MVPs, p.Score, p.ADR,
			}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "clutch_stats", `
		INSERT INTO clutch_stats(match_id, round_number, steam_id, name, team, opponents, kills, won)
		VALUES (?,?,?,?,?,?,?,?)`,
		len(rs.Clutches), func(i int) []any {
			c := rs.Clutches[i]
			return []any{id, c.RoundNumber, formatID(c.SteamID), c.Name, teamText(c.Team), c.Opponents, c.Kills, boolInt(c.Won)}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "multikill_stats", `
		INSERT INTO multikill_stats(match_id, steam_id, name, two_k, three_k, four_k, aces)
		VALUES (?,?,?,?,?,?,?)`,
		len(rs.MultiKills), func(i int) []any {
			m := rs.MultiKills[i]
			return []any{id, formatID(m.SteamID), m.Name, m.TwoK, m.ThreeK, m.FourK, m.Aces}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "first_blood_stats", `
		INSERT INTO first_blood_stats(
			match_id, round_number, tick, killer_steam_id, killer_name, killer_team,
			victim_steam_id, victim_name, victim_team, weapon
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		len(rs.FirstBloods), func(i int) []any {
			f := rs.FirstBloods[i]
			return []any{
				id, f.RoundNumber, f.Tick,
				formatID(f.Killer.SteamID), f.Killer.Name, teamText(f.Killer.Team),
				formatID(f.Victim.SteamID), f.Victim.Name, teamText(f.Victim.Team),
				f.Weapon,
			}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "chat_messages", `
		INSERT INTO chat_messages(match_id, tick, seq, round_number, steam_id, name, team, message, all_chat)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		len(rs.Chat), func(i int) []any {
			c := rs.Chat[i]
			return []any{id, c.Tick, c.Seq, c.RoundNumber, formatID(c.SteamID), c.Name, teamText(c.Team), c.Message, boolInt(c.AllChat)}
		})
	if err != nil {
		return err
	}

	err = insertRows(tx, "voice_stats", `
		INSERT INTO voice_stats(match_id, steam_id, name, packets, bytes, first_tick, last_tick)
		VALUES (?,?,?,?,?,?,?)`,
		len(rs.Voice), func(i int) []any {
			v := rs.Voice[i]
			return []any{id, formatID(v.SteamID), v.Name, v.Packets, v.Bytes, v.FirstTick, v.LastTick}
		})
	if err != nil {
		return err
	}

	return tx.Commit()
}

func insertRows(tx *sql.Tx, table, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func deleteMatch(tx *sql.Tx, matchID string) error {
	for _, table := range matchTables {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE match_id = ?", matchID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

// DeleteMatch removes a match and all its rows. It reports whether the match
// existed.
func (db *DB) DeleteMatch(matchID string) (bool, error) {
	exists, err := db.MatchExists(matchID)
	if err != nil || !exists {
		return false, err
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err := deleteMatch(tx, matchID); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

const summaryColumns = `match_id, demo_hash, map_name, tick_rate, rounds_played, ct_score, t_score, engine, processed_at`

func scanSummary(row interface{ Scan(...any) error }) (model.MatchSummary, error) {
	var s model.MatchSummary
	err := row.Scan(&s.MatchID, &s.DemoHash, &s.MapName, &s.TickRate, &s.RoundsPlayed,
		&s.CTScore, &s.TScore, &s.Engine, &s.ProcessedAt)
	return s, err
}

// ListMatches returns all stored matches, most recently processed first.
func (db *DB) ListMatches() ([]model.MatchSummary, error) {
	rows, err := db.conn.Query(`SELECT ` + summaryColumns + ` FROM matches ORDER BY processed_at DESC, match_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMatchByPrefix finds the first match whose id or demo hash starts with
// prefix. It returns nil when nothing matches.
func (db *DB) GetMatchByPrefix(prefix string) (*model.MatchSummary, error) {
	row := db.conn.QueryRow(`SELECT `+summaryColumns+` FROM matches
		WHERE match_id LIKE ? OR demo_hash LIKE ? ORDER BY match_id LIMIT 1`, prefix+"%", prefix+"%")
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetRounds returns the rounds of a match in play order.
func (db *DB) GetRounds(matchID string) ([]model.RoundRecord, error) {
	rows, err := db.conn.Query(`
		SELECT round_number, winner_side, end_reason, reason_code, ct_score_after, t_score_after,
		       bomb_planted, bomb_defused, start_tick, end_tick
		FROM rounds WHERE match_id = ? ORDER BY round_number`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoundRecord
	for rows.Next() {
		r := model.RoundRecord{MatchID: matchID}
		var winner, reason string
		var planted, defused int
		if err := rows.Scan(&r.RoundNumber, &winner, &reason, &r.ReasonCode, &r.CTScoreAfter, &r.TScoreAfter,
			&planted, &defused, &r.StartTick, &r.EndTick); err != nil {
			return nil, err
		}
		r.WinnerSide = model.ParseTeam(winner)
		r.EndReason = model.ParseEndReason(reason)
		r.BombPlanted = planted != 0
		r.BombDefused = defused != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetKills returns the kills of a match ordered by round and tick.
func (db *DB) GetKills(matchID string) ([]model.KillRecord, error) {
	rows, err := db.conn.Query(`
		SELECT round_number, tick, seq,
		       attacker_steam_id, attacker_name, attacker_team,
		       victim_steam_id, victim_name, victim_team,
		       assister_steam_id, assister_name, assister_team,
		       weapon, headshot, wallbang, penetrated, through_smoke, no_scope, attacker_blind, flash_assist
		FROM kills WHERE match_id = ? ORDER BY round_number, tick, seq`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.KillRecord
	for rows.Next() {
		k := model.KillRecord{MatchID: matchID}
		var (
			aID, aName, aTeam string
			vID, vTeam        string
			sID, sName, sTeam string
			hs, wb, smoke     int
			noScope, blind    int
			flashAssist       int
		)
		if err := rows.Scan(&k.RoundNumber, &k.Tick, &k.Seq,
			&aID, &aName, &aTeam,
			&vID, &k.Victim.Name, &vTeam,
			&sID, &sName, &sTeam,
			&k.Weapon, &hs, &wb, &k.Penetrated, &smoke, &noScope, &blind, &flashAssist); err != nil {
			return nil, err
		}
		k.Attacker = participantFromCols(aID, aName, aTeam)
		k.Assister = participantFromCols(sID, sName, sTeam)
		k.Victim.SteamID = parseID(vID)
		k.Victim.Team = model.ParseTeam(vTeam)
		k.Headshot = hs != 0
		if k.Headshot {
			k.HitGroup = model.HitGroupHead
		}
		k.Wallbang = wb != 0
		k.ThroughSmoke = smoke != 0
		k.NoScope = noScope != 0
		k.AttackerBlind = blind != 0
		k.FlashAssist = flashAssist != 0
		out = append(out, k)
	}
	return out, rows.Err()
}

// GetPlayers returns the per-player lines of a match, best fraggers first.
func (db *DB) GetPlayers(matchID string) ([]model.PlayerMatchRecord, error) {
	rows, err := db.conn.Query(`
		SELECT steam_id, name, team, bot, kills, deaths, assists, headshots, flash_assists,
		       damage, trade_kills, traded_deaths, rounds_played, mvps, score, adr
		FROM player_matches WHERE match_id = ?
		ORDER BY kills DESC, steam_id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerMatchRecord
	for rows.Next() {
		p := model.PlayerMatchRecord{MatchID: matchID}
		var steamID, team string
		var bot int
		if err := rows.Scan(&steamID, &p.Name, &team, &bot, &p.Kills, &p.Deaths, &p.Assists,
			&p.Headshots, &p.FlashAssists, &p.Damage, &p.TradeKills, &p.TradedDeaths, &p.RoundsPlayed,
			&p.MVPs, &p.Score, &p.ADR); err != nil {
			return nil, err
		}
		p.SteamID = parseID(steamID)
		p.Team = model.ParseTeam(team)
		p.Bot = bot != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetFlashes returns the flash lines of a match.
func (db *DB) GetFlashes(matchID string) ([]model.FlashStatRecord, error) {
	rows, err := db.conn.Query(`
		SELECT steam_id, name, enemies_flashed, enemy_blind_duration, teammates_flashed,
		       team_blind_duration, self_flashes, self_blind_duration, flashes_thrown
		FROM flash_stats WHERE match_id = ?
		ORDER BY enemies_flashed DESC, steam_id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FlashStatRecord
	for rows.Next() {
		f := model.FlashStatRecord{MatchID: matchID}
		var steamID string
		if err := rows.Scan(&steamID, &f.Name, &f.EnemiesFlashed, &f.EnemyBlindDuration, &f.TeammatesFlashed,
			&f.TeamBlindDuration, &f.SelfFlashes, &f.SelfBlindDuration, &f.FlashesThrown); err != nil {
			return nil, err
		}
		f.SteamID = parseID(steamID)
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetWeapons returns weapon lines of a match ordered by kills.
func (db *DB) GetWeapons(matchID string) ([]model.WeaponStatRecord, error) {
	rows, err := db.conn.Query(`
		SELECT steam_id, name, weapon, kills, headshots, damage, shots, hits
		FROM weapon_stats WHERE match_id = ?
		ORDER BY kills DESC, damage DESC, steam_id, weapon`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WeaponStatRecord
	for rows.Next() {
		w := model.WeaponStatRecord{MatchID: matchID}
		var steamID string
		if err := rows.Scan(&steamID, &w.Name, &w.Weapon, &w.Kills, &w.Headshots, &w.Damage, &w.Shots, &w.Hits); err != nil {
			return nil, err
		}
		w.SteamID = parseID(steamID)
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetChat returns the chat log of a match in order.
func (db *DB) GetChat(matchID string) ([]model.ChatRecord, error) {
	rows, err := db.conn.Query(`
		SELECT tick, seq, round_number, steam_id, name, team, message, all_chat
		FROM chat_messages WHERE match_id = ? ORDER BY tick, seq`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ChatRecord
	for rows.Next() {
		c := model.ChatRecord{MatchID: matchID}
		var steamID, team string
		var all int
		if err := rows.Scan(&c.Tick, &c.Seq, &c.RoundNumber, &steamID, &c.Name, &team, &c.Message, &all); err != nil {
			return nil, err
		}
		c.SteamID = parseID(steamID)
		c.Team = model.ParseTeam(team)
		c.AllChat = all != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns every value as text.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func teamText(t model.Team) string {
	if t == model.TeamUnknown {
		return ""
	}
	return t.String()
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseID(s string) uint64 {
	id, _ := strconv.ParseUint(s, 10, 64)
	return id
}

func participantCols(p *model.Participant) (string, string, string) {
	if p == nil {
		return "", "", ""
	}
	return formatID(p.SteamID), p.Name, teamText(p.Team)
}

func participantFromCols(id, name, team string) *model.Participant {
	if id == "" {
		return nil
	}
	return &model.Participant{SteamID: parseID(id), Name: name, Team: model.ParseTeam(team)}
}
