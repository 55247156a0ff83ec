package storage

import "database/sql"

// Overview holds aggregate counts across every stored match.
type Overview struct {
	TotalMatches  int
	TotalRounds   int
	UniqueMaps    int
	UniquePlayers int
	EarliestRun   string
	LatestRun     string
}

// MapStat is the per-map round win split.
type MapStat struct {
	MapName string
	Matches int
	CTWins  int
	TWins   int
}

// ActivePlayer is a human player ranked by stored match count.
type ActivePlayer struct {
	SteamID uint64
	Name    string
	Matches int
	Kills   int
	Deaths  int
	Damage  int
	Rounds  int
}

// GetOverview returns totals across the database.
func (db *DB) GetOverview() (Overview, error) {
	var (
		ov               Overview
		earliest, latest sql.NullString
	)
	err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(rounds_played), 0), COUNT(DISTINCT map_name),
		       MIN(processed_at), MAX(processed_at)
		FROM matches`).Scan(&ov.TotalMatches, &ov.TotalRounds, &ov.UniqueMaps, &earliest, &latest)
	if err != nil {
		return ov, err
	}
	ov.EarliestRun, ov.LatestRun = earliest.String, latest.String

	err = db.conn.QueryRow(`SELECT COUNT(DISTINCT steam_id) FROM player_matches WHERE bot = 0`).Scan(&ov.UniquePlayers)
	return ov, err
}

// GetMapStats returns match counts and round wins per side for each map.
func (db *DB) GetMapStats() ([]MapStat, error) {
	rows, err := db.conn.Query(`
		SELECT m.map_name,
		       COUNT(DISTINCT m.match_id),
		       COALESCE(SUM(CASE WHEN r.winner_side = 'CT' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN r.winner_side = 'T' THEN 1 ELSE 0 END), 0)
		FROM matches m
		LEFT JOIN rounds r ON r.match_id = m.match_id
		GROUP BY m.map_name
		ORDER BY COUNT(DISTINCT m.match_id) DESC, m.map_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MapStat
	for rows.Next() {
		var s MapStat
		if err := rows.Scan(&s.MapName, &s.Matches, &s.CTWins, &s.TWins); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetActivePlayers returns up to limit human players with the most stored
// matches. The name is the one from their latest processed match.
func (db *DB) GetActivePlayers(limit int) ([]ActivePlayer, error) {
	rows, err := db.conn.Query(`
		SELECT p.steam_id,
		       (SELECT p2.name FROM player_matches p2 JOIN matches m2 ON m2.match_id = p2.match_id
		        WHERE p2.steam_id = p.steam_id ORDER BY m2.processed_at DESC LIMIT 1),
		       COUNT(*), SUM(p.kills), SUM(p.deaths), SUM(p.damage), SUM(p.rounds_played)
		FROM player_matches p
		WHERE p.bot = 0
		GROUP BY p.steam_id
		ORDER BY COUNT(*) DESC, SUM(p.kills) DESC, p.steam_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActivePlayer
	for rows.Next() {
		var (
			p  ActivePlayer
			id string
		)
		if err := rows.Scan(&id, &p.Name, &p.Matches, &p.Kills, &p.Deaths, &p.Damage, &p.Rounds); err != nil {
			return nil, err
		}
		p.SteamID = parseID(id)
		out = append(out, p)
	}
	return out, rows.Err()
}
