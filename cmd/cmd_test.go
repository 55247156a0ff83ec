package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-demostats/internal/log"
	"github.com/pable/go-cs-demostats/internal/model"
)

func seedDB(t *testing.T) string {
	t.Helper()
	cfg.DB = filepath.Join(t.TempDir(), "nested", "stats.db")
	logger = log.Discard()

	db, err := openDB()
	require.NoError(t, err)
	defer db.Close()

	alice := model.Participant{SteamID: 76561198000000001, Name: "alice", Team: model.TeamT}
	bob := model.Participant{SteamID: 76561198000000002, Name: "bob", Team: model.TeamCT}
	rs := model.RecordSet{
		Match: model.MatchRecord{MatchID: "0f0e0d0c-aaaa", DemoHash: "beef", MapName: "de_anubis", RoundsPlayed: 1, TScore: 1, Engine: "native"},
		Rounds: []model.RoundRecord{
			{MatchID: "0f0e0d0c-aaaa", RoundNumber: 1, WinnerSide: model.TeamT, EndReason: model.EndReasonCTElimination, ReasonCode: 8, TScoreAfter: 1},
		},
		Kills: []model.KillRecord{
			{MatchID: "0f0e0d0c-aaaa", RoundNumber: 1, Tick: 500, Seq: 3, Attacker: &alice, Victim: bob, Weapon: "ak47"},
		},
		Players: []model.PlayerMatchRecord{
			{MatchID: "0f0e0d0c-aaaa", SteamID: alice.SteamID, Name: alice.Name, Team: model.TeamT, Kills: 1, RoundsPlayed: 1},
		},
		Chat: []model.ChatRecord{
			{MatchID: "0f0e0d0c-aaaa", Tick: 600, Seq: 4, RoundNumber: 1, SteamID: alice.SteamID, Name: alice.Name, Team: model.TeamT, Message: "ez", AllChat: true},
		},
	}
	require.NoError(t, db.SaveRecordSet(rs, time.Now()))
	return "0f0e0d0c"
}

func TestQueryCommands(t *testing.T) {
	prefix := seedDB(t)

	db, err := openDB()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, showMatch(db, prefix, 76561198000000001))
	require.NoError(t, showRounds(db, prefix, 0))
	require.NoError(t, showChat(db, prefix))
	require.NoError(t, printQuery(db, "SELECT map_name FROM matches"))
	require.Error(t, printQuery(db, "SELECT nope FROM nowhere"))

	// unknown prefixes are reported, not failed
	require.NoError(t, showMatch(db, "ffff", 0))
	require.NoError(t, runList(nil, nil))
	require.NoError(t, runSummary(nil, nil))
}

func TestShellExec(t *testing.T) {
	prefix := seedDB(t)

	db, err := openDB()
	require.NoError(t, err)
	defer db.Close()

	require.False(t, shellExec(db, "help"))
	require.False(t, shellExec(db, "show "+prefix+" --player 76561198000000001"))
	require.False(t, shellExec(db, "rounds "+prefix+" 1"))
	require.False(t, shellExec(db, "sql SELECT COUNT(*) FROM kills"))
	require.False(t, shellExec(db, "bogus"))
	require.True(t, shellExec(db, "exit"))
}

func TestDropMatch(t *testing.T) {
	prefix := seedDB(t)

	dropForce = true
	t.Cleanup(func() { dropForce = false })
	require.NoError(t, runDrop(nil, []string{prefix}))

	db, err := openDB()
	require.NoError(t, err)
	defer db.Close()
	m, err := db.GetMatchByPrefix(prefix)
	require.NoError(t, err)
	require.Nil(t, m)
}
