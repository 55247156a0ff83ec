package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/tracker"
)

var (
	alice = events.PlayerRef{SteamID: 76561198000000001, Name: "alice", Slot: 0}
	bob   = events.PlayerRef{SteamID: 76561198000000002, Name: "bob", Slot: 1}
	carol = events.PlayerRef{SteamID: 76561198000000003, Name: "carol", Slot: 2}
)

func at(tick int) events.Meta {
	return events.Meta{Tick: tick}
}

func seat(tr *tracker.Tracker, tick int, p events.PlayerRef, team model.Team) {
	tr.Apply(events.PlayerConnect{Meta: at(tick), Player: p})
	tr.Apply(events.TeamAssign{Meta: at(tick), Player: p, Team: team})
}

func TestTeamAtFollowsSideSwaps(t *testing.T) {
	tr := tracker.New()
	seat(tr, 100, alice, model.TeamT)
	tr.Apply(events.TeamAssign{Meta: at(5000), Player: alice, Team: model.TeamCT, OldTeam: model.TeamT})

	require.Equal(t, model.TeamUnknown, tr.TeamAt(99, alice.SteamID))
	require.Equal(t, model.TeamT, tr.TeamAt(100, alice.SteamID))
	require.Equal(t, model.TeamT, tr.TeamAt(4999, alice.SteamID))
	require.Equal(t, model.TeamCT, tr.TeamAt(5000, alice.SteamID))
	require.Equal(t, model.TeamCT, tr.TeamAt(9000, alice.SteamID))
}

func TestRelation(t *testing.T) {
	tr := tracker.New()
	seat(tr, 10, alice, model.TeamT)
	seat(tr, 10, bob, model.TeamT)
	seat(tr, 10, carol, model.TeamCT)

	require.Equal(t, tracker.RelationSelf, tr.Relation(20, alice.SteamID, alice.SteamID))
	require.Equal(t, tracker.RelationTeammate, tr.Relation(20, alice.SteamID, bob.SteamID))
	require.Equal(t, tracker.RelationEnemy, tr.Relation(20, alice.SteamID, carol.SteamID))
	require.Equal(t, tracker.RelationUnknown, tr.Relation(5, alice.SteamID, carol.SteamID))
	require.Equal(t, tracker.RelationUnknown, tr.Relation(20, alice.SteamID, 42))

	// after the halftime swap bob is an enemy of alice
	tr.Apply(events.TeamAssign{Meta: at(900), Player: bob, Team: model.TeamCT})
	require.Equal(t, tracker.RelationTeammate, tr.Relation(899, alice.SteamID, bob.SteamID))
	require.Equal(t, tracker.RelationEnemy, tr.Relation(900, alice.SteamID, bob.SteamID))
}

func TestScoresIncrementOnRoundEnd(t *testing.T) {
	tr := tracker.New()
	seat(tr, 1, alice, model.TeamT)
	seat(tr, 1, carol, model.TeamCT)

	tr.Apply(events.RoundStart{Meta: at(10)})
	require.Equal(t, 1, tr.CurrentRound())
	tr.Apply(events.RoundEnd{Meta: at(100), Winner: model.TeamT, Reason: 1})
	ct, tt := tr.Score()
	require.Equal(t, 0, ct)
	require.Equal(t, 1, tt)
	require.Equal(t, 1, tr.CurrentRound())

	tr.Apply(events.RoundStart{Meta: at(200)})
	ct, tt = tr.Score()
	require.Equal(t, 0, ct)
	require.Equal(t, 1, tt)
	require.Equal(t, 2, tr.CurrentRound())

	tr.Apply(events.RoundEnd{Meta: at(300), Winner: model.TeamCT, Reason: 8})
	ct, tt = tr.Score()
	require.Equal(t, 1, ct)
	require.Equal(t, 1, tt)
	require.Equal(t, 2, tr.RoundsPlayed())
}

func TestWarmupRoundsDoNotCount(t *testing.T) {
	tr := tracker.New()
	warm := events.Meta{Tick: 10, Warmup: true}
	tr.Apply(events.RoundStart{Meta: warm})
	tr.Apply(events.RoundEnd{Meta: events.Meta{Tick: 50, Warmup: true}, Winner: model.TeamCT, Reason: 8})
	require.True(t, tr.IsWarmup(50))
	require.Equal(t, 0, tr.RoundsPlayed())

	tr.Apply(events.RoundEnd{Meta: at(60), Winner: model.TeamCT, Reason: model.ReasonGameCommencing})
	require.Equal(t, 0, tr.RoundsPlayed())

	tr.Apply(events.MatchStart{Meta: at(70)})
	require.True(t, tr.MatchStarted())
	require.True(t, tr.IsWarmup(55))
	require.False(t, tr.IsWarmup(70))
	require.False(t, tr.IsWarmup(5))
}

func TestMatchStartResets(t *testing.T) {
	tr := tracker.New()
	seat(tr, 1, alice, model.TeamT)
	tr.Apply(events.RoundStart{Meta: at(10)})
	tr.Apply(events.BombPlanted{Meta: at(20), Player: alice, Site: 1})
	tr.Apply(events.RoundEnd{Meta: at(30), Winner: model.TeamT, Reason: 1})
	require.True(t, tr.BombPlanted())

	tr.Apply(events.MatchStart{Meta: at(40)})
	ct, tt := tr.Score()
	require.Zero(t, ct)
	require.Zero(t, tt)
	require.Zero(t, tr.RoundsPlayed())
	require.False(t, tr.BombPlanted())
	require.Equal(t, 1, tr.CurrentRound())
}

func TestAliveTracking(t *testing.T) {
	tr := tracker.New()
	seat(tr, 1, alice, model.TeamT)
	seat(tr, 1, bob, model.TeamT)
	seat(tr, 1, carol, model.TeamCT)
	require.Zero(t, tr.AliveCount(model.TeamT))

	tr.Apply(events.RoundStart{Meta: at(10)})
	require.Equal(t, 2, tr.AliveCount(model.TeamT))
	require.Equal(t, 1, tr.AliveCount(model.TeamCT))

	tr.Apply(events.PlayerDeath{Meta: at(20), Victim: bob, Attacker: &carol, Weapon: "ak47"})
	require.False(t, tr.IsAlive(bob.SteamID))
	require.True(t, tr.IsAlive(alice.SteamID))
	require.Equal(t, 1, tr.AliveCount(model.TeamT))
	require.Equal(t, []uint64{alice.SteamID, bob.SteamID}, tr.Roster(model.TeamT))
}

func TestNamesAndServerInfo(t *testing.T) {
	tr := tracker.New()
	seat(tr, 1, alice, model.TeamT)
	tr.Apply(events.NameChange{Meta: at(5), Player: alice, OldName: "alice", NewName: "alicia"})
	tr.Apply(events.ServerInfo{Meta: at(5), TickInterval: 1.0 / 64, MapName: "de_mirage"})

	require.Equal(t, "alicia", tr.Name(alice.SteamID))
	require.InDelta(t, 64.0, tr.TickRate(), 0.001)
	require.Equal(t, "de_mirage", tr.MapName())

	tr.Apply(events.PlayerDisconnect{Meta: at(50), Player: alice})
	require.Empty(t, tr.Roster(model.TeamT))
	require.Equal(t, model.TeamT, tr.TeamAt(49, alice.SteamID))
}
