package aggregator_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-demostats/internal/aggregator"
	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/tracker"
)

// IDs for test players. A and B play T, C and D play CT.
var (
	playerA = events.PlayerRef{SteamID: 76561198000000001, Name: "A", Slot: 0}
	playerB = events.PlayerRef{SteamID: 76561198000000002, Name: "B", Slot: 1}
	playerC = events.PlayerRef{SteamID: 76561198000000003, Name: "C", Slot: 2}
	playerD = events.PlayerRef{SteamID: 76561198000000004, Name: "D", Slot: 3}
)

type harness struct {
	t   *testing.T
	tr  *tracker.Tracker
	set *aggregator.Set
	seq int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, tr: tracker.New(), set: aggregator.NewSet()}
	h.seat(playerA, model.TeamT)
	h.seat(playerB, model.TeamT)
	h.seat(playerC, model.TeamCT)
	h.seat(playerD, model.TeamCT)
	return h
}

func (h *harness) meta(tick int) events.Meta {
	h.seq++
	return events.Meta{Tick: tick, Seq: h.seq}
}

func (h *harness) seat(p events.PlayerRef, team model.Team) {
	h.apply(events.PlayerConnect{Meta: h.meta(1), Player: p})
	h.apply(events.TeamAssign{Meta: h.meta(1), Player: p, Team: team})
}

func (h *harness) apply(ev events.Event) {
	h.t.Helper()
	require.NoError(h.t, h.try(ev))
}

func (h *harness) try(ev events.Event) error {
	h.tr.Apply(ev)
	return h.set.Apply(ev, h.tr)
}

func (h *harness) kill(tick int, attacker, victim events.PlayerRef, weapon string, hg model.HitGroup) {
	h.t.Helper()
	h.apply(events.PlayerDeath{
		Meta:     h.meta(tick),
		Victim:   victim,
		Attacker: &attacker,
		Weapon:   weapon,
		HitGroup: hg,
		Headshot: hg == model.HitGroupHead,
	})
}

func ptr(p events.PlayerRef) *events.PlayerRef { return &p }

func TestTwoRoundScenario(t *testing.T) {
	h := newHarness(t)

	h.apply(events.RoundStart{Meta: h.meta(100)})
	h.apply(events.BombPlanted{Meta: h.meta(500), Player: playerA, Site: 1})
	h.apply(events.BombExploded{Meta: h.meta(1200), Site: 1})
	h.apply(events.RoundEnd{Meta: h.meta(1200), Winner: model.TeamT, Reason: 1})

	h.apply(events.RoundStart{Meta: h.meta(1500)})
	h.kill(1600, playerC, playerA, "m4a1", model.HitGroupChest)
	h.kill(1650, playerD, playerB, "m4a1", model.HitGroupHead)
	h.apply(events.RoundEnd{Meta: h.meta(1650), Winner: model.TeamCT, Reason: 8})

	res := h.set.Results()
	require.Len(t, res.Rounds, 2)

	r1, r2 := res.Rounds[0], res.Rounds[1]
	require.Equal(t, 1, r1.RoundNumber)
	require.Equal(t, model.EndReasonTargetBombed, r1.EndReason)
	require.Equal(t, model.TeamT, r1.WinnerSide)
	require.Equal(t, 0, r1.CTScoreAfter)
	require.Equal(t, 1, r1.TScoreAfter)
	require.True(t, r1.BombPlanted)
	require.Equal(t, 100, r1.StartTick)

	require.Equal(t, 2, r2.RoundNumber)
	require.Equal(t, model.EndReasonCTElimination, r2.EndReason)
	require.Equal(t, 1, r2.CTScoreAfter)
	require.Equal(t, 1, r2.TScoreAfter)
	require.False(t, r2.BombPlanted)

	ct, tt := h.tr.Score()
	require.Equal(t, len(res.Rounds), ct+tt)

	require.Len(t, res.Kills, 2)
	for _, k := range res.Kills {
		require.Equal(t, 2, k.RoundNumber)
	}
}

func TestFlashThrownOnceForSeveralVictims(t *testing.T) {
	h := newHarness(t)
	h.apply(events.RoundStart{Meta: h.meta(10)})

	const grenade = 321
	h.apply(events.GrenadeThrown{Meta: h.meta(100), Thrower: playerA, Grenade: events.GrenadeFlash, EntityID: grenade})
	h.apply(events.PlayerFlashed{Meta: h.meta(180), Victim: playerB, Attacker: ptr(playerA), EntityID: grenade, BlindDuration: 1.25})
	h.apply(events.PlayerFlashed{Meta: h.meta(180), Victim: playerC, Attacker: ptr(playerA), EntityID: grenade, BlindDuration: 3.5})
	h.apply(events.GrenadeDetonated{Meta: h.meta(180), Thrower: ptr(playerA), Grenade: events.GrenadeFlash, EntityID: grenade})

	res := h.set.Results()
	require.Len(t, res.Flashes, 1)
	a := res.Flashes[0]
	require.Equal(t, playerA.SteamID, a.SteamID)
	require.Equal(t, 1, a.TeammatesFlashed)
	require.Equal(t, 1, a.EnemiesFlashed)
	require.Equal(t, 0, a.SelfFlashes)
	require.Equal(t, 1, a.FlashesThrown)
	require.InDelta(t, 1.25, a.TeamBlindDuration, 1e-9)
	require.InDelta(t, 3.5, a.EnemyBlindDuration, 1e-9)
	require.Equal(t, 2, res.BlindEvents)
}

func TestFlashLifecycleWithoutThrowEvent(t *testing.T) {
	h := newHarness(t)
	h.apply(events.RoundStart{Meta: h.meta(10)})

	// blind before detonation, then detonation: one grenade
	h.apply(events.PlayerFlashed{Meta: h.meta(200), Victim: playerA, Attacker: ptr(playerA), EntityID: 50, BlindDuration: 2})
	h.apply(events.GrenadeDetonated{Meta: h.meta(200), Thrower: ptr(playerA), Grenade: events.GrenadeFlash, EntityID: 50})
	// detonation first, blind in the same tick: one grenade
	h.apply(events.GrenadeDetonated{Meta: h.meta(400), Thrower: ptr(playerA), Grenade: events.GrenadeFlash, EntityID: 51})
	h.apply(events.PlayerFlashed{Meta: h.meta(400), Victim: playerC, Attacker: ptr(playerA), EntityID: 51, BlindDuration: 1})
	// entity id 50 reused well after the first grenade closed
	h.apply(events.GrenadeDetonated{Meta: h.meta(3000), Thrower: ptr(playerA), Grenade: events.GrenadeFlash, EntityID: 50})
	// no thrower: unattributed, still a blind event
	h.apply(events.PlayerFlashed{Meta: h.meta(3100), Victim: playerB, EntityID: 0, BlindDuration: 1})

	res := h.set.Results()
	require.Len(t, res.Flashes, 1)
	a := res.Flashes[0]
	require.Equal(t, 3, a.FlashesThrown)
	require.Equal(t, 1, a.SelfFlashes)
	require.Equal(t, 1, a.EnemiesFlashed)
	require.Equal(t, 3, res.BlindEvents)
	require.Equal(t, 1, res.UnattributedFlashes)
	require.Equal(t, res.BlindEvents, a.SelfFlashes+a.TeammatesFlashed+a.EnemiesFlashed+res.UnattributedFlashes)
}

func TestFlashUsesSideAtBlindTick(t *testing.T) {
	h := newHarness(t)
	h.apply(events.PlayerFlashed{Meta: h.meta(100), Victim: playerB, Attacker: ptr(playerA), EntityID: 7, BlindDuration: 1})
	// halftime: B swaps to CT
	h.apply(events.TeamAssign{Meta: h.meta(5000), Player: playerB, Team: model.TeamCT, OldTeam: model.TeamT})
	h.apply(events.PlayerFlashed{Meta: h.meta(5100), Victim: playerB, Attacker: ptr(playerA), EntityID: 8, BlindDuration: 1})

	a := h.set.Results().Flashes[0]
	require.Equal(t, 1, a.TeammatesFlashed)
	require.Equal(t, 1, a.EnemiesFlashed)
}

func TestHeadshotRequiresHeadHitGroup(t *testing.T) {
	h := newHarness(t)
	h.apply(events.RoundStart{Meta: h.meta(10)})
	h.apply(events.PlayerDeath{
		Meta: h.meta(100), Victim: playerC, Attacker: ptr(playerA),
		Weapon: "ak47", HitGroup: model.HitGroupChest, Headshot: true,
	})
	h.kill(200, playerA, playerD, "ak47", model.HitGroupHead)

	res := h.set.Results()
	require.Len(t, res.Kills, 2)
	require.False(t, res.Kills[0].Headshot)
	require.True(t, res.Kills[1].Headshot)
	for _, k := range res.Kills {
		if k.Headshot {
			require.Equal(t, model.HitGroupHead, k.HitGroup)
		}
	}

	require.Len(t, res.Weapons, 1)
	w := res.Weapons[0]
	require.Equal(t, 2, w.Kills)
	require.Equal(t, 1, w.Headshots)
}

func TestKillFlags(t *testing.T) {
	h := newHarness(t)
	h.apply(events.PlayerDeath{
		Meta: h.meta(100), Victim: playerC, Attacker: ptr(playerA), Assister: ptr(playerB),
		Weapon: "awp", Penetrated: 1, NoScope: true, ThroughSmoke: true, AttackerBlind: true, AssistedFlash: true,
	})
	// assisted flash without an assister is not a flash assist
	h.apply(events.PlayerDeath{Meta: h.meta(200), Victim: playerD, Attacker: ptr(playerA), Weapon: "awp", AssistedFlash: true})
	h.apply(events.PlayerDeath{Meta: h.meta(300), Victim: playerA, Weapon: "world"})

	res := h.set.Results()
	require.Len(t, res.Kills, 3)

	k := res.Kills[0]
	require.True(t, k.Wallbang)
	require.True(t, k.NoScope)
	require.True(t, k.ThroughSmoke)
	require.True(t, k.AttackerBlind)
	require.True(t, k.FlashAssist)
	require.NotNil(t, k.Assister)
	require.Equal(t, model.TeamT, k.Attacker.Team)
	require.Equal(t, model.TeamCT, k.Victim.Team)

	require.False(t, res.Kills[1].FlashAssist)
	require.Nil(t, res.Kills[2].Attacker)
}

func TestUnmappedEndReasonFails(t *testing.T) {
	h := newHarness(t)
	h.apply(events.RoundStart{Meta: h.meta(10)})
	err := h.try(events.RoundEnd{Meta: h.meta(100), Winner: model.TeamCT, Reason: 10})

	var unmapped *model.UnmappedEndReasonError
	require.True(t, errors.As(err, &unmapped))
	require.Equal(t, 10, unmapped.Code)
	require.Equal(t, 100, unmapped.Tick)
}

func TestWarmupIsIgnoredAndMatchStartResets(t *testing.T) {
	h := newHarness(t)
	warm := func(tick int) events.Meta {
		m := h.meta(tick)
		m.Warmup = true
		return m
	}
	h.apply(events.RoundStart{Meta: warm(10)})
	h.apply(events.PlayerDeath{Meta: warm(20), Victim: playerC, Attacker: ptr(playerA), Weapon: "ak47"})
	h.apply(events.ChatMessage{Meta: warm(30), Sender: playerA, Text: "gl", AllChat: true})
	// unmapped reasons during warmup never reach the round aggregator
	h.apply(events.RoundEnd{Meta: warm(40), Winner: model.TeamCT, Reason: 10})

	res := h.set.Results()
	require.Empty(t, res.Kills)
	require.Empty(t, res.Chat)
	require.Empty(t, res.Rounds)

	// anything gathered before the match starts is discarded
	h.apply(events.PlayerDeath{Meta: h.meta(60), Victim: playerC, Attacker: ptr(playerA), Weapon: "ak47"})
	require.Len(t, h.set.Results().Kills, 1)
	h.apply(events.MatchStart{Meta: h.meta(70)})
	require.Empty(t, h.set.Results().Kills)
	require.Empty(t, h.set.Results().Players)
}

func TestWeaponAndDamageRelations(t *testing.T) {
	h := newHarness(t)
	h.apply(events.RoundStart{Meta: h.meta(10)})
	h.apply(events.WeaponFire{Meta: h.meta(100), Shooter: playerA, Weapon: "ak47"})
	h.apply(events.PlayerHurt{Meta: h.meta(101), Victim: playerC, Attacker: ptr(playerA), Weapon: "ak47", HealthDamage: 27})
	h.apply(events.PlayerHurt{Meta: h.meta(102), Victim: playerD, Attacker: ptr(playerA), Weapon: "ak47", HealthDamage: 30})
	h.apply(events.PlayerHurt{Meta: h.meta(103), Victim: playerB, Attacker: ptr(playerA), Weapon: "ak47", HealthDamage: 10})
	h.apply(events.PlayerHurt{Meta: h.meta(104), Victim: playerA, Attacker: ptr(playerA), Weapon: "hegrenade", HealthDamage: 5})
	h.apply(events.PlayerHurt{Meta: h.meta(105), Victim: playerC, Attacker: ptr(playerA), Weapon: "hegrenade", HealthDamage: 40})
	h.apply(events.PlayerHurt{Meta: h.meta(106), Victim: playerC, Weapon: "world", HealthDamage: 3})

	res := h.set.Results()

	var ak model.WeaponStatRecord
	for _, w := range res.Weapons {
		if w.SteamID == playerA.SteamID && w.Weapon == "ak47" {
			ak = w
		}
		require.LessOrEqual(t, w.Hits, w.Shots)
		require.LessOrEqual(t, w.Headshots, w.Kills)
	}
	require.Equal(t, 1, ak.Shots)
	require.Equal(t, 1, ak.Hits)
	require.Equal(t, 57, ak.Damage)

	byID := map[uint64]model.DamageStatRecord{}
	for _, d := range res.Damage {
		byID[d.SteamID] = d
	}
	a := byID[playerA.SteamID]
	require.Equal(t, 97, a.EnemyDamage)
	require.Equal(t, 10, a.TeamDamage)
	require.Equal(t, 1, a.TeamDamageIncidents)
	require.Equal(t, 5, a.SelfDamage)
	require.Equal(t, 112, a.TotalDamage)
	require.Equal(t, 40, a.UtilityDamage)
	require.Equal(t, 70, byID[playerC.SteamID].DamageTaken)
}

func TestChatKeepsDuplicates(t *testing.T) {
	h := newHarness(t)
	h.apply(events.RoundStart{Meta: h.meta(10)})
	h.apply(events.ChatMessage{Meta: h.meta(100), Sender: playerA, Text: "nt", AllChat: true})
	h.apply(events.ChatMessage{Meta: h.meta(100), Sender: playerA, Text: "nt", AllChat: true})
	h.apply(events.ChatMessage{Meta: h.meta(150), Sender: playerC, Text: "rush b", AllChat: false})

	chat := h.set.Results().Chat
	require.Len(t, chat, 3)
	require.Equal(t, chat[0].Message, chat[1].Message)
	require.Less(t, chat[0].Seq, chat[1].Seq)
	require.Equal(t, model.TeamCT, chat[2].Team)
	require.Equal(t, 1, chat[2].RoundNumber)
	require.False(t, chat[2].AllChat)
}

func TestClutchMultiKillAndFirstBlood(t *testing.T) {
	h := newHarness(t)
	h.apply(events.RoundStart{Meta: h.meta(10)})
	h.kill(100, playerC, playerB, "m4a1", model.HitGroupHead) // A alone vs C and D
	h.kill(150, playerA, playerC, "ak47", model.HitGroupChest)
	h.kill(200, playerA, playerD, "ak47", model.HitGroupHead)
	h.apply(events.RoundEnd{Meta: h.meta(200), Winner: model.TeamT, Reason: 9})

	res := h.set.Results()
	require.Len(t, res.Clutches, 1)
	c := res.Clutches[0]
	require.Equal(t, playerA.SteamID, c.SteamID)
	require.Equal(t, 2, c.Opponents)
	require.Equal(t, 2, c.Kills)
	require.True(t, c.Won)
	require.Equal(t, 1, c.RoundNumber)

	require.Len(t, res.MultiKills, 1)
	require.Equal(t, playerA.SteamID, res.MultiKills[0].SteamID)
	require.Equal(t, 1, res.MultiKills[0].TwoK)

	require.Len(t, res.FirstBloods, 1)
	require.Equal(t, playerC.SteamID, res.FirstBloods[0].Killer.SteamID)
	require.Equal(t, playerB.SteamID, res.FirstBloods[0].Victim.SteamID)
}

func TestPlayerLineAndTrades(t *testing.T) {
	h := newHarness(t)
	h.apply(events.ServerInfo{Meta: h.meta(5), TickInterval: 1.0 / 64})
	h.apply(events.RoundStart{Meta: h.meta(10)})
	h.kill(100, playerC, playerB, "m4a1", model.HitGroupChest)
	h.kill(164, playerA, playerC, "ak47", model.HitGroupHead) // trade within a second
	h.apply(events.PlayerDeath{Meta: h.meta(300), Victim: playerD, Attacker: ptr(playerA), Assister: ptr(playerB), Weapon: "ak47", AssistedFlash: true})
	h.apply(events.RoundEnd{Meta: h.meta(300), Winner: model.TeamT, Reason: 9})

	byID := map[uint64]model.PlayerMatchRecord{}
	for _, p := range h.set.Results().Players {
		byID[p.SteamID] = p
	}
	a := byID[playerA.SteamID]
	require.Equal(t, 2, a.Kills)
	require.Equal(t, 1, a.Headshots)
	require.Equal(t, 1, a.TradeKills)
	require.Equal(t, 1, a.RoundsPlayed)
	require.Equal(t, model.TeamT, a.Team)
	require.False(t, a.Bot)

	b := byID[playerB.SteamID]
	require.Equal(t, 1, b.Deaths)
	require.Equal(t, 1, b.TradedDeaths)
	require.Equal(t, 1, b.Assists)
	require.Equal(t, 1, b.FlashAssists)
}

func TestPlayerMVPScoreAndADR(t *testing.T) {
	h := newHarness(t)

	h.apply(events.RoundStart{Meta: h.meta(10)})
	h.apply(events.BombPlanted{Meta: h.meta(50), Player: playerA, Site: 1})
	h.apply(events.PlayerHurt{Meta: h.meta(90), Victim: playerC, Attacker: ptr(playerA), Weapon: "ak47", HealthDamage: 100})
	h.kill(90, playerA, playerC, "ak47", model.HitGroupChest)
	h.kill(150, playerA, playerB, "ak47", model.HitGroupChest) // team kill
	h.kill(160, playerD, playerD, "hegrenade", model.HitGroupGeneric)
	h.apply(events.RoundMVP{Meta: h.meta(200), Player: playerA, Reason: 2})
	h.apply(events.RoundEnd{Meta: h.meta(200), Winner: model.TeamT, Reason: 1})

	h.apply(events.RoundStart{Meta: h.meta(300)})
	h.apply(events.RoundEnd{Meta: h.meta(400), Winner: model.TeamT, Reason: 1})

	h.apply(events.RoundStart{Meta: h.meta(500)})
	h.apply(events.PlayerHurt{Meta: h.meta(550), Victim: playerD, Attacker: ptr(playerA), Weapon: "ak47", HealthDamage: 150})
	h.apply(events.BombDefused{Meta: h.meta(600), Player: playerC, Site: 1})
	h.apply(events.RoundEnd{Meta: h.meta(600), Winner: model.TeamCT, Reason: 7})

	byID := map[uint64]model.PlayerMatchRecord{}
	for _, p := range h.set.Results().Players {
		byID[p.SteamID] = p
	}

	a := byID[playerA.SteamID]
	require.Equal(t, 1, a.MVPs)
	require.Equal(t, 1, a.Kills)
	require.Equal(t, 2+2-2, a.Score)
	require.Equal(t, 250, a.Damage)
	require.Equal(t, 3, a.RoundsPlayed)
	require.Equal(t, 83.33, a.ADR)

	require.Equal(t, 2, byID[playerC.SteamID].Score)
	require.Equal(t, -1, byID[playerD.SteamID].Score)
	require.Equal(t, 0, byID[playerB.SteamID].MVPs)
	require.Equal(t, 0.0, byID[playerB.SteamID].ADR)
}
