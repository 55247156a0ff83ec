// Package tracker owns the running model of a match: rosters, sides over
// time, rounds, scores, warmup and who is alive. Aggregators only see it
// through View.
package tracker

import (
	"sort"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
)

// Relation is how a victim relates to the player who affected them.
type Relation int

const (
	RelationUnknown Relation = iota
	RelationSelf
	RelationTeammate
	RelationEnemy
)

func (r Relation) String() string {
	switch r {
	case RelationSelf:
		return "self"
	case RelationTeammate:
		return "teammate"
	case RelationEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// View is the read-only face of a Tracker. All answers reflect the state
// after the last applied event.
type View interface {
	CurrentRound() int
	RoundsPlayed() int
	Score() (ct, t int)
	TeamAt(tick int, steamID uint64) model.Team
	Relation(tick int, actor, victim uint64) Relation
	IsWarmup(tick int) bool
	MatchStarted() bool
	Roster(team model.Team) []uint64
	Name(steamID uint64) string
	IsAlive(steamID uint64) bool
	AliveCount(team model.Team) int
	BombPlanted() bool
	BombDefused() bool
	RoundStartTick() int
	TickRate() float64
	MapName() string
}

type sideSpan struct {
	tick int
	team model.Team
}

type warmupSpan struct {
	tick int
	on   bool
}

// Tracker is mutated only by Apply and must be used from one goroutine.
type Tracker struct {
	currentRound   int
	roundsPlayed   int
	ctScore        int
	tScore         int
	matchStarted   bool
	roundStartTick int
	bombPlanted    bool
	bombDefused    bool
	tickRate       float64
	mapName        string

	warmup []warmupSpan
	sides  map[uint64][]sideSpan
	names  map[uint64]string
	alive  map[uint64]bool
}

var _ View = (*Tracker)(nil)

func New() *Tracker {
	return &Tracker{
		sides: make(map[uint64][]sideSpan),
		names: make(map[uint64]string),
		alive: make(map[uint64]bool),
	}
}

// Apply folds one event into the match state.
func (t *Tracker) Apply(ev events.Event) {
	meta := ev.Header()
	t.setWarmup(meta.Tick, meta.Warmup)

	switch e := ev.(type) {
	case events.PlayerConnect:
		t.see(e.Player)
	case events.PlayerDisconnect:
		t.see(e.Player)
		t.assign(meta.Tick, e.Player.SteamID, model.TeamUnknown)
		delete(t.alive, e.Player.SteamID)
	case events.NameChange:
		t.names[e.Player.SteamID] = e.NewName
	case events.TeamAssign:
		t.see(e.Player)
		t.assign(meta.Tick, e.Player.SteamID, e.Team)
	case events.ServerInfo:
		if rate := e.TickRate(); rate > 0 {
			t.tickRate = rate
		}
		if e.MapName != "" {
			t.mapName = e.MapName
		}
	case events.MatchStart:
		t.matchStarted = true
		t.setWarmup(meta.Tick, false)
		t.currentRound = 0
		t.roundsPlayed = 0
		t.ctScore, t.tScore = 0, 0
		t.bombPlanted, t.bombDefused = false, false
		clear(t.alive)
	case events.RoundStart:
		t.bombPlanted, t.bombDefused = false, false
		t.roundStartTick = meta.Tick
		for id := range t.sides {
			t.alive[id] = t.current(id).Playing()
		}
		if !meta.Warmup {
			t.currentRound = t.roundsPlayed + 1
		}
	case events.RoundEnd:
		if meta.Warmup || e.Reason == model.ReasonGameCommencing {
			return
		}
		t.roundsPlayed++
		t.currentRound = t.roundsPlayed
		switch e.Winner {
		case model.TeamCT:
			t.ctScore++
		case model.TeamT:
			t.tScore++
		}
	case events.PlayerDeath:
		t.alive[e.Victim.SteamID] = false
	case events.BombPlanted:
		t.bombPlanted = true
	case events.BombDefused:
		t.bombDefused = true
	}
}

func (t *Tracker) see(p events.PlayerRef) {
	if p.Name != "" {
		t.names[p.SteamID] = p.Name
	}
	if _, ok := t.sides[p.SteamID]; !ok {
		t.sides[p.SteamID] = nil
	}
}

func (t *Tracker) assign(tick int, id uint64, team model.Team) {
	spans := t.sides[id]
	if n := len(spans); n > 0 && spans[n-1].team == team {
		return
	}
	t.sides[id] = append(spans, sideSpan{tick: tick, team: team})
	if !team.Playing() {
		t.alive[id] = false
	}
}

func (t *Tracker) setWarmup(tick int, on bool) {
	if n := len(t.warmup); n > 0 && t.warmup[n-1].on == on {
		return
	}
	if len(t.warmup) == 0 && !on {
		return
	}
	t.warmup = append(t.warmup, warmupSpan{tick: tick, on: on})
}

func (t *Tracker) current(id uint64) model.Team {
	spans := t.sides[id]
	if len(spans) == 0 {
		return model.TeamUnknown
	}
	return spans[len(spans)-1].team
}

// CurrentRound is the round being played, or the round that just ended
// until the next one starts.
func (t *Tracker) CurrentRound() int {
	if t.currentRound == 0 {
		return t.roundsPlayed + 1
	}
	return t.currentRound
}

// RoundsPlayed counts completed non-warmup rounds.
func (t *Tracker) RoundsPlayed() int { return t.roundsPlayed }

// Score is the running score, updated on each RoundEnd.
func (t *Tracker) Score() (ct, tt int) { return t.ctScore, t.tScore }

// TeamAt returns the side the player was on at tick. Assignments made at
// the same tick count as already in effect.
func (t *Tracker) TeamAt(tick int, id uint64) model.Team {
	spans := t.sides[id]
	i := sort.Search(len(spans), func(i int) bool { return spans[i].tick > tick })
	if i == 0 {
		return model.TeamUnknown
	}
	return spans[i-1].team
}

// Relation classifies actor against victim at tick. Players without a
// playing side at that tick are unknown.
func (t *Tracker) Relation(tick int, actor, victim uint64) Relation {
	if actor == victim {
		return RelationSelf
	}
	a, v := t.TeamAt(tick, actor), t.TeamAt(tick, victim)
	if !a.Playing() || !v.Playing() {
		return RelationUnknown
	}
	if a == v {
		return RelationTeammate
	}
	return RelationEnemy
}

// IsWarmup reports whether tick falls inside a warmup period.
func (t *Tracker) IsWarmup(tick int) bool {
	i := sort.Search(len(t.warmup), func(i int) bool { return t.warmup[i].tick > tick })
	if i == 0 {
		return false
	}
	return t.warmup[i-1].on
}

// MatchStarted reports whether a MatchStart has been seen.
func (t *Tracker) MatchStarted() bool { return t.matchStarted }

// Roster lists the players currently on team, ordered by SteamID.
func (t *Tracker) Roster(team model.Team) []uint64 {
	var out []uint64
	for id := range t.sides {
		if t.current(id) == team {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Name is the last name seen for the player.
func (t *Tracker) Name(id uint64) string { return t.names[id] }

// IsAlive reports whether the player is alive in the current round.
func (t *Tracker) IsAlive(id uint64) bool { return t.alive[id] }

// AliveCount counts living players on team.
func (t *Tracker) AliveCount(team model.Team) int {
	n := 0
	for id, alive := range t.alive {
		if alive && t.current(id) == team {
			n++
		}
	}
	return n
}

// BombPlanted reports a plant in the current round.
func (t *Tracker) BombPlanted() bool { return t.bombPlanted }

// BombDefused reports a defuse in the current round.
func (t *Tracker) BombDefused() bool { return t.bombDefused }

// RoundStartTick is the tick of the last RoundStart.
func (t *Tracker) RoundStartTick() int { return t.roundStartTick }

// TickRate is ticks per second from ServerInfo, 0 until seen.
func (t *Tracker) TickRate() float64 { return t.tickRate }

// MapName is the map from ServerInfo.
func (t *Tracker) MapName() string { return t.mapName }
