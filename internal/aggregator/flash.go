package aggregator

import (
	"sort"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/tracker"
)

// flashReuseTicks is how long after a detonation the same entity id is
// still treated as that grenade.
const flashReuseTicks = 64

// Flash buckets every blind by the thrower's relation to the victim and
// counts each flashbang once by entity id.
type Flash struct {
	stats        map[uint64]*model.FlashStatRecord
	open         map[int]struct{}
	closedAt     map[int]int
	blinds       int
	unattributed int
}

func NewFlash() *Flash {
	a := &Flash{}
	a.Reset()
	return a
}

func (a *Flash) Reset() {
	a.stats = make(map[uint64]*model.FlashStatRecord)
	a.open = make(map[int]struct{})
	a.closedAt = make(map[int]int)
	a.blinds = 0
	a.unattributed = 0
}

func (a *Flash) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	switch e := ev.(type) {
	case events.RoundStart:
		clear(a.open)
		clear(a.closedAt)
	case events.GrenadeThrown:
		if e.Grenade == events.GrenadeFlash && e.EntityID != 0 {
			a.throw(e.EntityID, e.Tick, e.Thrower)
		}
	case events.GrenadeDetonated:
		if e.Grenade == events.GrenadeFlash && e.EntityID != 0 {
			a.detonate(e.EntityID, e.Tick, e.Thrower)
		}
	case events.PlayerFlashed:
		a.blind(e, st)
	}
	return nil
}

func (a *Flash) blind(e events.PlayerFlashed, st tracker.View) {
	a.blinds++
	if e.Attacker == nil {
		a.unattributed++
		return
	}
	if e.EntityID != 0 {
		a.throw(e.EntityID, e.Tick, *e.Attacker)
	}

	s := a.player(*e.Attacker)
	switch st.Relation(e.Tick, e.Attacker.SteamID, e.Victim.SteamID) {
	case tracker.RelationSelf:
		s.SelfFlashes++
		s.SelfBlindDuration += e.BlindDuration
	case tracker.RelationTeammate:
		s.TeammatesFlashed++
		s.TeamBlindDuration += e.BlindDuration
	case tracker.RelationEnemy:
		s.EnemiesFlashed++
		s.EnemyBlindDuration += e.BlindDuration
	default:
		a.unattributed++
	}
}

// throw opens the grenade and counts it unless it is already open or was
// just closed.
func (a *Flash) throw(id, tick int, thrower events.PlayerRef) {
	if _, ok := a.open[id]; ok || a.recentlyClosed(id, tick) {
		return
	}
	a.open[id] = struct{}{}
	a.player(thrower).FlashesThrown++
}

func (a *Flash) detonate(id, tick int, thrower *events.PlayerRef) {
	if _, ok := a.open[id]; ok {
		delete(a.open, id)
		a.closedAt[id] = tick
		return
	}
	if a.recentlyClosed(id, tick) {
		return
	}
	a.closedAt[id] = tick
	if thrower != nil {
		a.player(*thrower).FlashesThrown++
	}
}

func (a *Flash) recentlyClosed(id, tick int) bool {
	at, ok := a.closedAt[id]
	return ok && tick-at <= flashReuseTicks
}

func (a *Flash) player(p events.PlayerRef) *model.FlashStatRecord {
	s, ok := a.stats[p.SteamID]
	if !ok {
		s = &model.FlashStatRecord{SteamID: p.SteamID}
		a.stats[p.SteamID] = s
	}
	if p.Name != "" {
		s.Name = p.Name
	}
	return s
}

// BlindEvents is the number of blinds seen outside warmup.
func (a *Flash) BlindEvents() int { return a.blinds }

// Unattributed counts blinds with no thrower or no known relation.
func (a *Flash) Unattributed() int { return a.unattributed }

func (a *Flash) Records() []model.FlashStatRecord {
	out := make([]model.FlashStatRecord, 0, len(a.stats))
	for _, s := range a.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SteamID < out[j].SteamID })
	return out
}
