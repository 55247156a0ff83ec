package aggregator

import (
	"sort"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/tracker"
)

// Kill records one KillRecord per death.
type Kill struct {
	kills []model.KillRecord
}

func NewKill() *Kill { return &Kill{} }

func (a *Kill) Reset() { a.kills = nil }

func (a *Kill) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	e, ok := ev.(events.PlayerDeath)
	if !ok {
		return nil
	}
	a.kills = append(a.kills, model.KillRecord{
		RoundNumber:   st.CurrentRound(),
		Tick:          e.Tick,
		Seq:           e.Seq,
		Attacker:      optionalParticipant(st, e.Tick, e.Attacker),
		Victim:        participant(st, e.Tick, e.Victim),
		Assister:      optionalParticipant(st, e.Tick, e.Assister),
		Weapon:        e.Weapon,
		HitGroup:      e.HitGroup,
		Headshot:      e.HitGroup == model.HitGroupHead,
		Wallbang:      e.Penetrated > 0,
		Penetrated:    e.Penetrated,
		ThroughSmoke:  e.ThroughSmoke,
		NoScope:       e.NoScope,
		AttackerBlind: e.AttackerBlind,
		FlashAssist:   e.Assister != nil && e.AssistedFlash,
	})
	return nil
}

// Records returns kills in event order.
func (a *Kill) Records() []model.KillRecord {
	return append([]model.KillRecord(nil), a.kills...)
}

type weaponKey struct {
	steamID uint64
	weapon  string
}

// Weapon keeps per player per weapon counters. Only damage, hits and kills
// against enemies count.
type Weapon struct {
	stats map[weaponKey]*model.WeaponStatRecord
}

func NewWeapon() *Weapon {
	a := &Weapon{}
	a.Reset()
	return a
}

func (a *Weapon) Reset() { a.stats = make(map[weaponKey]*model.WeaponStatRecord) }

func (a *Weapon) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	switch e := ev.(type) {
	case events.WeaponFire:
		a.entry(e.Shooter, e.Weapon).Shots++
	case events.PlayerHurt:
		if e.Attacker == nil || st.Relation(e.Tick, e.Attacker.SteamID, e.Victim.SteamID) != tracker.RelationEnemy {
			return nil
		}
		w := a.entry(*e.Attacker, e.Weapon)
		w.Hits++
		w.Damage += e.HealthDamage
	case events.PlayerDeath:
		if !isEnemyKill(st, e) {
			return nil
		}
		w := a.entry(*e.Attacker, e.Weapon)
		w.Kills++
		if e.HitGroup == model.HitGroupHead {
			w.Headshots++
		}
	}
	return nil
}

func (a *Weapon) entry(p events.PlayerRef, weapon string) *model.WeaponStatRecord {
	k := weaponKey{p.SteamID, weapon}
	w, ok := a.stats[k]
	if !ok {
		w = &model.WeaponStatRecord{SteamID: p.SteamID, Weapon: weapon}
		a.stats[k] = w
	}
	if p.Name != "" {
		w.Name = p.Name
	}
	return w
}

// Records caps hits at shots: one pellet volley or a burning molotov can
// register more hurt events than fire events.
func (a *Weapon) Records() []model.WeaponStatRecord {
	out := make([]model.WeaponStatRecord, 0, len(a.stats))
	for _, w := range a.stats {
		r := *w
		r.Hits = min(r.Hits, r.Shots)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SteamID != out[j].SteamID {
			return out[i].SteamID < out[j].SteamID
		}
		return out[i].Weapon < out[j].Weapon
	})
	return out
}

// Damage splits dealt damage by relation to the victim.
type Damage struct {
	stats map[uint64]*model.DamageStatRecord
}

func NewDamage() *Damage {
	a := &Damage{}
	a.Reset()
	return a
}

func (a *Damage) Reset() { a.stats = make(map[uint64]*model.DamageStatRecord) }

func (a *Damage) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	e, ok := ev.(events.PlayerHurt)
	if !ok {
		return nil
	}
	dmg := e.HealthDamage
	a.entry(e.Victim).DamageTaken += dmg
	if e.Attacker == nil {
		return nil
	}

	s := a.entry(*e.Attacker)
	s.TotalDamage += dmg
	switch st.Relation(e.Tick, e.Attacker.SteamID, e.Victim.SteamID) {
	case tracker.RelationEnemy:
		s.EnemyDamage += dmg
		if isUtilityWeapon(e.Weapon) {
			s.UtilityDamage += dmg
		}
	case tracker.RelationTeammate:
		s.TeamDamage += dmg
		s.TeamDamageIncidents++
	case tracker.RelationSelf:
		s.SelfDamage += dmg
	}
	return nil
}

func (a *Damage) entry(p events.PlayerRef) *model.DamageStatRecord {
	s, ok := a.stats[p.SteamID]
	if !ok {
		s = &model.DamageStatRecord{SteamID: p.SteamID}
		a.stats[p.SteamID] = s
	}
	if p.Name != "" {
		s.Name = p.Name
	}
	return s
}

func (a *Damage) Records() []model.DamageStatRecord {
	out := make([]model.DamageStatRecord, 0, len(a.stats))
	for _, s := range a.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SteamID < out[j].SteamID })
	return out
}
