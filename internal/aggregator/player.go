package aggregator

import (
	"sort"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/tracker"
)

const (
	tradeWindowSeconds = 5.0
	defaultTickRate    = 64.0
)

// Scoreboard points. Demos do not carry the scoreboard itself, so Score is
// rebuilt from the events that award points in competitive.
const (
	pointsKill      = 2
	pointsAssist    = 1
	pointsObjective = 2 // plant or defuse
	pointsTeamKill  = -2
	pointsSuicide   = -1
)

type roundKill struct {
	tick       int
	killerID   uint64
	victimID   uint64
	victimTeam model.Team
}

// Player builds the per-player match line: K/D/A, damage, trades, MVPs,
// score, ADR and rounds played.
type Player struct {
	stats map[uint64]*model.PlayerMatchRecord
	kills []roundKill // enemy kills of the current round, in tick order
}

func NewPlayer() *Player {
	a := &Player{}
	a.Reset()
	return a
}

func (a *Player) Reset() {
	a.stats = make(map[uint64]*model.PlayerMatchRecord)
	a.kills = nil
}

func (a *Player) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	switch e := ev.(type) {
	case events.RoundStart:
		a.kills = a.kills[:0]
	case events.PlayerHurt:
		if e.Attacker != nil && st.Relation(e.Tick, e.Attacker.SteamID, e.Victim.SteamID) == tracker.RelationEnemy {
			a.entry(*e.Attacker).Damage += e.HealthDamage
		}
	case events.PlayerDeath:
		a.death(e, st)
	case events.BombPlanted:
		a.entry(e.Player).Score += pointsObjective
	case events.BombDefused:
		a.entry(e.Player).Score += pointsObjective
	case events.RoundMVP:
		a.entry(e.Player).MVPs++
	case events.RoundEnd:
		if e.Reason == model.ReasonGameCommencing {
			return nil
		}
		for _, team := range []model.Team{model.TeamT, model.TeamCT} {
			for _, id := range st.Roster(team) {
				s := a.entry(events.PlayerRef{SteamID: id, Name: st.Name(id)})
				s.Team = team
				s.RoundsPlayed++
			}
		}
	}
	return nil
}

func (a *Player) death(e events.PlayerDeath, st tracker.View) {
	a.entry(e.Victim).Deaths++
	if e.Assister != nil {
		as := a.entry(*e.Assister)
		as.Assists++
		as.Score += pointsAssist
		if e.AssistedFlash {
			as.FlashAssists++
		}
	}
	if e.Attacker == nil {
		return
	}
	switch st.Relation(e.Tick, e.Attacker.SteamID, e.Victim.SteamID) {
	case tracker.RelationSelf:
		a.entry(*e.Attacker).Score += pointsSuicide
		return
	case tracker.RelationTeammate:
		a.entry(*e.Attacker).Score += pointsTeamKill
		return
	case tracker.RelationUnknown:
		return
	}

	killer := a.entry(*e.Attacker)
	killer.Kills++
	killer.Score += pointsKill
	if e.HitGroup == model.HitGroupHead {
		killer.Headshots++
	}

	// A trade is killing the enemy who, within the window, killed a
	// teammate of the trader.
	rate := st.TickRate()
	if rate <= 0 {
		rate = defaultTickRate
	}
	window := int(tradeWindowSeconds * rate)
	killerTeam := st.TeamAt(e.Tick, e.Attacker.SteamID)
	for i := len(a.kills) - 1; i >= 0; i-- {
		prev := a.kills[i]
		if e.Tick-prev.tick > window {
			break
		}
		if prev.killerID == e.Victim.SteamID && prev.victimTeam == killerTeam {
			killer.TradeKills++
			a.entry(events.PlayerRef{SteamID: prev.victimID}).TradedDeaths++
			break
		}
	}
	a.kills = append(a.kills, roundKill{
		tick:       e.Tick,
		killerID:   e.Attacker.SteamID,
		victimID:   e.Victim.SteamID,
		victimTeam: st.TeamAt(e.Tick, e.Victim.SteamID),
	})
}

func (a *Player) entry(p events.PlayerRef) *model.PlayerMatchRecord {
	s, ok := a.stats[p.SteamID]
	if !ok {
		s = &model.PlayerMatchRecord{SteamID: p.SteamID, Bot: isBot(p.SteamID)}
		a.stats[p.SteamID] = s
	}
	if p.Name != "" {
		s.Name = p.Name
	}
	return s
}

func (a *Player) Records() []model.PlayerMatchRecord {
	out := make([]model.PlayerMatchRecord, 0, len(a.stats))
	for _, s := range a.stats {
		rec := *s
		rec.ADR = model.ComputeADR(rec.Damage, rec.RoundsPlayed)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SteamID < out[j].SteamID })
	return out
}
