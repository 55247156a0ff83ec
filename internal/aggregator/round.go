package aggregator

import (
	"sort"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/tracker"
)

// Round writes one RoundRecord per round end. Unknown reason codes are an
// error.
type Round struct {
	rounds []model.RoundRecord
}

func NewRound() *Round { return &Round{} }

func (a *Round) Reset() { a.rounds = nil }

func (a *Round) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	e, ok := ev.(events.RoundEnd)
	if !ok || e.Reason == model.ReasonGameCommencing {
		return nil
	}
	reason, err := model.EndReasonFromCode(e.Reason, e.Tick)
	if err != nil {
		return err
	}
	ct, t := st.Score()
	a.rounds = append(a.rounds, model.RoundRecord{
		RoundNumber:  st.RoundsPlayed(),
		WinnerSide:   e.Winner,
		EndReason:    reason,
		ReasonCode:   e.Reason,
		CTScoreAfter: ct,
		TScoreAfter:  t,
		BombPlanted:  st.BombPlanted(),
		BombDefused:  st.BombDefused(),
		StartTick:    st.RoundStartTick(),
		EndTick:      e.Tick,
	})
	return nil
}

func (a *Round) Records() []model.RoundRecord {
	return append([]model.RoundRecord(nil), a.rounds...)
}

type clutch struct {
	player    events.PlayerRef
	team      model.Team
	opponents int
	kills     int
}

// Clutch detects the first player of a round left alone against one or
// more opponents and records whether their side won.
type Clutch struct {
	current *clutch
	decided bool
	records []model.ClutchRecord
}

func NewClutch() *Clutch { return &Clutch{} }

func (a *Clutch) Reset() {
	a.current = nil
	a.decided = false
	a.records = nil
}

func (a *Clutch) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	switch e := ev.(type) {
	case events.RoundStart:
		a.current = nil
		a.decided = false
	case events.PlayerDeath:
		if a.current != nil && isEnemyKill(st, e) && e.Attacker.SteamID == a.current.player.SteamID {
			a.current.kills++
		}
		if !a.decided {
			a.detect(e.Tick, st)
		}
	case events.RoundEnd:
		if e.Reason == model.ReasonGameCommencing {
			return nil
		}
		if c := a.current; c != nil {
			a.records = append(a.records, model.ClutchRecord{
				RoundNumber: st.RoundsPlayed(),
				SteamID:     c.player.SteamID,
				Name:        c.player.Name,
				Team:        c.team,
				Opponents:   c.opponents,
				Kills:       c.kills,
				Won:         e.Winner == c.team,
			})
		}
		a.current = nil
		a.decided = true
	}
	return nil
}

func (a *Clutch) detect(tick int, st tracker.View) {
	for _, team := range []model.Team{model.TeamT, model.TeamCT} {
		opponents := st.AliveCount(team.Opponent())
		if st.AliveCount(team) != 1 || opponents == 0 {
			continue
		}
		for _, id := range st.Roster(team) {
			if !st.IsAlive(id) {
				continue
			}
			a.current = &clutch{
				player:    events.PlayerRef{SteamID: id, Name: st.Name(id)},
				team:      st.TeamAt(tick, id),
				opponents: opponents,
			}
			a.decided = true
			return
		}
	}
}

func (a *Clutch) Records() []model.ClutchRecord {
	return append([]model.ClutchRecord(nil), a.records...)
}

// MultiKill counts rounds in which a player got two or more enemy kills.
type MultiKill struct {
	round  map[uint64]int
	names  map[uint64]string
	totals map[uint64]*model.MultiKillRecord
}

func NewMultiKill() *MultiKill {
	a := &MultiKill{}
	a.Reset()
	return a
}

func (a *MultiKill) Reset() {
	a.round = make(map[uint64]int)
	a.names = make(map[uint64]string)
	a.totals = make(map[uint64]*model.MultiKillRecord)
}

func (a *MultiKill) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	switch e := ev.(type) {
	case events.RoundStart:
		tally(a.totals, a.round, a.names)
		clear(a.round)
	case events.PlayerDeath:
		if isEnemyKill(st, e) {
			a.round[e.Attacker.SteamID]++
			a.names[e.Attacker.SteamID] = e.Attacker.Name
		}
	}
	return nil
}

func tally(totals map[uint64]*model.MultiKillRecord, round map[uint64]int, names map[uint64]string) {
	for id, n := range round {
		if n < 2 {
			continue
		}
		r, ok := totals[id]
		if !ok {
			r = &model.MultiKillRecord{SteamID: id}
			totals[id] = r
		}
		r.Name = names[id]
		switch {
		case n == 2:
			r.TwoK++
		case n == 3:
			r.ThreeK++
		case n == 4:
			r.FourK++
		default:
			r.Aces++
		}
	}
}

// Records includes the round in progress.
func (a *MultiKill) Records() []model.MultiKillRecord {
	totals := make(map[uint64]*model.MultiKillRecord, len(a.totals))
	for id, r := range a.totals {
		cp := *r
		totals[id] = &cp
	}
	tally(totals, a.round, a.names)

	out := make([]model.MultiKillRecord, 0, len(totals))
	for _, r := range totals {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SteamID < out[j].SteamID })
	return out
}

// FirstBlood keeps the opening kill of every round.
type FirstBlood struct {
	seen    map[int]bool
	records []model.FirstBloodRecord
}

func NewFirstBlood() *FirstBlood {
	a := &FirstBlood{}
	a.Reset()
	return a
}

func (a *FirstBlood) Reset() {
	a.seen = make(map[int]bool)
	a.records = nil
}

func (a *FirstBlood) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	e, ok := ev.(events.PlayerDeath)
	if !ok || !isEnemyKill(st, e) {
		return nil
	}
	round := st.CurrentRound()
	if a.seen[round] {
		return nil
	}
	a.seen[round] = true
	a.records = append(a.records, model.FirstBloodRecord{
		RoundNumber: round,
		Tick:        e.Tick,
		Killer:      participant(st, e.Tick, *e.Attacker),
		Victim:      participant(st, e.Tick, e.Victim),
		Weapon:      e.Weapon,
		Assister:    optionalParticipant(st, e.Tick, e.Assister),
	})
	return nil
}

func (a *FirstBlood) Records() []model.FirstBloodRecord {
	return append([]model.FirstBloodRecord(nil), a.records...)
}
