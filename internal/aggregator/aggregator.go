// Package aggregator holds the stat reducers fed by the event stream. Each
// aggregator owns its accumulator, reads match state only through
// tracker.View and never sees another aggregator's data.
package aggregator

import (
	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/tracker"
)

// Aggregator consumes one event at a time. The tracker has already applied
// ev when Apply is called.
type Aggregator interface {
	Apply(ev events.Event, st tracker.View) error
	Reset()
}

// active applies the preconditions every aggregator shares: MatchStart
// discards what was gathered so far, warmup events are ignored.
func active(a Aggregator, ev events.Event, st tracker.View) bool {
	if _, ok := ev.(events.MatchStart); ok {
		a.Reset()
		return false
	}
	return !st.IsWarmup(ev.Header().Tick)
}

// Results are the finalized accumulators of a Set.
type Results struct {
	Rounds      []model.RoundRecord
	Kills       []model.KillRecord
	Weapons     []model.WeaponStatRecord
	Flashes     []model.FlashStatRecord
	Damage      []model.DamageStatRecord
	Players     []model.PlayerMatchRecord
	Clutches    []model.ClutchRecord
	MultiKills  []model.MultiKillRecord
	FirstBloods []model.FirstBloodRecord
	Chat        []model.ChatRecord
	Voice       []model.VoiceStatRecord

	BlindEvents         int
	UnattributedFlashes int
}

// Set fans every event out to all aggregators in a fixed order.
type Set struct {
	Flash      *Flash
	Kill       *Kill
	Round      *Round
	Weapon     *Weapon
	Damage     *Damage
	Chat       *Chat
	Voice      *Voice
	Player     *Player
	Clutch     *Clutch
	MultiKill  *MultiKill
	FirstBlood *FirstBlood
}

func NewSet() *Set {
	return &Set{
		Flash:      NewFlash(),
		Kill:       NewKill(),
		Round:      NewRound(),
		Weapon:     NewWeapon(),
		Damage:     NewDamage(),
		Chat:       NewChat(),
		Voice:      NewVoice(),
		Player:     NewPlayer(),
		Clutch:     NewClutch(),
		MultiKill:  NewMultiKill(),
		FirstBlood: NewFirstBlood(),
	}
}

func (s *Set) all() []Aggregator {
	return []Aggregator{
		s.Flash, s.Kill, s.Round, s.Weapon, s.Damage, s.Chat,
		s.Voice, s.Player, s.Clutch, s.MultiKill, s.FirstBlood,
	}
}

// Apply stops at the first aggregator error; the caller must treat it as
// fatal for the demo.
func (s *Set) Apply(ev events.Event, st tracker.View) error {
	for _, a := range s.all() {
		if err := a.Apply(ev, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set) Reset() {
	for _, a := range s.all() {
		a.Reset()
	}
}

func (s *Set) Results() Results {
	return Results{
		Rounds:              s.Round.Records(),
		Kills:               s.Kill.Records(),
		Weapons:             s.Weapon.Records(),
		Flashes:             s.Flash.Records(),
		Damage:              s.Damage.Records(),
		Players:             s.Player.Records(),
		Clutches:            s.Clutch.Records(),
		MultiKills:          s.MultiKill.Records(),
		FirstBloods:         s.FirstBlood.Records(),
		Chat:                s.Chat.Records(),
		Voice:               s.Voice.Records(),
		BlindEvents:         s.Flash.BlindEvents(),
		UnattributedFlashes: s.Flash.Unattributed(),
	}
}

// participant captures a player with their name as carried by the event
// and their side at tick.
func participant(st tracker.View, tick int, p events.PlayerRef) model.Participant {
	return model.Participant{SteamID: p.SteamID, Name: p.Name, Team: st.TeamAt(tick, p.SteamID)}
}

func optionalParticipant(st tracker.View, tick int, p *events.PlayerRef) *model.Participant {
	if p == nil {
		return nil
	}
	pp := participant(st, tick, *p)
	return &pp
}

// isUtilityWeapon reports whether damage from weapon counts as utility damage.
func isUtilityWeapon(weapon string) bool {
	g, ok := events.GrenadeFromWeapon(weapon)
	return ok && (g == events.GrenadeHE || g == events.GrenadeMolotov)
}

// steamID64Base is the smallest individual-account SteamID64. Anything
// below it is a synthetic bot id.
const steamID64Base = 76561197960265728

func isBot(steamID uint64) bool {
	return steamID < steamID64Base
}

// isEnemyKill reports whether a death counts for the attacker.
func isEnemyKill(st tracker.View, e events.PlayerDeath) bool {
	return e.Attacker != nil && st.Relation(e.Tick, e.Attacker.SteamID, e.Victim.SteamID) == tracker.RelationEnemy
}
