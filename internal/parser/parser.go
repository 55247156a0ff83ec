// Package parser adapts demoinfocs-golang into the same pull-based event
// source as the native decoder, for cross-checking and for demos the native
// decoder cannot read.
package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	demoinfocs "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs"
	common "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/common"
	dem "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/events"
	"github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/msgs2"

	"github.com/pable/go-cs-demostats/internal/decoder"
	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
)

// Source translates demoinfocs callbacks into events. Handlers only append
// to a queue; Next drives the parser one frame at a time and drains it.
type Source struct {
	p      demoinfocs.Parser
	logger *slog.Logger

	queue    []events.Event
	seq      int
	lastTick int
	err      error
	done     bool

	// side last emitted per player, to avoid repeating TeamAssign snapshots
	sides map[uint64]model.Team
}

// NewSource wraps a raw demo stream.
func NewSource(r io.Reader, logger *slog.Logger) *Source {
	s := &Source{
		p:      demoinfocs.NewParser(r),
		logger: logger,
		sides:  make(map[uint64]model.Team),
	}
	s.register()
	return s
}

func (s *Source) Engine() string {
	return "demoinfocs"
}

func (s *Source) ReadHeader() (demo.Header, error) {
	h, err := s.p.ParseHeader()
	if err != nil {
		return demo.Header{}, &demo.CorruptHeaderError{Reason: "demoinfocs", Err: err}
	}
	return demo.Header{
		NetworkProtocol: h.NetworkProtocol,
		ServerName:      h.ServerName,
		ClientName:      h.ClientName,
		MapName:         h.MapName,
		GameDirectory:   h.GameDirectory,
	}, nil
}

// Next parses frames until at least one event is queued.
func (s *Source) Next() ([]events.Event, error) {
	for len(s.queue) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		if s.done {
			return nil, io.EOF
		}
		more, err := s.parseFrame()
		if err != nil {
			if errors.Is(err, demoinfocs.ErrUnexpectedEndOfDemo) {
				return nil, errors.Join(demo.ErrTruncated, err)
			}
			return nil, fmt.Errorf("demoinfocs: %w", err)
		}
		if !more {
			s.done = true
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := s.queue
	s.queue = nil
	return out, nil
}

func (s *Source) Close() error {
	s.p.Close()
	return nil
}

func (s *Source) parseFrame() (more bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return s.p.ParseNextFrame()
}

func (s *Source) meta() events.Meta {
	tick := s.p.GameState().IngameTick()
	if tick < s.lastTick && s.err == nil {
		s.err = &decoder.OrderingViolationError{Prev: s.lastTick, Tick: tick, Kind: demo.CmdPacket}
	}
	if tick > s.lastTick {
		s.lastTick = tick
	}
	s.seq++
	return events.Meta{Tick: tick, Seq: s.seq, Warmup: s.p.GameState().IsWarmupPeriod()}
}

func (s *Source) push(ev events.Event) {
	s.queue = append(s.queue, ev)
}

func (s *Source) register() {
	p := s.p

	p.RegisterNetMessageHandler(func(m *msgs2.CSVCMsg_ServerInfo) {
		s.push(events.ServerInfo{
			Meta:         s.meta(),
			TickInterval: float64(m.GetTickInterval()),
			MapName:      m.GetMapName(),
			HostName:     m.GetHostName(),
		})
	})

	p.RegisterNetMessageHandler(func(m *msgs2.CSVCMsg_VoiceData) {
		speaker := s.playerBySteamID(m.GetXuid())
		if speaker == nil {
			return
		}
		s.push(events.VoiceData{
			Meta:    s.meta(),
			Speaker: ref(speaker),
			Bytes:   len(m.GetAudio().GetVoiceData()),
			Format:  decoder.VoiceFormat(int(m.GetAudio().GetFormat())),
		})
	})

	p.RegisterEventHandler(func(dem.MatchStart) {
		s.push(events.MatchStart{Meta: s.meta()})
	})

	// Snapshot sides at every round start; team change events are not
	// always present for players who were already seated.
	p.RegisterEventHandler(func(e dem.RoundStart) {
		meta := s.meta()
		for _, pl := range p.GameState().Participants().Playing() {
			if pl == nil {
				continue
			}
			team := teamFromCommon(pl.Team)
			r := ref(pl)
			if s.sides[r.SteamID] == team {
				continue
			}
			s.sides[r.SteamID] = team
			s.push(events.TeamAssign{Meta: s.nextSeq(meta), Player: r, Team: team})
		}
		s.push(events.RoundStart{Meta: s.nextSeq(meta), TimeLimit: e.TimeLimit, Objective: e.Objective})
	})

	p.RegisterEventHandler(func(e dem.RoundEnd) {
		s.push(events.RoundEnd{
			Meta:    s.meta(),
			Winner:  teamFromCommon(e.Winner),
			Reason:  int(e.Reason),
			Message: e.Message,
		})
	})

	p.RegisterEventHandler(func(e dem.PlayerConnect) {
		if e.Player == nil {
			return
		}
		s.push(events.PlayerConnect{Meta: s.meta(), Player: ref(e.Player)})
	})

	p.RegisterEventHandler(func(e dem.PlayerDisconnected) {
		if e.Player == nil {
			return
		}
		s.push(events.PlayerDisconnect{Meta: s.meta(), Player: ref(e.Player)})
	})

	p.RegisterEventHandler(func(e dem.PlayerNameChange) {
		if e.Player == nil {
			return
		}
		r := ref(e.Player)
		r.Name = e.NewName
		s.push(events.NameChange{Meta: s.meta(), Player: r, OldName: e.OldName, NewName: e.NewName})
	})

	p.RegisterEventHandler(func(e dem.PlayerTeamChange) {
		if e.Player == nil {
			return
		}
		r := ref(e.Player)
		team := teamFromCommon(e.NewTeam)
		s.sides[r.SteamID] = team
		s.push(events.TeamAssign{Meta: s.meta(), Player: r, Team: team, OldTeam: teamFromCommon(e.OldTeam)})
	})

	p.RegisterEventHandler(func(e dem.Kill) {
		if e.Victim == nil {
			return
		}
		hitGroup := model.HitGroupGeneric
		if e.IsHeadshot {
			hitGroup = model.HitGroupHead
		}
		s.push(events.PlayerDeath{
			Meta:          s.meta(),
			Victim:        ref(e.Victim),
			Attacker:      optionalRef(e.Killer),
			Assister:      optionalRef(e.Assister),
			Weapon:        weaponName(e.Weapon),
			HitGroup:      hitGroup,
			Headshot:      e.IsHeadshot,
			Penetrated:    e.PenetratedObjects,
			NoScope:       e.NoScope,
			ThroughSmoke:  e.ThroughSmoke,
			AttackerBlind: e.AttackerBlind,
			AssistedFlash: e.AssistedFlash,
		})
	})

	p.RegisterEventHandler(func(e dem.PlayerHurt) {
		if e.Player == nil {
			return
		}
		s.push(events.PlayerHurt{
			Meta:         s.meta(),
			Victim:       ref(e.Player),
			Attacker:     optionalRef(e.Attacker),
			Weapon:       weaponName(e.Weapon),
			HealthDamage: e.HealthDamage,
			ArmorDamage:  e.ArmorDamage,
			Health:       e.Health,
			Armor:        e.Armor,
			HitGroup:     model.HitGroup(e.HitGroup),
		})
	})

	p.RegisterEventHandler(func(e dem.PlayerFlashed) {
		if e.Player == nil {
			return
		}
		entityID := 0
		if e.Projectile != nil && e.Projectile.Entity != nil {
			entityID = e.Projectile.Entity.ID()
		}
		s.push(events.PlayerFlashed{
			Meta:          s.meta(),
			Victim:        ref(e.Player),
			Attacker:      optionalRef(e.Attacker),
			EntityID:      entityID,
			BlindDuration: e.FlashDuration().Seconds(),
		})
	})

	p.RegisterEventHandler(func(e dem.GrenadeProjectileThrow) {
		proj := e.Projectile
		if proj == nil || proj.Thrower == nil || proj.WeaponInstance == nil {
			return
		}
		g, ok := grenadeFromCommon(proj.WeaponInstance.Type)
		if !ok {
			return
		}
		entityID := 0
		if proj.Entity != nil {
			entityID = proj.Entity.ID()
		}
		s.push(events.GrenadeThrown{Meta: s.meta(), Thrower: ref(proj.Thrower), Grenade: g, EntityID: entityID})
	})

	p.RegisterEventHandler(func(e dem.FlashExplode) { s.detonated(e.GrenadeEvent) })
	p.RegisterEventHandler(func(e dem.HeExplode) { s.detonated(e.GrenadeEvent) })
	p.RegisterEventHandler(func(e dem.SmokeStart) { s.detonated(e.GrenadeEvent) })

	p.RegisterEventHandler(func(e dem.WeaponFire) {
		if e.Shooter == nil {
			return
		}
		s.push(events.WeaponFire{Meta: s.meta(), Shooter: ref(e.Shooter), Weapon: weaponName(e.Weapon)})
	})

	p.RegisterEventHandler(func(e dem.BombPlanted) {
		if e.Player == nil {
			return
		}
		s.push(events.BombPlanted{Meta: s.meta(), Player: ref(e.Player), Site: int(e.Site)})
	})

	p.RegisterEventHandler(func(e dem.BombDefused) {
		if e.Player == nil {
			return
		}
		s.push(events.BombDefused{Meta: s.meta(), Player: ref(e.Player), Site: int(e.Site)})
	})

	p.RegisterEventHandler(func(e dem.RoundMVPAnnouncement) {
		if e.Player == nil {
			return
		}
		s.push(events.RoundMVP{Meta: s.meta(), Player: ref(e.Player), Reason: int(e.Reason)})
	})

	p.RegisterEventHandler(func(e dem.BombExplode) {
		s.push(events.BombExploded{Meta: s.meta(), Site: int(e.Site)})
	})

	p.RegisterEventHandler(func(e dem.ChatMessage) {
		if e.Sender == nil {
			return
		}
		s.push(events.ChatMessage{Meta: s.meta(), Sender: ref(e.Sender), Text: e.Text, AllChat: e.IsChatAll})
	})
}

func (s *Source) detonated(e dem.GrenadeEvent) {
	g, ok := grenadeFromCommon(e.GrenadeType)
	if !ok {
		return
	}
	s.push(events.GrenadeDetonated{
		Meta:     s.meta(),
		Thrower:  optionalRef(e.Thrower),
		Grenade:  g,
		EntityID: e.GrenadeEntityID,
	})
}

// nextSeq reuses meta's tick for several events emitted from one callback.
func (s *Source) nextSeq(meta events.Meta) events.Meta {
	s.seq++
	meta.Seq = s.seq
	return meta
}

func (s *Source) playerBySteamID(id uint64) *common.Player {
	if id == 0 {
		return nil
	}
	for _, pl := range s.p.GameState().Participants().All() {
		if pl != nil && pl.SteamID64 == id {
			return pl
		}
	}
	return nil
}

func ref(pl *common.Player) events.PlayerRef {
	id := pl.SteamID64
	if pl.IsBot || id == 0 {
		id = uint64(pl.UserID) + 1
	}
	return events.PlayerRef{SteamID: id, Name: pl.Name, Slot: pl.UserID, Bot: pl.IsBot}
}

func optionalRef(pl *common.Player) *events.PlayerRef {
	if pl == nil {
		return nil
	}
	r := ref(pl)
	return &r
}

func weaponName(w *common.Equipment) string {
	if w == nil {
		return "world"
	}
	if g, ok := grenadeFromCommon(w.Type); ok {
		return string(g)
	}
	return w.Type.String()
}

func teamFromCommon(t common.Team) model.Team {
	switch t {
	case common.TeamTerrorists:
		return model.TeamT
	case common.TeamCounterTerrorists:
		return model.TeamCT
	case common.TeamSpectators:
		return model.TeamSpectators
	default:
		return model.TeamUnknown
	}
}

func grenadeFromCommon(t common.EquipmentType) (events.Grenade, bool) {
	switch t {
	case common.EqFlash:
		return events.GrenadeFlash, true
	case common.EqHE:
		return events.GrenadeHE, true
	case common.EqSmoke:
		return events.GrenadeSmoke, true
	case common.EqMolotov, common.EqIncendiary:
		return events.GrenadeMolotov, true
	case common.EqDecoy:
		return events.GrenadeDecoy, true
	}
	return "", false
}
