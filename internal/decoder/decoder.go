// Package decoder turns demo frames into the typed event stream consumed by
// the match tracker and the aggregators.
//
// Player identities come only from the player_connect and player_info game
// events. The userinfo string table is not parsed, so players who were
// already connected when recording began (POV demos, demos started mid
// match) stay unknown and their events are dropped with an
// UnresolvedPlayerWarning. The demoinfocs engine reads the string table and
// handles those demos.
package decoder

import (
	"fmt"
	"log/slog"

	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/events"
)

// Decoder is stateful: it keeps the game event descriptor table, the player
// registry and the warmup flag across frames. One Decoder serves one demo.
type Decoder struct {
	logger  *slog.Logger
	warn    func(error)
	players *registry

	descriptors map[int]descriptor
	unknownSeen map[string]bool

	warmup   bool
	lastTick int
	tick     int
	seq      int
	out      []events.Event
}

// New creates a decoder. warn receives every recoverable problem
// (UnknownEventWarning, UnresolvedPlayerWarning); it may be nil.
func New(logger *slog.Logger, warn func(error)) *Decoder {
	if warn == nil {
		warn = func(error) {}
	}
	return &Decoder{
		logger:      logger,
		warn:        warn,
		players:     newRegistry(),
		descriptors: make(map[int]descriptor),
		unknownSeen: make(map[string]bool),
	}
}

// Decode returns the events carried by cmd, in order. Frames other than
// packets yield no events. A packet whose tick is lower than the previous
// packet's fails with *OrderingViolationError.
func (d *Decoder) Decode(cmd demo.Command) ([]events.Event, error) {
	var (
		data []byte
		err  error
	)
	switch cmd.Kind {
	case demo.CmdPacket, demo.CmdSignonPacket:
		data, err = packetData(cmd.Payload)
	case demo.CmdFullPacket:
		data, err = fullPacketData(cmd.Payload)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s frame at tick %d: %w", cmd.Kind, cmd.Tick, err)
	}

	if cmd.Tick < d.lastTick {
		return nil, &OrderingViolationError{Prev: d.lastTick, Tick: cmd.Tick, Kind: cmd.Kind}
	}
	d.lastTick = cmd.Tick
	d.tick = cmd.Tick
	d.out = nil

	if err := splitMessages(data, d.handleMessage); err != nil {
		return nil, fmt.Errorf("%s frame at tick %d: %w", cmd.Kind, cmd.Tick, err)
	}
	return d.out, nil
}

// Warmup reports the decoder's current warmup flag.
func (d *Decoder) Warmup() bool {
	return d.warmup
}

func (d *Decoder) handleMessage(typ demo.MessageType, body []byte) error {
	switch typ {
	case demo.MsgGameEventList:
		return d.handleEventList(body)
	case demo.MsgGameEvent:
		return d.handleGameEvent(body)
	case demo.MsgSayText2:
		return d.handleSayText2(body)
	case demo.MsgServerInfo:
		return d.handleServerInfo(body)
	case demo.MsgVoiceData:
		return d.handleVoiceData(body)
	}
	return nil
}

func (d *Decoder) meta() events.Meta {
	d.seq++
	return events.Meta{Tick: d.tick, Seq: d.seq, Warmup: d.warmup}
}

func (d *Decoder) emit(ev events.Event) {
	d.out = append(d.out, ev)
}
