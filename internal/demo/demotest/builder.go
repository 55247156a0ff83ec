// Package demotest builds synthetic CS2 demo streams for tests.
package demotest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/pable/go-cs-demostats/internal/demo"
)

// Message is one packet-embedded message.
type Message struct {
	Type demo.MessageType
	Body []byte
}

// Keys holds game event values by key name. Missing keys encode as zero.
type Keys map[string]any

// Builder accumulates a demo stream in memory.
type Builder struct {
	buf      bytes.Buffer
	compress bool
	events   map[string]Descriptor
}

// New starts a stream with a valid magic and a DEM_FileHeader frame for
// mapName.
func New(mapName string) *Builder {
	b := Raw(demo.Magic)
	b.FileHeader(demo.Magic, mapName)
	return b
}

// Raw starts a stream with an arbitrary 8-byte stamp and no header frame.
func Raw(magic string) *Builder {
	b := &Builder{events: make(map[string]Descriptor)}
	for i, d := range StandardEvents {
		d.ID = 100 + i
		b.events[d.Name] = d
	}
	b.buf.WriteString(magic)
	var offsets [8]byte
	b.buf.Write(offsets[:])
	return b
}

// Compressed makes subsequent frames snappy-compressed.
func (b *Builder) Compressed(on bool) *Builder {
	b.compress = on
	return b
}

// FileHeader writes a DEM_FileHeader frame.
func (b *Builder) FileHeader(stamp, mapName string) *Builder {
	var p []byte
	p = appendString(p, 1, stamp)
	p = appendVarint(p, 2, 14000)
	p = appendString(p, 3, "Valve CS2 Server")
	p = appendString(p, 4, "SourceTV Demo")
	p = appendString(p, 5, mapName)
	p = appendString(p, 6, "csgo")
	p = appendVarint(p, 13, 10023)
	return b.Frame(demo.CmdFileHeader, -1, p)
}

// Frame appends a raw frame. A negative tick is written as 0xFFFFFFFF.
func (b *Builder) Frame(kind demo.CommandKind, tick int, payload []byte) *Builder {
	if b.compress {
		payload = snappy.Encode(nil, payload)
		kind |= demo.FlagCompressed
	}
	var hdr []byte
	hdr = binary.AppendUvarint(hdr, uint64(uint32(kind)))
	hdr = binary.AppendUvarint(hdr, uint64(uint32(int32(tick))))
	hdr = binary.AppendUvarint(hdr, uint64(len(payload)))
	b.buf.Write(hdr)
	b.buf.Write(payload)
	return b
}

// Packet writes a DEM_Packet frame carrying msgs.
func (b *Builder) Packet(tick int, msgs ...Message) *Builder {
	return b.Frame(demo.CmdPacket, tick, PacketPayload(msgs...))
}

// FullPacket writes a DEM_FullPacket frame carrying msgs.
func (b *Builder) FullPacket(tick int, msgs ...Message) *Builder {
	var p []byte
	p = protowire.AppendTag(p, 2, protowire.BytesType)
	p = protowire.AppendBytes(p, PacketPayload(msgs...))
	return b.Frame(demo.CmdFullPacket, tick, p)
}

// EventList writes the game event descriptor table.
func (b *Builder) EventList(tick int) *Builder {
	return b.Packet(tick, b.EventListMessage())
}

// Event writes a packet holding a single game event.
func (b *Builder) Event(tick int, name string, keys Keys) *Builder {
	return b.Packet(tick, b.EventMessage(name, keys))
}

// FileInfo writes a DEM_FileInfo frame.
func (b *Builder) FileInfo(tick, playbackTicks int, seconds float32) *Builder {
	var p []byte
	p = protowire.AppendTag(p, 1, protowire.Fixed32Type)
	p = protowire.AppendFixed32(p, math.Float32bits(seconds))
	p = appendVarint(p, 2, uint64(playbackTicks))
	p = appendVarint(p, 3, uint64(playbackTicks/2))
	return b.Frame(demo.CmdFileInfo, tick, p)
}

// Stop writes DEM_Stop.
func (b *Builder) Stop(tick int) *Builder {
	return b.Frame(demo.CmdStop, tick, nil)
}

// Bytes returns the stream built so far.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// PacketPayload encodes msgs as a CDemoPacket whose data is the bitstream.
func PacketPayload(msgs ...Message) []byte {
	var w bitWriter
	for _, m := range msgs {
		w.writeUBitVar(uint32(m.Type))
		w.writeVarint32(uint32(len(m.Body)))
		w.writeBytes(m.Body)
	}
	var p []byte
	p = protowire.AppendTag(p, 3, protowire.BytesType)
	p = protowire.AppendBytes(p, w.buf)
	return p
}

// EventListMessage encodes every known descriptor.
func (b *Builder) EventListMessage() Message {
	var body []byte
	for _, d := range StandardEvents {
		d = b.events[d.Name]
		var desc []byte
		desc = appendVarint(desc, 1, uint64(d.ID))
		desc = appendString(desc, 2, d.Name)
		for _, k := range d.Keys {
			var key []byte
			key = appendVarint(key, 1, uint64(k.Type))
			key = appendString(key, 2, k.Name)
			desc = appendMessage(desc, 3, key)
		}
		body = appendMessage(body, 1, desc)
	}
	return Message{Type: demo.MsgGameEventList, Body: body}
}

// EventMessage encodes one game event. It panics on an unknown name so
// tests fail loudly on typos.
func (b *Builder) EventMessage(name string, keys Keys) Message {
	d, ok := b.events[name]
	if !ok {
		panic(fmt.Sprintf("demotest: no descriptor for %q", name))
	}
	var body []byte
	body = appendString(body, 1, name)
	body = appendVarint(body, 2, uint64(d.ID))
	for _, k := range d.Keys {
		body = appendMessage(body, 3, encodeKey(k, keys[k.Name]))
	}
	return Message{Type: demo.MsgGameEvent, Body: body}
}

func encodeKey(k Key, v any) []byte {
	var p []byte
	p = appendVarint(p, 1, uint64(k.Type))
	switch k.Type {
	case demo.KeyString:
		s, _ := v.(string)
		p = appendString(p, 2, s)
	case demo.KeyFloat:
		p = protowire.AppendTag(p, 3, protowire.Fixed32Type)
		p = protowire.AppendFixed32(p, math.Float32bits(float32(toFloat(v))))
	case demo.KeyLong, demo.KeyController, demo.KeyPawn:
		p = appendVarint(p, 4, uint64(int64(toInt(v))))
	case demo.KeyShort:
		p = appendVarint(p, 5, uint64(int64(toInt(v))))
	case demo.KeyByte:
		p = appendVarint(p, 6, uint64(int64(toInt(v))))
	case demo.KeyBool:
		bv, _ := v.(bool)
		p = appendVarint(p, 7, protowire.EncodeBool(bv))
	case demo.KeyUint64:
		p = appendVarint(p, 8, toUint64(v))
	}
	return p
}

// ServerInfo encodes svc_ServerInfo.
func ServerInfo(tickInterval float32, mapName string) Message {
	var p []byte
	p = protowire.AppendTag(p, 13, protowire.Fixed32Type)
	p = protowire.AppendFixed32(p, math.Float32bits(tickInterval))
	p = appendString(p, 15, mapName)
	p = appendString(p, 17, "Valve CS2 Server")
	return Message{Type: demo.MsgServerInfo, Body: p}
}

// SayText2 encodes a chat user message. entityIndex is the sender slot + 1.
func SayText2(entityIndex int, allChat bool, name, text string) Message {
	msgName := "Cstrike_Chat_T"
	if allChat {
		msgName = "Cstrike_Chat_All"
	}
	var p []byte
	p = appendVarint(p, 1, uint64(entityIndex))
	p = appendVarint(p, 2, 1)
	p = appendString(p, 3, msgName)
	p = appendString(p, 4, name)
	p = appendString(p, 5, text)
	return Message{Type: demo.MsgSayText2, Body: p}
}

// VoiceData encodes svc_VoiceData.
func VoiceData(slot int, xuid uint64, audio []byte) Message {
	var a []byte
	a = appendVarint(a, 1, 1)
	a = protowire.AppendTag(a, 2, protowire.BytesType)
	a = protowire.AppendBytes(a, audio)

	var p []byte
	p = appendMessage(p, 1, a)
	p = appendVarint(p, 2, uint64(slot))
	p = protowire.AppendTag(p, 4, protowire.Fixed64Type)
	p = protowire.AppendFixed64(p, xuid)
	return Message{Type: demo.MsgVoiceData, Body: p}
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int:
		return uint64(n)
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
