package decoder

import (
	"log/slog"

	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/pbwire"
)

type keyDesc struct {
	name string
	typ  int
}

type descriptor struct {
	id   int
	name string
	keys []keyDesc
}

type keyValue struct {
	typ   int
	str   string
	float float32
	num   int64
	u64   uint64
	flag  bool
}

// gameEvent is a legacy game event with its keys resolved by name.
type gameEvent struct {
	name string
	keys map[string]keyValue
}

func (g gameEvent) has(key string) bool {
	_, ok := g.keys[key]
	return ok
}

func (g gameEvent) int(key string) int {
	v := g.keys[key]
	switch v.typ {
	case demo.KeyBool:
		if v.flag {
			return 1
		}
		return 0
	case demo.KeyUint64:
		return int(v.u64)
	case demo.KeyFloat:
		return int(v.float)
	}
	return int(v.num)
}

func (g gameEvent) str(key string) string {
	return g.keys[key].str
}

func (g gameEvent) float(key string) float64 {
	v := g.keys[key]
	if v.typ == demo.KeyFloat {
		return float64(v.float)
	}
	return float64(v.num)
}

func (g gameEvent) bool(key string) bool {
	v := g.keys[key]
	if v.typ == demo.KeyBool {
		return v.flag
	}
	return v.num != 0
}

func (g gameEvent) uint64(key string) uint64 {
	v := g.keys[key]
	if v.typ == demo.KeyUint64 {
		return v.u64
	}
	return uint64(v.num)
}

func (d *Decoder) handleEventList(body []byte) error {
	return pbwire.Walk(body, func(f pbwire.Field) error {
		if f.Num != 1 {
			return nil
		}
		var desc descriptor
		err := pbwire.Walk(f.Bytes, func(f pbwire.Field) error {
			switch f.Num {
			case 1:
				desc.id = f.Int()
			case 2:
				desc.name = f.String()
			case 3:
				var k keyDesc
				if err := pbwire.Walk(f.Bytes, func(f pbwire.Field) error {
					switch f.Num {
					case 1:
						k.typ = f.Int()
					case 2:
						k.name = f.String()
					}
					return nil
				}); err != nil {
					return err
				}
				desc.keys = append(desc.keys, k)
			}
			return nil
		})
		if err != nil {
			return err
		}
		d.descriptors[desc.id] = desc
		return nil
	})
}

func (d *Decoder) handleGameEvent(body []byte) error {
	var (
		name    string
		id      int
		rawKeys [][]byte
	)
	err := pbwire.Walk(body, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			name = f.String()
		case 2:
			id = f.Int()
		case 3:
			rawKeys = append(rawKeys, f.Bytes)
		}
		return nil
	})
	if err != nil {
		return err
	}

	desc, known := d.descriptors[id]
	if name == "" {
		name = desc.name
	}
	if name == "" {
		d.warn(&UnknownEventWarning{ID: id, Tick: d.tick})
		return nil
	}

	handler, ok := gameEventHandlers[name]
	if !ok {
		if _, quiet := quietEvents[name]; !quiet {
			w := &UnknownEventWarning{Name: name, ID: id, Tick: d.tick}
			if !d.unknownSeen[name] {
				d.unknownSeen[name] = true
				d.logger.Warn("Skipping unknown game event", slog.String("event", name), slog.Int("tick", d.tick))
			}
			d.warn(w)
		}
		return nil
	}

	ev := gameEvent{name: name, keys: make(map[string]keyValue, len(rawKeys))}
	for i, raw := range rawKeys {
		v, err := decodeKeyValue(raw)
		if err != nil {
			return err
		}
		if known && i < len(desc.keys) {
			ev.keys[desc.keys[i].name] = v
		}
	}
	return handler(d, ev)
}

func decodeKeyValue(raw []byte) (keyValue, error) {
	var v keyValue
	err := pbwire.Walk(raw, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			v.typ = f.Int()
		case 2:
			v.str = f.String()
		case 3:
			v.float = f.Float32()
		case 4, 5, 6:
			v.num = int64(int32(f.Varint))
		case 7:
			v.flag = f.Bool()
		case 8:
			v.u64 = f.Varint
		}
		return nil
	})
	return v, err
}
