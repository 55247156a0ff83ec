// Package pbwire walks protobuf-encoded messages field by field without
// generated types.
package pbwire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformed = errors.New("malformed protobuf")

// Field is one decoded key/value pair. Only the member matching Type is set.
type Field struct {
	Num     protowire.Number
	Type    protowire.Type
	Varint  uint64
	Fixed32 uint32
	Fixed64 uint64
	Bytes   []byte
}

func (f Field) Int() int {
	return int(int32(f.Varint))
}

func (f Field) Int64() int64 {
	return int64(f.Varint)
}

func (f Field) Uint64() uint64 {
	if f.Type == protowire.Fixed64Type {
		return f.Fixed64
	}
	return f.Varint
}

func (f Field) Bool() bool {
	return f.Varint != 0
}

func (f Field) Float32() float32 {
	return math.Float32frombits(f.Fixed32)
}

func (f Field) String() string {
	return string(f.Bytes)
}

// Walk calls fn for every field of b in wire order. Groups are rejected.
func Walk(b []byte, fn func(Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Join(ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.Fixed32, n = protowire.ConsumeFixed32(b)
		case protowire.Fixed64Type:
			f.Fixed64, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		default:
			return fmt.Errorf("%w: unsupported wire type %d for field %d", ErrMalformed, typ, num)
		}
		if n < 0 {
			return errors.Join(ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}
