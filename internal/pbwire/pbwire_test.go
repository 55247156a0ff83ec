package pbwire

import (
	"errors"
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestWalk(t *testing.T) {
	neg := int64(-2)
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(neg))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, "de_dust2")
	b = protowire.AppendTag(b, 3, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(0.5))
	b = protowire.AppendTag(b, 4, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 76561198000000001)

	var got []Field
	if err := Walk(b, func(f Field) error {
		got = append(got, f)
		return nil
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d fields, want 4", len(got))
	}
	if got[0].Int() != -2 {
		t.Errorf("Int() = %d, want -2", got[0].Int())
	}
	if got[1].String() != "de_dust2" {
		t.Errorf("String() = %q", got[1].String())
	}
	if got[2].Float32() != 0.5 {
		t.Errorf("Float32() = %v", got[2].Float32())
	}
	if got[3].Uint64() != 76561198000000001 {
		t.Errorf("Uint64() = %d", got[3].Uint64())
	}
}

func TestWalkMalformed(t *testing.T) {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = append(b, 10, 'x') // claims 10 bytes

	err := Walk(b, func(Field) error { return nil })
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 2)

	stop := errors.New("stop")
	calls := 0
	err := Walk(b, func(Field) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err = %v after %d calls", err, calls)
	}
}
