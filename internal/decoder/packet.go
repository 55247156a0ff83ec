package decoder

import (
	"bytes"
	"fmt"

	bitread "github.com/markus-wa/gobitread"

	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/pbwire"
)

// bitBufSize must be a multiple of 8 and larger than 16 for gobitread.
const bitBufSize = 512

type bitReader interface {
	ReadInt(n int) uint
	ReadSingleByte() byte
	ReadBytes(n int) []byte
	ActualPosition() int
}

// packetData extracts CDemoPacket.data.
func packetData(payload []byte) ([]byte, error) {
	var data []byte
	err := pbwire.Walk(payload, func(f pbwire.Field) error {
		if f.Num == 3 {
			data = f.Bytes
		}
		return nil
	})
	return data, err
}

// fullPacketData extracts CDemoFullPacket.packet.data.
func fullPacketData(payload []byte) ([]byte, error) {
	var packet []byte
	err := pbwire.Walk(payload, func(f pbwire.Field) error {
		if f.Num == 2 {
			packet = f.Bytes
		}
		return nil
	})
	if err != nil || packet == nil {
		return nil, err
	}
	return packetData(packet)
}

// splitMessages walks the type/size/body triples of a packet bitstream.
func splitMessages(data []byte, fn func(demo.MessageType, []byte) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrBitstream, p)
		}
	}()

	// Open reads eagerly and panics with io.EOF on an empty source.
	if len(data) == 0 {
		return nil
	}
	r := new(bitread.BitReader)
	r.OpenWithBuffer(bytes.NewReader(data), make([]byte, bitBufSize))
	total := len(data) * 8
	for total-r.ActualPosition() > 7 {
		typ := readUBitVar(r)
		size := readVarint32(r)
		remaining := total - r.ActualPosition()
		if int(size)*8 > remaining {
			return fmt.Errorf("%w: message %d claims %d bytes, %d bits left", ErrBitstream, typ, size, remaining)
		}
		var body []byte
		if size > 0 {
			body = r.ReadBytes(int(size))
		}
		if err := fn(demo.MessageType(typ), body); err != nil {
			return err
		}
	}
	return nil
}

func readUBitVar(r bitReader) uint32 {
	ret := uint32(r.ReadInt(6))
	switch ret & 0x30 {
	case 16:
		ret = (ret & 15) | uint32(r.ReadInt(4))<<4
	case 32:
		ret = (ret & 15) | uint32(r.ReadInt(8))<<4
	case 48:
		ret = (ret & 15) | uint32(r.ReadInt(28))<<4
	}
	return ret
}

func readVarint32(r bitReader) uint32 {
	var v uint32
	for i := 0; i < 5; i++ {
		b := r.ReadSingleByte()
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			break
		}
	}
	return v
}
