package demotest

import "google.golang.org/protobuf/encoding/protowire"

// bitWriter writes LSB-first, the bit order used by packet payloads.
type bitWriter struct {
	buf  []byte
	bits uint
}

func (w *bitWriter) writeBits(v uint64, n int) {
	for i := 0; i < n; i++ {
		if w.bits%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			w.buf[w.bits/8] |= 1 << (w.bits % 8)
		}
		w.bits++
	}
}

func (w *bitWriter) writeUBitVar(v uint32) {
	switch {
	case v < 1<<4:
		w.writeBits(uint64(v), 6)
	case v < 1<<8:
		w.writeBits(uint64(v&15|16), 6)
		w.writeBits(uint64(v>>4), 4)
	case v < 1<<12:
		w.writeBits(uint64(v&15|32), 6)
		w.writeBits(uint64(v>>4), 8)
	default:
		w.writeBits(uint64(v&15|48), 6)
		w.writeBits(uint64(v>>4), 28)
	}
}

func (w *bitWriter) writeVarint32(v uint32) {
	for _, b := range protowire.AppendVarint(nil, uint64(v)) {
		w.writeBits(uint64(b), 8)
	}
}

func (w *bitWriter) writeBytes(p []byte) {
	for _, b := range p {
		w.writeBits(uint64(b), 8)
	}
}
