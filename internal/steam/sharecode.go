// Package steam decodes CS2 match share codes, which carry the Valve match
// id stamped onto match records.
package steam

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// shareCodeAlphabet is base 57 without 0, 1, I, g and l.
const shareCodeAlphabet = "ABCDEFGHJKLMNOPQRSTUVWXYZabcdefhijkmnopqrstuvwxyz23456789"

const (
	shareCodePrefix = "CSGO-"
	shareCodeChars  = 25
	shareCodeBytes  = 18
)

var ErrShareCode = errors.New("invalid share code")

var (
	scBase   = big.NewInt(int64(len(shareCodeAlphabet)))
	scLookup = func() map[byte]int64 {
		m := make(map[byte]int64, len(shareCodeAlphabet))
		for i, c := range []byte(shareCodeAlphabet) {
			m[c] = int64(i)
		}
		return m
	}()
)

// ShareCode holds the values packed into a match share code.
type ShareCode struct {
	MatchID       uint64
	ReservationID uint64
	TVPort        uint16
}

// Decode parses "CSGO-XXXXX-XXXXX-XXXXX-XXXXX-XXXXX". The prefix is optional.
func Decode(code string) (ShareCode, error) {
	code = strings.TrimPrefix(strings.TrimSpace(code), shareCodePrefix)
	code = strings.ReplaceAll(code, "-", "")

	if len(code) != shareCodeChars {
		return ShareCode{}, fmt.Errorf("%w: expected %d characters, got %d", ErrShareCode, shareCodeChars, len(code))
	}

	// most significant digit last
	n := new(big.Int)
	for i := len(code) - 1; i >= 0; i-- {
		idx, ok := scLookup[code[i]]
		if !ok {
			return ShareCode{}, fmt.Errorf("%w: invalid character %q", ErrShareCode, code[i])
		}
		n.Mul(n, scBase)
		n.Add(n, big.NewInt(idx))
	}

	if n.BitLen() > shareCodeBytes*8 {
		return ShareCode{}, fmt.Errorf("%w: value out of range", ErrShareCode)
	}

	var buf [shareCodeBytes]byte
	n.FillBytes(buf[:])
	reverse(buf[:])

	return ShareCode{
		MatchID:       binary.LittleEndian.Uint64(buf[0:8]),
		ReservationID: binary.LittleEndian.Uint64(buf[8:16]),
		TVPort:        binary.LittleEndian.Uint16(buf[16:18]),
	}, nil
}

// String encodes sc back into its dashed form.
func (sc ShareCode) String() string {
	var buf [shareCodeBytes]byte
	binary.LittleEndian.PutUint64(buf[0:8], sc.MatchID)
	binary.LittleEndian.PutUint64(buf[8:16], sc.ReservationID)
	binary.LittleEndian.PutUint16(buf[16:18], sc.TVPort)
	reverse(buf[:])

	n := new(big.Int).SetBytes(buf[:])
	mod := new(big.Int)
	digits := make([]byte, 0, shareCodeChars)
	for range shareCodeChars {
		n.DivMod(n, scBase, mod)
		digits = append(digits, shareCodeAlphabet[mod.Int64()])
	}

	var sb strings.Builder
	sb.WriteString(shareCodePrefix)
	for i := 0; i < shareCodeChars; i += 5 {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.Write(digits[i : i+5])
	}
	return sb.String()
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
