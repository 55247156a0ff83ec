package steam

import (
	"errors"
	"strings"
	"testing"
)

func TestShareCodeRoundTrip(t *testing.T) {
	want := ShareCode{MatchID: 3230642215713767580, ReservationID: 3230647599455273103, TVPort: 55788}

	code := want.String()
	if !strings.HasPrefix(code, "CSGO-") || len(code) != len("CSGO-XXXXX-XXXXX-XXXXX-XXXXX-XXXXX") {
		t.Fatalf("unexpected code shape %q", code)
	}

	got, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode(%q): %v", code, err)
	}
	if got != want {
		t.Errorf("Decode(%q) = %+v, want %+v", code, got, want)
	}

	// prefix and dashes are optional
	bare := strings.ReplaceAll(strings.TrimPrefix(code, "CSGO-"), "-", "")
	got, err = Decode(bare)
	if err != nil || got != want {
		t.Errorf("Decode(%q) = %+v, %v", bare, got, err)
	}
}

func TestZeroShareCode(t *testing.T) {
	code := ShareCode{}.String()
	if code != "CSGO-AAAAA-AAAAA-AAAAA-AAAAA-AAAAA" {
		t.Errorf("zero code = %q", code)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	for _, code := range []string{
		"CSGO-AAAAA-AAAAA",
		"CSGO-AAAAA-AAAAA-AAAAA-AAAAA-AAAA0",
		"CSGO-AAAAA-AAAAA-AAAAA-AAAAA-AAAAl",
		"CSGO-99999-99999-99999-99999-99999",
	} {
		if _, err := Decode(code); !errors.Is(err, ErrShareCode) {
			t.Errorf("Decode(%q) err = %v, want ErrShareCode", code, err)
		}
	}
}
