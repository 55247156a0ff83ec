package model

import "fmt"

// EndReason is the closed set of ways a round can end.
type EndReason int

const (
	EndReasonUnknown EndReason = iota
	EndReasonTargetBombed
	EndReasonBombDefused
	EndReasonCTElimination
	EndReasonTElimination
	EndReasonTargetSaved
	EndReasonHostagesRescued
	EndReasonHostagesNotRescued
	EndReasonTSurrender
	EndReasonCTSurrender
)

// ReasonGameCommencing is the code sent when warmup ends and the match
// restarts. It does not close a playable round.
const ReasonGameCommencing = 16

var endReasonByCode = map[int]EndReason{
	1:  EndReasonTargetBombed,
	7:  EndReasonBombDefused,
	8:  EndReasonCTElimination,
	9:  EndReasonTElimination,
	11: EndReasonHostagesRescued,
	12: EndReasonTargetSaved,
	13: EndReasonHostagesNotRescued,
	17: EndReasonTSurrender,
	18: EndReasonCTSurrender,
}

var endReasonNames = map[EndReason]string{
	EndReasonUnknown:            "UNKNOWN",
	EndReasonTargetBombed:       "TARGET_BOMBED",
	EndReasonBombDefused:        "BOMB_DEFUSED",
	EndReasonCTElimination:      "CT_ELIMINATION",
	EndReasonTElimination:       "T_ELIMINATION",
	EndReasonTargetSaved:        "TARGET_SAVED",
	EndReasonHostagesRescued:    "HOSTAGES_RESCUED",
	EndReasonHostagesNotRescued: "HOSTAGES_NOT_RESCUED",
	EndReasonTSurrender:         "T_SURRENDER",
	EndReasonCTSurrender:        "CT_SURRENDER",
}

func (r EndReason) String() string {
	return endReasonNames[r]
}

func (r EndReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseEndReason is the inverse of EndReason.String.
func ParseEndReason(s string) EndReason {
	for r, name := range endReasonNames {
		if name == s {
			return r
		}
	}
	return EndReasonUnknown
}

// UnmappedEndReasonError is returned for a round end code outside the
// reason table.
type UnmappedEndReasonError struct {
	Code int
	Tick int
}

func (e *UnmappedEndReasonError) Error() string {
	return fmt.Sprintf("unmapped round end reason %d at tick %d", e.Code, e.Tick)
}

// EndReasonFromCode maps a raw round_end reason code.
func EndReasonFromCode(code, tick int) (EndReason, error) {
	r, ok := endReasonByCode[code]
	if !ok {
		return EndReasonUnknown, &UnmappedEndReasonError{Code: code, Tick: tick}
	}
	return r, nil
}
