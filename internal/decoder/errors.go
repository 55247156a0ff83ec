package decoder

import (
	"errors"
	"fmt"

	"github.com/pable/go-cs-demostats/internal/demo"
)

var ErrBitstream = errors.New("malformed packet bitstream")

// OrderingViolationError means a packet frame went back in time. The input
// is corrupt.
type OrderingViolationError struct {
	Prev int
	Tick int
	Kind demo.CommandKind
}

func (e *OrderingViolationError) Error() string {
	return fmt.Sprintf("tick went backwards in %s frame: %d after %d", e.Kind, e.Tick, e.Prev)
}

// UnknownEventWarning is reported for game events the decoder has no
// handler for. The event is dropped.
type UnknownEventWarning struct {
	Name string
	ID   int
	Tick int
}

func (w *UnknownEventWarning) Error() string {
	if w.Name == "" {
		return fmt.Sprintf("unknown game event id %d at tick %d", w.ID, w.Tick)
	}
	return fmt.Sprintf("unknown game event %q at tick %d", w.Name, w.Tick)
}

// UnresolvedPlayerWarning is reported when an event references a slot with
// no known identity. The event is dropped.
type UnresolvedPlayerWarning struct {
	Event string
	Key   string
	Slot  int
	Tick  int
}

func (w *UnresolvedPlayerWarning) Error() string {
	return fmt.Sprintf("%s at tick %d: no player for %s=%d", w.Event, w.Tick, w.Key, w.Slot)
}
