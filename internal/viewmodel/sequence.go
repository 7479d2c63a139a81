package viewmodel

import (
	"errors"
	"sync/atomic"
)

// ErrStaleSequence reports an apply whose data was requested before data already shown.
var ErrStaleSequence = errors.New("stale sequence")

// Sequencer hands out strictly increasing request numbers. A number is taken
// when a request is issued; the model only accepts applies that are not older
// than the last one it applied.
type Sequencer struct {
	last atomic.Int64
}

// Next returns the next sequence number, starting at 1.
func (sequencer *Sequencer) Next() int64 {
	return sequencer.last.Add(1)
}

// Last returns the most recently issued number, 0 when none was issued.
func (sequencer *Sequencer) Last() int64 {
	return sequencer.last.Load()
}
