package engine

import (
	"errors"
	"fmt"
)

// ErrInvariant marks a broken engine invariant: a logic defect, never a
// configuration problem.
var ErrInvariant = errors.New("engine invariant violated")

// ICUPool is the shared critical-care capacity. Slots are taken when a
// person enters ICU or NOCORONA_ICU and given back when they leave.
type ICUPool struct {
	capacity  int
	available int
}

// NewICUPool creates a pool with every slot free.
func NewICUPool(capacity int) *ICUPool {
	return &ICUPool{capacity: capacity, available: capacity}
}

// Capacity returns the total number of slots.
func (p *ICUPool) Capacity() int {
	return p.capacity
}

// Available returns the number of free slots.
func (p *ICUPool) Available() int {
	return p.available
}

// Occupied returns the number of taken slots.
func (p *ICUPool) Occupied() int {
	return p.capacity - p.available
}

// TryAcquire takes a slot if one is free.
func (p *ICUPool) TryAcquire() bool {
	if p.available <= 0 {
		return false
	}
	p.available--
	return true
}

// Release gives a slot back.
func (p *ICUPool) Release() error {
	if p.available >= p.capacity {
		return fmt.Errorf("%w: ICU slot released with all %d slots free", ErrInvariant, p.capacity)
	}
	p.available++
	return nil
}
