package limits

import "fmt"

// Policy decides whether an allocation of n bytes may proceed. It is
// consulted by the heap before every allocation.
type Policy interface {
	Charge(n int64) error
}

// Refunder is implemented by policies that track live memory rather than
// cumulative allocation. The heap calls Refund when a slot is torn down.
type Refunder interface {
	Refund(n int64)
}

type Budget struct {
	limit int64
	used  int64
	peak  int64
}

func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}

func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used
}

// Peak is the highest value Used has reached.
func (b *Budget) Peak() int64 {
	if b == nil {
		return 0
	}
	return b.peak
}

func MaxMemoryMessage(limit int64) string {
	return fmt.Sprintf("max memory exceeded (%d bytes)", limit)
}

type MaxMemoryError struct {
	Limit int64
}

func (e MaxMemoryError) Error() string {
	return MaxMemoryMessage(e.Limit)
}

func (b *Budget) Charge(n int64) error {
	if b == nil || n <= 0 {
		return nil
	}
	if b.limit != 0 && b.used+n > b.limit {
		return MaxMemoryError{Limit: b.limit}
	}
	b.used += n
	if b.used > b.peak {
		b.peak = b.used
	}
	return nil
}

func (b *Budget) Refund(n int64) {
	if b == nil || n <= 0 {
		return
	}
	b.used -= n
	if b.used < 0 {
		b.used = 0
	}
}
