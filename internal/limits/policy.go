package limits

import "fmt"

type MaxAllocationsError struct {
	Limit int64
}

func (e MaxAllocationsError) Error() string {
	return fmt.Sprintf("max allocations exceeded (%d)", e.Limit)
}

// AllocBudget caps the number of allocations regardless of their size.
type AllocBudget struct {
	limit int64
	count int64
}

func NewAllocBudget(limit int64) *AllocBudget {
	if limit < 0 {
		limit = 0
	}
	return &AllocBudget{limit: limit}
}

func (a *AllocBudget) Count() int64 {
	if a == nil {
		return 0
	}
	return a.count
}

func (a *AllocBudget) Charge(int64) error {
	if a == nil {
		return nil
	}
	if a.limit != 0 && a.count >= a.limit {
		return MaxAllocationsError{Limit: a.limit}
	}
	a.count++
	return nil
}

// Chain accepts an allocation only if every policy in it does. Policies
// that already accepted are refunded when a later one refuses.
type Chain []Policy

func (c Chain) Charge(n int64) error {
	for i, p := range c {
		if p == nil {
			continue
		}
		if err := p.Charge(n); err != nil {
			for _, prev := range c[:i] {
				if r, ok := prev.(Refunder); ok {
					r.Refund(n)
				}
			}
			return err
		}
	}
	return nil
}

func (c Chain) Refund(n int64) {
	for _, p := range c {
		if r, ok := p.(Refunder); ok {
			r.Refund(n)
		}
	}
}

type unlimited struct{}

func (unlimited) Charge(int64) error { return nil }

// Unlimited never refuses an allocation.
var Unlimited Policy = unlimited{}
