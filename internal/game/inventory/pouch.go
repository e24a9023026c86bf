package inventory

import (
	"fmt"
	"sync"
)

// AmmoPouch is an actor's ammunition reservoir. Several weapons of one actor
// may query it, so every method is safe for concurrent use.
//
// Invariant: 0 <= Count(t) <= max(t) for every limited type t.
type AmmoPouch struct {
	mu     sync.Mutex
	counts map[AmmoType]int
	limits map[AmmoType]int
}

// NewAmmoPouch returns an empty pouch with no carry limits.
func NewAmmoPouch() *AmmoPouch {
	return &AmmoPouch{
		counts: make(map[AmmoType]int),
		limits: make(map[AmmoType]int),
	}
}

// SetLimit caps the amount of t the pouch may hold. A limit <= 0 removes the cap.
//
// Postcondition: Count(t) <= limit when limit > 0.
func (p *AmmoPouch) SetLimit(t AmmoType, limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if limit <= 0 {
		delete(p.limits, t)
		return
	}
	p.limits[t] = limit
	if p.counts[t] > limit {
		p.counts[t] = limit
	}
}

// Give adds n units of t and returns how many were accepted.
//
// Precondition: n >= 0 (panics otherwise).
func (p *AmmoPouch) Give(t AmmoType, n int) int {
	if n < 0 {
		panic(fmt.Sprintf("inventory: AmmoPouch.Give: n must be >= 0, got %d", n))
	}
	if t == AmmoNone {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	accepted := n
	if limit, ok := p.limits[t]; ok && p.counts[t]+n > limit {
		accepted = limit - p.counts[t]
	}
	p.counts[t] += accepted
	return accepted
}

// Count returns the raw amount of t held.
func (p *AmmoPouch) Count(t AmmoType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[t]
}

// HasAmmo returns how many uses of amountRequired units of t are available.
//
// Postcondition: returns Unlimited when t is AmmoNone or amountRequired is 0;
// returns 0 when fewer than amountRequired units are held; otherwise
// returns Count(t) / amountRequired.
func (p *AmmoPouch) HasAmmo(t AmmoType, amountRequired int) int {
	if t == AmmoNone || amountRequired <= 0 {
		return Unlimited
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	held := p.counts[t]
	if held < amountRequired {
		return 0
	}
	return held / amountRequired
}

// UseAmmo removes amount units of t.
//
// Postcondition: returns false and leaves the pouch untouched when fewer than
// amount units are held. AmmoNone and non-positive amounts always succeed.
func (p *AmmoPouch) UseAmmo(t AmmoType, amount int) bool {
	if t == AmmoNone || amount <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts[t] < amount {
		return false
	}
	p.counts[t] -= amount
	return true
}
