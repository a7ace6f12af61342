package wager

import (
	"fmt"
	"sync"
)

// Bankroll is the player's chip balance, owned outside the table.
type Bankroll interface {
	Balance() int64
	Debit(amount int64) error
	Credit(amount int64)
}

// Purse is an in-memory Bankroll.
type Purse struct {
	mu      sync.Mutex
	balance int64
}

// NewPurse returns a purse holding balance chips.
func NewPurse(balance int64) *Purse {
	return &Purse{balance: balance}
}

// Balance implements Bankroll.
func (p *Purse) Balance() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// Debit implements Bankroll.
func (p *Purse) Debit(amount int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if amount < 0 {
		return fmt.Errorf("negative debit %d", amount)
	}
	if amount > p.balance {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientChips, amount, p.balance)
	}
	p.balance -= amount
	return nil
}

// Credit implements Bankroll.
func (p *Purse) Credit(amount int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance += amount
}
