// Package points holds the hint points balance and the purchasable packages.
package points

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultHintCost is the price of one hint.
const DefaultHintCost = 100

// Ledger is a non-negative points balance. Safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	balance int
}

// NewLedger returns a ledger holding balance (negative values become 0).
func NewLedger(balance int) *Ledger {
	l := &Ledger{}
	l.Set(balance)
	return l
}

// Balance returns the current balance.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Spend deducts cost and returns the new balance. When the balance is below
// cost nothing is deducted and ErrInsufficientPoints is returned.
func (l *Ledger) Spend(cost int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cost < 0 {
		return l.balance, fmt.Errorf("%w: negative cost %d", ErrInvalidAmount, cost)
	}
	if l.balance < cost {
		return l.balance, fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, l.balance, cost)
	}
	l.balance -= cost
	return l.balance, nil
}

// Credit adds n points and returns the new balance.
func (l *Ledger) Credit(n int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < 0 {
		return l.balance, fmt.Errorf("%w: negative credit %d", ErrInvalidAmount, n)
	}
	l.balance += n
	return l.balance, nil
}

// Set replaces the balance, e.g. with the store's authoritative total.
func (l *Ledger) Set(n int) {
	if n < 0 {
		n = 0
	}
	l.mu.Lock()
	l.balance = n
	l.mu.Unlock()
}

// Package is a purchasable bundle of points.
type Package struct {
	ID         int    `json:"id"`
	Points     int    `json:"points"`
	PriceCents int    `json:"price_cents"`
	Price      string `json:"price"`
}

// Catalog is the fixed set of packages on sale.
type Catalog struct {
	byID map[int]Package
}

// DefaultCatalog returns the standard three packages.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Package{ID: 1, Points: 500, PriceCents: 100},
		Package{ID: 2, Points: 1200, PriceCents: 200},
		Package{ID: 3, Points: 2500, PriceCents: 400},
	)
}

// NewCatalog builds a catalog from pkgs; the display price is derived.
func NewCatalog(pkgs ...Package) *Catalog {
	c := &Catalog{byID: make(map[int]Package, len(pkgs))}
	for _, p := range pkgs {
		p.Price = fmt.Sprintf("$%d.%02d", p.PriceCents/100, p.PriceCents%100)
		c.byID[p.ID] = p
	}
	return c
}

// Lookup returns the package with id.
func (c *Catalog) Lookup(id int) (Package, error) {
	p, ok := c.byID[id]
	if !ok {
		return Package{}, fmt.Errorf("%w: %d", ErrUnknownPackage, id)
	}
	return p, nil
}

// List returns the packages ordered by id.
func (c *Catalog) List() []Package {
	out := make([]Package, 0, len(c.byID))
	for _, p := range c.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
