// Package types contains read shapes shared by the store and the API.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOrder is returned by ParseOrder.
var ErrInvalidOrder = errors.New("invalid order")

// Order is the leaderboard sort direction.
type Order string

const (
	OrderDesc Order = "desc"
	OrderAsc  Order = "asc"
)

// ParseOrder accepts "asc" or "desc" in any case; empty means desc.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderDesc:
		return OrderDesc, nil
	case OrderAsc:
		return OrderAsc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
}

// Entry is one leaderboard row. Rank is 1-based within the requested order.
type Entry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}
