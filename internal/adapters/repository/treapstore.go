package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/types"
	"github.com/okian/guessr/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then userID ASC (deterministic). "less" means ranks
// earlier, so an in-order walk yields the leaderboard best to worst and a
// reverse walk yields it worst to best.

const driverName = "memory"

type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score int, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score int) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// collect appends up to limit node ids in rank order, or reverse rank order
// when reverse is set.
func collect(n *node, limit int, reverse bool, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	first, second := n.left, n.right
	if reverse {
		first, second = n.right, n.left
	}
	collect(first, limit, reverse, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	if len(*out) < limit {
		collect(second, limit, reverse, out)
	}
}

// rankOf returns the 1-based descending position of (score, id).
func rankOf(n *node, id string, score int) int {
	rank := 0
	for n != nil {
		switch {
		case n.id == id && n.score == score:
			return rank + nsize(n.left) + 1
		case less(score, id, n.score, n.id):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// TreapStore keeps profiles and accounts in memory with a treap ranking
// index over scores. Safe for concurrent use.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	profiles map[string]model.ProfileRecord
	accounts map[string]model.Account
	byEmail  map[string]string
	rng      *rand.Rand
	seed     uint64
	now      func() time.Time
}

// NewTreapStore constructs an empty in-memory store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		profiles: make(map[string]model.ProfileRecord),
		accounts: make(map[string]model.Account),
		byEmail:  make(map[string]string),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seed == 0 {
		s.seed = rand.Uint64()
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15)) //nolint:gosec // treap priorities
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordStoreQueryLatency(driverName, op, float64(time.Since(start).Microseconds())/1000)
}

// GetProfile implements ProfileStore.
func (s *TreapStore) GetProfile(_ context.Context, userID string) (model.ProfileRecord, error) {
	defer observe("get_profile", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.profiles[userID]
	if !ok {
		return model.ProfileRecord{}, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	return copyRecord(rec), nil
}

// InsertProfileIfAbsent implements ProfileStore.
func (s *TreapStore) InsertProfileIfAbsent(_ context.Context, rec model.ProfileRecord) (bool, error) {
	defer observe("insert_profile", time.Now())

	if rec.UserID == "" {
		return false, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	s.mu.Lock()
	if _, ok := s.profiles[rec.UserID]; ok {
		s.mu.Unlock()
		return false, nil
	}
	rec = copyRecord(rec)
	rec.UpdatedAt = s.now()
	s.profiles[rec.UserID] = rec
	s.root = insert(s.root, rec.UserID, rec.Score, s.rng.Uint64())
	count := len(s.profiles)
	s.mu.Unlock()

	metrics.UpdateTotalPlayers(count)
	return true, nil
}

// UpdateProfile implements ProfileStore.
func (s *TreapStore) UpdateProfile(_ context.Context, u model.ProfileUpdate) error {
	defer observe("update_profile", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[u.UserID]
	if !ok {
		return fmt.Errorf("profile %s: %w", u.UserID, ErrNotFound)
	}
	old := rec.Score
	u.Apply(&rec)
	rec.UpdatedAt = s.now()
	s.reindexLocked(rec.UserID, old, rec.Score)
	s.profiles[rec.UserID] = rec
	return nil
}

// AddPoints implements ProfileStore.
func (s *TreapStore) AddPoints(_ context.Context, userID string, n int) (model.AddPointsResult, error) {
	defer observe("add_points", time.Now())

	if n <= 0 {
		return model.AddPointsResult{Error: "points must be positive"}, fmt.Errorf("%w: points %d", ErrInvalidInput, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.profiles[userID]
	if !ok {
		return model.AddPointsResult{Error: "profile not found"}, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	rec.PurchasedPoints += n
	rec.UpdatedAt = s.now()
	s.profiles[userID] = rec
	return model.AddPointsResult{Success: true, NewPoints: rec.PurchasedPoints}, nil
}

// TopN implements ProfileStore.
func (s *TreapStore) TopN(_ context.Context, n int, order types.Order) ([]types.Entry, error) {
	defer observe("top_n", time.Now())

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*node, 0, min(n, len(s.profiles)))
	collect(s.root, n, order == types.OrderAsc, &nodes)

	out := make([]types.Entry, len(nodes))
	for i, nd := range nodes {
		out[i] = types.Entry{
			Rank:     i + 1,
			UserID:   nd.id,
			Username: s.profiles[nd.id].Username,
			Score:    nd.score,
		}
	}
	return out, nil
}

// Rank returns the 1-based descending leaderboard position of userID.
func (s *TreapStore) Rank(_ context.Context, userID string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.profiles[userID]
	if !ok {
		return types.Entry{}, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	return types.Entry{
		Rank:     rankOf(s.root, userID, rec.Score),
		UserID:   userID,
		Username: rec.Username,
		Score:    rec.Score,
	}, nil
}

// Count implements ProfileStore.
func (s *TreapStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

// CreateAccount implements AccountStore.
func (s *TreapStore) CreateAccount(_ context.Context, a model.Account) error {
	defer observe("create_account", time.Now())

	email := strings.ToLower(a.Email)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; ok {
		return fmt.Errorf("account %s: %w", a.ID, ErrDuplicate)
	}
	if _, ok := s.byEmail[email]; ok {
		return fmt.Errorf("email %s: %w", email, ErrDuplicate)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	a.Metadata = copyMeta(a.Metadata)
	s.accounts[a.ID] = a
	s.byEmail[email] = a.ID
	return nil
}

// AccountByEmail implements AccountStore.
func (s *TreapStore) AccountByEmail(_ context.Context, email string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return model.Account{}, fmt.Errorf("email %s: %w", email, ErrNotFound)
	}
	a := s.accounts[id]
	a.Metadata = copyMeta(a.Metadata)
	return a, nil
}

// AccountByID implements AccountStore.
func (s *TreapStore) AccountByID(_ context.Context, id string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	a.Metadata = copyMeta(a.Metadata)
	return a, nil
}

// Close implements Store.
func (s *TreapStore) Close() error { return nil }

// reindexLocked moves id in the treap when its score changed.
func (s *TreapStore) reindexLocked(id string, oldScore, newScore int) {
	if oldScore == newScore {
		return
	}
	s.root = deleteNode(s.root, id, oldScore)
	s.root = insert(s.root, id, newScore, s.rng.Uint64())
}

func copyRecord(r model.ProfileRecord) model.ProfileRecord {
	if r.LastWin != nil {
		r.LastWin = model.Time(*r.LastWin)
	}
	return r
}

func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
