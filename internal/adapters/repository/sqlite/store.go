// Package sqlite provides a SQLite-backed repository.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/types"
	"github.com/okian/guessr/pkg/metrics"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const driverName = "sqlite"

const profileColumns = `user_id, username, score, personal_best, purchased_points,
	current_streak, highest_streak, last_win, updated_at`

// Store persists profiles and accounts in a single SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", repository.ErrInvalidInput)
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordStoreQueryLatency(driverName, op, float64(time.Since(start).Microseconds())/1000)
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (model.ProfileRecord, error) {
	var (
		rec     model.ProfileRecord
		lastWin sql.NullInt64
		updated int64
	)
	err := row.Scan(&rec.UserID, &rec.Username, &rec.Score, &rec.PersonalBest, &rec.PurchasedPoints,
		&rec.CurrentStreak, &rec.HighestStreak, &lastWin, &updated)
	if err != nil {
		return model.ProfileRecord{}, err
	}
	if lastWin.Valid {
		rec.LastWin = model.Time(fromMillis(lastWin.Int64))
	}
	rec.UpdatedAt = fromMillis(updated)
	return rec, nil
}

// GetProfile implements repository.ProfileStore.
func (s *Store) GetProfile(ctx context.Context, userID string) (model.ProfileRecord, error) {
	defer observe("get_profile", time.Now())

	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)
	rec, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProfileRecord{}, fmt.Errorf("profile %s: %w", userID, repository.ErrNotFound)
	}
	if err != nil {
		return model.ProfileRecord{}, persistErr("get profile", err)
	}
	return rec, nil
}

// InsertProfileIfAbsent implements repository.ProfileStore.
func (s *Store) InsertProfileIfAbsent(ctx context.Context, rec model.ProfileRecord) (bool, error) {
	defer observe("insert_profile", time.Now())

	if rec.UserID == "" {
		return false, fmt.Errorf("%w: empty user id", repository.ErrInvalidInput)
	}
	var lastWin any
	if rec.LastWin != nil {
		lastWin = toMillis(*rec.LastWin)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		rec.UserID, rec.Username, rec.Score, rec.PersonalBest, rec.PurchasedPoints,
		rec.CurrentStreak, rec.HighestStreak, lastWin, toMillis(s.now()),
	)
	if err != nil {
		return false, persistErr("insert profile", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("insert profile", err)
	}
	return n == 1, nil
}

// UpdateProfile implements repository.ProfileStore.
func (s *Store) UpdateProfile(ctx context.Context, u model.ProfileUpdate) error {
	defer observe("update_profile", time.Now())

	set := updateColumns(u)
	set["updated_at"] = toMillis(s.now())

	query, args, err := sq.Update("profiles").SetMap(set).Where(sq.Eq{"user_id": u.UserID}).ToSql()
	if err != nil {
		return persistErr("build update", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistErr("update profile", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("update profile", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", u.UserID, repository.ErrNotFound)
	}
	return nil
}

func updateColumns(u model.ProfileUpdate) map[string]any {
	set := map[string]any{}
	if u.Score != nil {
		set["score"] = *u.Score
	}
	if u.PersonalBest != nil {
		set["personal_best"] = *u.PersonalBest
	}
	if u.PointsDelta != 0 {
		set["purchased_points"] = sq.Expr("MAX(purchased_points + ?, 0)", u.PointsDelta)
	}
	if u.CurrentStreak != nil {
		set["current_streak"] = *u.CurrentStreak
	}
	if u.HighestStreak != nil {
		set["highest_streak"] = *u.HighestStreak
	}
	if u.LastWin != nil {
		set["last_win"] = toMillis(*u.LastWin)
	}
	return set
}

// AddPoints implements repository.ProfileStore.
func (s *Store) AddPoints(ctx context.Context, userID string, n int) (model.AddPointsResult, error) {
	defer observe("add_points", time.Now())

	if n <= 0 {
		return model.AddPointsResult{Error: "points must be positive"}, fmt.Errorf("%w: points %d", repository.ErrInvalidInput, n)
	}
	var total int
	err := s.db.QueryRowContext(ctx,
		`UPDATE profiles SET purchased_points = purchased_points + ?, updated_at = ?
		 WHERE user_id = ? RETURNING purchased_points`,
		n, toMillis(s.now()), userID,
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AddPointsResult{Error: "profile not found"}, fmt.Errorf("profile %s: %w", userID, repository.ErrNotFound)
	}
	if err != nil {
		return model.AddPointsResult{Error: err.Error()}, persistErr("add points", err)
	}
	return model.AddPointsResult{Success: true, NewPoints: total}, nil
}

// TopN implements repository.ProfileStore.
func (s *Store) TopN(ctx context.Context, n int, order types.Order) ([]types.Entry, error) {
	defer observe("top_n", time.Now())

	if n < 1 {
		return nil, repository.ErrInvalidLimit
	}
	b := sq.Select("user_id", "username", "score").From("profiles").Limit(uint64(n))
	if order == types.OrderAsc {
		b = b.OrderBy("score ASC", "user_id DESC")
	} else {
		b = b.OrderBy("score DESC", "user_id ASC")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, persistErr("build top", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("top", err)
	}
	defer rows.Close()

	out := make([]types.Entry, 0, n)
	for rows.Next() {
		e := types.Entry{Rank: len(out) + 1}
		if err := rows.Scan(&e.UserID, &e.Username, &e.Score); err != nil {
			return nil, persistErr("scan top", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("top", err)
	}
	return out, nil
}

// Count implements repository.ProfileStore.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, persistErr("count", err)
	}
	return n, nil
}

// CreateAccount implements repository.AccountStore.
func (s *Store) CreateAccount(ctx context.Context, a model.Account) error {
	defer observe("create_account", time.Now())

	meta, err := json.Marshal(nonNil(a.Metadata))
	if err != nil {
		return fmt.Errorf("%w: metadata: %w", repository.ErrInvalidInput, err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, email_key, password_hash, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, strings.ToLower(a.Email), a.PasswordHash, string(meta), toMillis(a.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("account %s: %w", a.Email, repository.ErrDuplicate)
	}
	if err != nil {
		return persistErr("create account", err)
	}
	return nil
}

// AccountByEmail implements repository.AccountStore.
func (s *Store) AccountByEmail(ctx context.Context, email string) (model.Account, error) {
	return s.account(ctx, "email_key", strings.ToLower(email))
}

// AccountByID implements repository.AccountStore.
func (s *Store) AccountByID(ctx context.Context, id string) (model.Account, error) {
	return s.account(ctx, "id", id)
}

func (s *Store) account(ctx context.Context, column, value string) (model.Account, error) {
	defer observe("get_account", time.Now())

	var (
		a       model.Account
		meta    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, metadata, created_at FROM accounts WHERE `+column+` = ?`, value,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &meta, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %s: %w", value, repository.ErrNotFound)
	}
	if err != nil {
		return model.Account{}, persistErr("get account", err)
	}
	if err := json.Unmarshal([]byte(meta), &a.Metadata); err != nil {
		return model.Account{}, persistErr("decode metadata", err)
	}
	a.CreatedAt = fromMillis(created)
	return a, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ repository.Store = (*Store)(nil)
