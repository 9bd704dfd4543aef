// Package postgres provides a PostgreSQL-backed repository.Store built on a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/adapters/repository/postgres/migrations"
	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/types"
	"github.com/okian/guessr/pkg/metrics"
)

const driverName = "postgres"

const (
	profilesTable      = "profiles"
	colUserID          = "user_id"
	colUsername        = "username"
	colScore           = "score"
	colPersonalBest    = "personal_best"
	colPurchasedPoints = "purchased_points"
	colCurrentStreak   = "current_streak"
	colHighestStreak   = "highest_streak"
	colLastWin         = "last_win"
	colUpdatedAt       = "updated_at"

	accountsTable   = "accounts"
	colID           = "id"
	colEmail        = "email"
	colEmailKey     = "email_key"
	colPasswordHash = "password_hash"
	colMetadata     = "metadata"
	colCreatedAt    = "created_at"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var profileColumns = []string{
	colUserID, colUsername, colScore, colPersonalBest, colPurchasedPoints,
	colCurrentStreak, colHighestStreak, colLastWin, colUpdatedAt,
}

// Store persists profiles and accounts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects to dsn, pings the server and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", repository.ErrInvalidInput)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, migrations.Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreQueryLatency(driverName, op, float64(time.Since(start).Microseconds())/1000)
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
}

// GetProfile implements repository.ProfileStore.
func (s *Store) GetProfile(ctx context.Context, userID string) (model.ProfileRecord, error) {
	defer observe("get_profile", time.Now())

	query, args, err := psql.Select(profileColumns...).From(profilesTable).Where(sq.Eq{colUserID: userID}).ToSql()
	if err != nil {
		return model.ProfileRecord{}, persistErr("build get", err)
	}
	var rec model.ProfileRecord
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&rec.UserID, &rec.Username, &rec.Score, &rec.PersonalBest, &rec.PurchasedPoints,
		&rec.CurrentStreak, &rec.HighestStreak, &rec.LastWin, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
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
	query, args, err := insertProfileQuery(rec, s.now())
	if err != nil {
		return false, persistErr("build insert", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, persistErr("insert profile", err)
	}
	return tag.RowsAffected() == 1, nil
}

func insertProfileQuery(rec model.ProfileRecord, now time.Time) (string, []any, error) {
	return psql.Insert(profilesTable).
		Columns(profileColumns...).
		Values(rec.UserID, rec.Username, rec.Score, rec.PersonalBest, rec.PurchasedPoints,
			rec.CurrentStreak, rec.HighestStreak, rec.LastWin, now.UTC()).
		Suffix("ON CONFLICT (" + colUserID + ") DO NOTHING").
		ToSql()
}

// UpdateProfile implements repository.ProfileStore.
func (s *Store) UpdateProfile(ctx context.Context, u model.ProfileUpdate) error {
	defer observe("update_profile", time.Now())

	query, args, err := updateProfileQuery(u, s.now())
	if err != nil {
		return persistErr("build update", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return persistErr("update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", u.UserID, repository.ErrNotFound)
	}
	return nil
}

func updateProfileQuery(u model.ProfileUpdate, now time.Time) (string, []any, error) {
	set := map[string]any{colUpdatedAt: now.UTC()}
	if u.Score != nil {
		set[colScore] = *u.Score
	}
	if u.PersonalBest != nil {
		set[colPersonalBest] = *u.PersonalBest
	}
	if u.PointsDelta != 0 {
		set[colPurchasedPoints] = sq.Expr("GREATEST("+colPurchasedPoints+" + ?, 0)", u.PointsDelta)
	}
	if u.CurrentStreak != nil {
		set[colCurrentStreak] = *u.CurrentStreak
	}
	if u.HighestStreak != nil {
		set[colHighestStreak] = *u.HighestStreak
	}
	if u.LastWin != nil {
		set[colLastWin] = u.LastWin.UTC()
	}
	return psql.Update(profilesTable).SetMap(set).Where(sq.Eq{colUserID: u.UserID}).ToSql()
}

// AddPoints implements repository.ProfileStore. The increment happens in a
// single UPDATE so concurrent purchases never lose points.
func (s *Store) AddPoints(ctx context.Context, userID string, n int) (model.AddPointsResult, error) {
	defer observe("add_points", time.Now())

	if n <= 0 {
		return model.AddPointsResult{Error: "points must be positive"}, fmt.Errorf("%w: points %d", repository.ErrInvalidInput, n)
	}
	query, args, err := addPointsQuery(userID, n, s.now())
	if err != nil {
		return model.AddPointsResult{Error: err.Error()}, persistErr("build add points", err)
	}
	var total int
	err = s.pool.QueryRow(ctx, query, args...).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AddPointsResult{Error: "profile not found"}, fmt.Errorf("profile %s: %w", userID, repository.ErrNotFound)
	}
	if err != nil {
		return model.AddPointsResult{Error: err.Error()}, persistErr("add points", err)
	}
	return model.AddPointsResult{Success: true, NewPoints: total}, nil
}

func addPointsQuery(userID string, n int, now time.Time) (string, []any, error) {
	return psql.Update(profilesTable).
		Set(colPurchasedPoints, sq.Expr(colPurchasedPoints+" + ?", n)).
		Set(colUpdatedAt, now.UTC()).
		Where(sq.Eq{colUserID: userID}).
		Suffix("RETURNING " + colPurchasedPoints).
		ToSql()
}

// TopN implements repository.ProfileStore.
func (s *Store) TopN(ctx context.Context, n int, order types.Order) ([]types.Entry, error) {
	defer observe("top_n", time.Now())

	if n < 1 {
		return nil, repository.ErrInvalidLimit
	}
	query, args, err := topQuery(n, order)
	if err != nil {
		return nil, persistErr("build top", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
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

func topQuery(n int, order types.Order) (string, []any, error) {
	b := psql.Select(colUserID, colUsername, colScore).From(profilesTable).Limit(uint64(n))
	if order == types.OrderAsc {
		b = b.OrderBy(colScore+" ASC", colUserID+" DESC")
	} else {
		b = b.OrderBy(colScore+" DESC", colUserID+" ASC")
	}
	return b.ToSql()
}

// Count implements repository.ProfileStore.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+profilesTable).Scan(&n); err != nil {
		return 0, persistErr("count", err)
	}
	return n, nil
}

// CreateAccount implements repository.AccountStore.
func (s *Store) CreateAccount(ctx context.Context, a model.Account) error {
	defer observe("create_account", time.Now())

	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	meta := a.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	query, args, err := psql.Insert(accountsTable).
		Columns(colID, colEmail, colEmailKey, colPasswordHash, colMetadata, colCreatedAt).
		Values(a.ID, a.Email, strings.ToLower(a.Email), a.PasswordHash, meta, a.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return persistErr("build create account", err)
	}
	_, err = s.pool.Exec(ctx, query, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("account %s: %w", a.Email, repository.ErrDuplicate)
	}
	if err != nil {
		return persistErr("create account", err)
	}
	return nil
}

// AccountByEmail implements repository.AccountStore.
func (s *Store) AccountByEmail(ctx context.Context, email string) (model.Account, error) {
	return s.account(ctx, sq.Eq{colEmailKey: strings.ToLower(email)}, email)
}

// AccountByID implements repository.AccountStore.
func (s *Store) AccountByID(ctx context.Context, id string) (model.Account, error) {
	return s.account(ctx, sq.Eq{colID: id}, id)
}

func (s *Store) account(ctx context.Context, where sq.Eq, key string) (model.Account, error) {
	defer observe("get_account", time.Now())

	query, args, err := psql.Select(colID, colEmail, colPasswordHash, colMetadata, colCreatedAt).
		From(accountsTable).Where(where).ToSql()
	if err != nil {
		return model.Account{}, persistErr("build get account", err)
	}
	var a model.Account
	err = s.pool.QueryRow(ctx, query, args...).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Metadata, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %s: %w", key, repository.ErrNotFound)
	}
	if err != nil {
		return model.Account{}, persistErr("get account", err)
	}
	return a, nil
}

var _ repository.Store = (*Store)(nil)
