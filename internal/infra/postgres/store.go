// Package postgres implements the Remote Progress Store on hosted
// Postgres (Supabase) through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hellobible/hellobible/internal/domain"
)

// DefaultTimeout bounds every remote call when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Config holds connection parameters for the remote store.
type Config struct {
	DatabaseURL string
	Timeout     time.Duration
	MaxConns    int32
}

// Store is a domain.RemoteProgressStore backed by pgxpool.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// Connect parses the URL, opens the pool and pings it once.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = 25
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	s := New(pool, cfg.Timeout)
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool. A non-positive timeout selects DefaultTimeout.
func New(pool *pgxpool.Pool, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{pool: pool, timeout: timeout}
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the remote store is reachable within the call timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	return nil
}

// Migrate creates the remote tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id            UUID PRIMARY KEY,
			total_xp           BIGINT NOT NULL DEFAULT 0,
			level              INT NOT NULL DEFAULT 1,
			lessons_completed  INT NOT NULL DEFAULT 0,
			current_streak     INT NOT NULL DEFAULT 0,
			longest_streak     INT NOT NULL DEFAULT 0,
			last_activity_date DATE,
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS user_achievements (
			user_id        UUID NOT NULL,
			achievement_id TEXT NOT NULL,
			unlocked_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, achievement_id)
		)`,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Stats ──────────────────────────────────────────────────────────────────

// UpsertStats writes the aggregate row, inserting or overwriting on user id.
func (s *Store) UpsertStats(ctx context.Context, st domain.RemoteStats) error {
	id, err := parseUserID(st.UserID)
	if err != nil {
		return err
	}
	lastActivity, err := toDate(st.LastActivityDate)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_stats
			(user_id, total_xp, level, lessons_completed, current_streak, longest_streak, last_activity_date, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
			total_xp = EXCLUDED.total_xp,
			level = EXCLUDED.level,
			lessons_completed = EXCLUDED.lessons_completed,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_activity_date = EXCLUDED.last_activity_date,
			updated_at = NOW()`,
		id, st.TotalXP, st.Level, st.LessonsCompleted,
		st.CurrentStreak, st.LongestStreak, lastActivity,
	)
	if err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}
	return nil
}

// FetchStats loads the aggregate row for userID.
func (s *Store) FetchStats(ctx context.Context, userID string) (*domain.RemoteStats, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	st := domain.RemoteStats{UserID: id.String()}
	var lastActivity pgtype.Date
	err = s.pool.QueryRow(ctx,
		`SELECT total_xp, level, lessons_completed, current_streak, longest_streak, last_activity_date
		 FROM user_stats WHERE user_id = $1`, id,
	).Scan(&st.TotalXP, &st.Level, &st.LessonsCompleted,
		&st.CurrentStreak, &st.LongestStreak, &lastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRemoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	if lastActivity.Valid {
		st.LastActivityDate = lastActivity.Time.Format(domain.DateLayout)
	}
	return &st, nil
}

// ─── Achievements ───────────────────────────────────────────────────────────

// InsertAchievementUnlock records one unlock. Duplicates are ignored.
func (s *Store) InsertAchievementUnlock(ctx context.Context, userID string, achievementID domain.AchievementID) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_achievements (user_id, achievement_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		id, string(achievementID),
	)
	if err != nil {
		return fmt.Errorf("insert achievement %s: %w", achievementID, err)
	}
	return nil
}

// FetchUnlockedAchievementIDs lists unlocks in the order they happened.
func (s *Store) FetchUnlockedAchievementIDs(ctx context.Context, userID string) ([]domain.AchievementID, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT achievement_id FROM user_achievements
		 WHERE user_id = $1 ORDER BY unlocked_at, achievement_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch achievements: %w", err)
	}
	defer rows.Close()

	ids := []domain.AchievementID{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		ids = append(ids, domain.AchievementID(a))
	}
	return ids, rows.Err()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func parseUserID(userID string) (uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", domain.ErrInvalidUserID, userID)
	}
	return id, nil
}

func toDate(s string) (pgtype.Date, error) {
	if s == "" {
		return pgtype.Date{}, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return pgtype.Date{}, fmt.Errorf("last activity date %q: %w", s, err)
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}
