package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/me/partnerportal/pkg/model"

	_ "modernc.org/sqlite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Session operations ---

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) error {
	s.logger.Debug("sql", "op", "insert", "table", "sessions", "id", sess.ID)

	clientIDs, err := json.Marshal(sess.ClientIDs)
	if err != nil {
		return fmt.Errorf("marshal client ids: %w", err)
	}
	var tokenExp int64
	if !sess.TokenExp.IsZero() {
		tokenExp = sess.TokenExp.Unix()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, email, role, company_name, client_ids, token, token_exp, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Email, string(sess.Role), sess.CompanyName, string(clientIDs),
		sess.Token, tokenExp,
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix(),
	)
	return err
}

// GetSession returns the session with id, or nil when it does not exist.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.logger.Debug("sql", "op", "select", "table", "sessions", "id", id)

	var sess model.Session
	var role, clientIDs string
	var tokenExp, createdAt, expiresAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, role, company_name, client_ids, token, token_exp, created_at, expires_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Email, &role, &sess.CompanyName, &clientIDs,
		&sess.Token, &tokenExp, &createdAt, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess.Role = model.UserRole(role)
	if err := json.Unmarshal([]byte(clientIDs), &sess.ClientIDs); err != nil {
		return nil, fmt.Errorf("unmarshal client ids: %w", err)
	}
	if tokenExp > 0 {
		sess.TokenExp = time.Unix(tokenExp, 0)
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.ExpiresAt = time.Unix(expiresAt, 0)

	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "sessions", "id", id)

	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.logger.Debug("sql", "op", "delete_expired", "table", "sessions")

	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ? OR (token_exp > 0 AND token_exp < ?)`, now, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) DeleteSessionsByEmail(ctx context.Context, email string) (int64, error) {
	s.logger.Debug("sql", "op", "delete_by_email", "table", "sessions")

	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE email = ?`, email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// --- OTP challenge operations ---

func (s *SQLiteStore) RecordOTPRequest(ctx context.Context, email string, at time.Time) error {
	s.logger.Debug("sql", "op", "insert", "table", "otp_challenges")

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO otp_challenges (email, requested_at) VALUES (?, ?)`, email, at.Unix())
	return err
}

// CountOTPRequests returns how many codes email requested at or after since.
func (s *SQLiteStore) CountOTPRequests(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM otp_challenges WHERE email = ? AND requested_at >= ?`,
		email, since.Unix(),
	).Scan(&n)
	return n, err
}

// RecordOTPFailure increments the failed attempts of email's latest challenge
// and returns the failures counted since. It returns 0 when no challenge exists.
func (s *SQLiteStore) RecordOTPFailure(ctx context.Context, email string, since time.Time) (int, error) {
	s.logger.Debug("sql", "op", "update", "table", "otp_challenges")

	_, err := s.db.ExecContext(ctx,
		`UPDATE otp_challenges SET attempts = attempts + 1
		 WHERE id = (SELECT id FROM otp_challenges WHERE email = ? ORDER BY requested_at DESC, id DESC LIMIT 1)`,
		email)
	if err != nil {
		return 0, err
	}
	return s.OTPFailures(ctx, email, since)
}

// OTPFailures sums the failed attempts over every challenge email opened at
// or after since. Requesting a new code does not reset the count.
func (s *SQLiteStore) OTPFailures(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(attempts), 0) FROM otp_challenges WHERE email = ? AND requested_at >= ?`,
		email, since.Unix(),
	).Scan(&n)
	return n, err
}

func (s *SQLiteStore) ClearOTPChallenges(ctx context.Context, email string) error {
	s.logger.Debug("sql", "op", "delete", "table", "otp_challenges")

	_, err := s.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE email = ?`, email)
	return err
}

func (s *SQLiteStore) DeleteStaleOTPChallenges(ctx context.Context, before time.Time) (int64, error) {
	s.logger.Debug("sql", "op", "delete_stale", "table", "otp_challenges")

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM otp_challenges WHERE requested_at < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
