package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iliyamo/home-services/internal/model"
)

// Ensure PostgresStore satisfies PrincipalStore at compile time.
var _ PrincipalStore = (*PostgresStore)(nil)

const pgUniqueViolation = "23505"

// PostgresStore provides Postgres-backed persistence for principals.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and runs migrations.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases database resources.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user',
			street TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			pincode TEXT NOT NULL DEFAULT '',
			landmark TEXT NOT NULL DEFAULT '',
			total_savings DOUBLE PRECISION NOT NULL DEFAULT 0,
			membership_status TEXT NOT NULL DEFAULT 'basic',
			favorites_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS workers (
			id BIGSERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'worker',
			service TEXT NOT NULL DEFAULT '',
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_earnings DOUBLE PRECISION NOT NULL DEFAULT 0,
			completed_jobs INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS services (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			worker_id BIGINT,
			service_id BIGINT,
			status TEXT NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS bookings_user_idx ON bookings (user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// CreatePrincipal inserts a new row into the kind's table.
func (s *PostgresStore) CreatePrincipal(ctx context.Context, p model.Principal) (model.Principal, error) {
	table, err := tableFor(p.Kind())
	if err != nil {
		return model.Principal{}, err
	}
	query := `INSERT INTO ` + table + ` (email, password_hash, name, phone, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, password_hash, name, phone, role, created_at, updated_at`
	row := s.pool.QueryRow(ctx, query, strings.TrimSpace(p.Email), p.PasswordHash, p.Name, p.Phone, string(p.Role))
	created, err := scanPgPrincipal(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.Principal{}, ErrEmailExists
		}
		return model.Principal{}, err
	}
	return created, nil
}

// FindByEmail fetches a principal by email address.
func (s *PostgresStore) FindByEmail(ctx context.Context, kind model.Kind, email string) (model.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return model.Principal{}, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, phone, role, created_at, updated_at FROM `+table+` WHERE email = $1`,
		strings.TrimSpace(email))
	return scanPgPrincipal(row)
}

// FindByID fetches a principal by id.
func (s *PostgresStore) FindByID(ctx context.Context, kind model.Kind, id uint64) (model.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return model.Principal{}, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, phone, role, created_at, updated_at FROM `+table+` WHERE id = $1`,
		int64(id))
	return scanPgPrincipal(row)
}

// UserProfile loads the extended user view with its booking count.
func (s *PostgresStore) UserProfile(ctx context.Context, id uint64) (model.UserProfile, error) {
	const query = `SELECT u.id, u.email, u.name, u.phone, u.role, u.street, u.city, u.state, u.pincode, u.landmark,
		u.total_savings, u.membership_status, u.favorites_count,
		(SELECT COUNT(*) FROM bookings b WHERE b.user_id = u.id),
		u.created_at, u.updated_at
		FROM users u WHERE u.id = $1`
	var (
		p        model.UserProfile
		rowID    int64
		role     string
		bookings int64
	)
	err := s.pool.QueryRow(ctx, query, int64(id)).Scan(&rowID, &p.Email, &p.Name, &p.Phone, &role,
		&p.Street, &p.City, &p.State, &p.Pincode, &p.Landmark,
		&p.TotalSavings, &p.MembershipStatus, &p.FavoritesCount, &bookings,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return model.UserProfile{}, err
	}
	p.ID = uint64(rowID)
	p.Role = model.Role(role)
	p.BookingsCount = int(bookings)
	return p, nil
}

// WorkerProfile loads the extended worker view.
func (s *PostgresStore) WorkerProfile(ctx context.Context, id uint64) (model.WorkerProfile, error) {
	const query = `SELECT id, email, name, phone, role, service, rating, total_earnings, completed_jobs, created_at, updated_at
		FROM workers WHERE id = $1`
	var (
		p     model.WorkerProfile
		rowID int64
		role  string
	)
	err := s.pool.QueryRow(ctx, query, int64(id)).Scan(&rowID, &p.Email, &p.Name, &p.Phone, &role,
		&p.Service, &p.Rating, &p.TotalEarnings, &p.CompletedJobs, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.WorkerProfile{}, ErrNotFound
	}
	if err != nil {
		return model.WorkerProfile{}, err
	}
	p.ID = uint64(rowID)
	p.Role = model.Role(role)
	return p, nil
}

// UpdateUserProfile writes only the fields present in patch.
func (s *PostgresStore) UpdateUserProfile(ctx context.Context, id uint64, patch model.ProfilePatch) (model.UserProfile, error) {
	if !patch.Empty() {
		const query = `UPDATE users SET
			name = COALESCE($1, name),
			phone = COALESCE($2, phone),
			street = COALESCE($3, street),
			city = COALESCE($4, city),
			state = COALESCE($5, state),
			pincode = COALESCE($6, pincode),
			landmark = COALESCE($7, landmark),
			updated_at = NOW()
			WHERE id = $8`
		if _, err := s.pool.Exec(ctx, query,
			patch.Name, patch.Phone, patch.Street, patch.City, patch.State, patch.Pincode, patch.Landmark,
			int64(id)); err != nil {
			return model.UserProfile{}, err
		}
	}
	return s.UserProfile(ctx, id)
}

func scanPgPrincipal(row pgx.Row) (model.Principal, error) {
	var (
		p     model.Principal
		rowID int64
		role  string
	)
	if err := row.Scan(&rowID, &p.Email, &p.PasswordHash, &p.Name, &p.Phone, &role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Principal{}, ErrNotFound
		}
		return model.Principal{}, err
	}
	p.ID = uint64(rowID)
	p.Role = model.Role(role)
	return p, nil
}
