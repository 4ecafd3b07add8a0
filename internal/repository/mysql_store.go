package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/home-services/internal/model"
)

// Ensure MySQLStore satisfies PrincipalStore at compile time.
var _ PrincipalStore = (*MySQLStore)(nil)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// MySQLStore persists principals in MySQL.  Emails use a binary collation
// so uniqueness and lookups are case-sensitive as stored.
type MySQLStore struct{ db *sql.DB }

// NewMySQLStore wraps an open connection pool and creates missing tables.
func NewMySQLStore(ctx context.Context, db *sql.DB) (*MySQLStore, error) {
	s := &MySQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *MySQLStore) Close() error { return s.db.Close() }

func (s *MySQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(32) NOT NULL DEFAULT '',
			role VARCHAR(16) NOT NULL DEFAULT 'user',
			street VARCHAR(255) NOT NULL DEFAULT '',
			city VARCHAR(128) NOT NULL DEFAULT '',
			state VARCHAR(128) NOT NULL DEFAULT '',
			pincode VARCHAR(16) NOT NULL DEFAULT '',
			landmark VARCHAR(255) NOT NULL DEFAULT '',
			total_savings DECIMAL(12,2) NOT NULL DEFAULT 0,
			membership_status VARCHAR(32) NOT NULL DEFAULT 'basic',
			favorites_count INT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY users_email_unique (email)
		)`,
		`CREATE TABLE IF NOT EXISTS workers (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(32) NOT NULL DEFAULT '',
			role VARCHAR(16) NOT NULL DEFAULT 'worker',
			service VARCHAR(128) NOT NULL DEFAULT '',
			rating DOUBLE NOT NULL DEFAULT 0,
			total_earnings DECIMAL(12,2) NOT NULL DEFAULT 0,
			completed_jobs INT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY workers_email_unique (email)
		)`,
		`CREATE TABLE IF NOT EXISTS services (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			category VARCHAR(128) NOT NULL DEFAULT '',
			price DECIMAL(12,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			worker_id BIGINT UNSIGNED NULL,
			service_id BIGINT UNSIGNED NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY bookings_user_idx (user_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// CreatePrincipal inserts the row and reads it back for DB-default fields.
func (s *MySQLStore) CreatePrincipal(ctx context.Context, p model.Principal) (model.Principal, error) {
	table, err := tableFor(p.Kind())
	if err != nil {
		return model.Principal{}, err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (email, password_hash, name, phone, role) VALUES (?,?,?,?,?)",
		strings.TrimSpace(p.Email), p.PasswordHash, p.Name, p.Phone, string(p.Role))
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return model.Principal{}, ErrEmailExists
		}
		return model.Principal{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Principal{}, err
	}
	return s.FindByID(ctx, p.Kind(), uint64(id))
}

// FindByEmail fetches a principal of kind by its stored email.
func (s *MySQLStore) FindByEmail(ctx context.Context, kind model.Kind, email string) (model.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return model.Principal{}, err
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT id,email,password_hash,name,phone,role,created_at,updated_at FROM "+table+" WHERE email=? LIMIT 1",
		strings.TrimSpace(email))
	return scanPrincipal(row)
}

// FindByID fetches a principal of kind by id.
func (s *MySQLStore) FindByID(ctx context.Context, kind model.Kind, id uint64) (model.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return model.Principal{}, err
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT id,email,password_hash,name,phone,role,created_at,updated_at FROM "+table+" WHERE id=? LIMIT 1",
		id)
	return scanPrincipal(row)
}

// UserProfile loads the extended user view with its booking count.
func (s *MySQLStore) UserProfile(ctx context.Context, id uint64) (model.UserProfile, error) {
	const q = `SELECT u.id, u.email, u.name, u.phone, u.role, u.street, u.city, u.state, u.pincode, u.landmark,
		u.total_savings, u.membership_status, u.favorites_count,
		(SELECT COUNT(*) FROM bookings b WHERE b.user_id = u.id),
		u.created_at, u.updated_at
		FROM users u WHERE u.id = ? LIMIT 1`
	var (
		p    model.UserProfile
		role string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Email, &p.Name, &p.Phone, &role,
		&p.Street, &p.City, &p.State, &p.Pincode, &p.Landmark,
		&p.TotalSavings, &p.MembershipStatus, &p.FavoritesCount, &p.BookingsCount,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return model.UserProfile{}, err
	}
	p.Role = model.Role(role)
	return p, nil
}

// WorkerProfile loads the extended worker view.
func (s *MySQLStore) WorkerProfile(ctx context.Context, id uint64) (model.WorkerProfile, error) {
	const q = `SELECT id, email, name, phone, role, service, rating, total_earnings, completed_jobs, created_at, updated_at
		FROM workers WHERE id = ? LIMIT 1`
	var (
		p    model.WorkerProfile
		role string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Email, &p.Name, &p.Phone, &role,
		&p.Service, &p.Rating, &p.TotalEarnings, &p.CompletedJobs, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WorkerProfile{}, ErrNotFound
	}
	if err != nil {
		return model.WorkerProfile{}, err
	}
	p.Role = model.Role(role)
	return p, nil
}

// UpdateUserProfile only writes columns present in patch; COALESCE keeps the
// current value for nil fields.
func (s *MySQLStore) UpdateUserProfile(ctx context.Context, id uint64, patch model.ProfilePatch) (model.UserProfile, error) {
	if !patch.Empty() {
		const q = `UPDATE users SET
			name = COALESCE(?, name),
			phone = COALESCE(?, phone),
			street = COALESCE(?, street),
			city = COALESCE(?, city),
			state = COALESCE(?, state),
			pincode = COALESCE(?, pincode),
			landmark = COALESCE(?, landmark)
			WHERE id = ?`
		if _, err := s.db.ExecContext(ctx, q,
			patch.Name, patch.Phone, patch.Street, patch.City, patch.State, patch.Pincode, patch.Landmark,
			id); err != nil {
			return model.UserProfile{}, err
		}
	}
	return s.UserProfile(ctx, id)
}

func scanPrincipal(row *sql.Row) (model.Principal, error) {
	var (
		p    model.Principal
		role string
	)
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Name, &p.Phone, &role, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Principal{}, ErrNotFound
	}
	if err != nil {
		return model.Principal{}, err
	}
	p.Role = model.Role(role)
	return p, nil
}
