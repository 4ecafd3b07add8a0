package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/home-services/internal/model"
)

// Ensure FileStore satisfies PrincipalStore at compile time.
var _ PrincipalStore = (*FileStore)(nil)

// fileDoc is the on-disk layout: one JSON document with four top-level
// arrays.  Services are kept verbatim; the auth flow never reads them.
// Rows keep the keys they do not model (see file_extras.go).
type fileDoc struct {
	Users    []fileUser        `json:"users"`
	Services []json.RawMessage `json:"services"`
	Workers  []fileWorker      `json:"workers"`
	Bookings []fileBooking     `json:"bookings"`
}

type fileUser struct {
	ID           uint64     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Role         model.Role `json:"role"`
	model.Address
	TotalSavings     float64   `json:"totalSavings"`
	MembershipStatus string    `json:"membershipStatus"`
	FavoritesCount   int       `json:"favoritesCount"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`

	extra extraFields
}

type fileWorker struct {
	ID            uint64     `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"passwordHash"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Role          model.Role `json:"role"`
	Service       string     `json:"service"`
	Rating        float64    `json:"rating"`
	TotalEarnings float64    `json:"totalEarnings"`
	CompletedJobs int        `json:"completedJobs"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	extra extraFields
}

// FileStore keeps the whole document in memory and rewrites the file on
// every change.  Writes go to a temp file that is renamed over the original
// so a crash never leaves a half-written document.  The mutex serializes
// writers within one process; separate processes sharing the file are
// last-writer-wins.
type FileStore struct {
	path string
	mu   sync.RWMutex
	doc  fileDoc
	now  func() time.Time
}

// OpenFileStore loads path, creating an empty document when it is missing.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, now: time.Now}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := s.write(s.doc); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read data file: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &s.doc); err != nil {
			return nil, fmt.Errorf("decode data file: %w", err)
		}
	}
	return s, nil
}

// Close is a no-op; every change is already on disk.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) write(doc fileDoc) error {
	if doc.Services == nil {
		doc.Services = []json.RawMessage{}
	}
	if doc.Users == nil {
		doc.Users = []fileUser{}
	}
	if doc.Workers == nil {
		doc.Workers = []fileWorker{}
	}
	if doc.Bookings == nil {
		doc.Bookings = []fileBooking{}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".db-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

// CreatePrincipal appends a row with the next id of its array.
func (s *FileStore) CreatePrincipal(ctx context.Context, p model.Principal) (model.Principal, error) {
	if err := ctx.Err(); err != nil {
		return model.Principal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.TrimSpace(p.Email)
	now := s.now().UTC()
	next := s.doc
	switch p.Kind() {
	case model.KindUser:
		if slices.ContainsFunc(s.doc.Users, func(u fileUser) bool { return u.Email == email }) {
			return model.Principal{}, ErrEmailExists
		}
		rec := fileUser{
			ID: nextUserID(s.doc.Users), Email: email, PasswordHash: p.PasswordHash,
			Name: p.Name, Phone: p.Phone, Role: p.Role, MembershipStatus: "basic",
			CreatedAt: now, UpdatedAt: now,
		}
		next.Users = append(slices.Clone(s.doc.Users), rec)
		if err := s.write(next); err != nil {
			return model.Principal{}, err
		}
		s.doc = next
		return rec.principal(), nil
	case model.KindWorker:
		if slices.ContainsFunc(s.doc.Workers, func(w fileWorker) bool { return w.Email == email }) {
			return model.Principal{}, ErrEmailExists
		}
		rec := fileWorker{
			ID: nextWorkerID(s.doc.Workers), Email: email, PasswordHash: p.PasswordHash,
			Name: p.Name, Phone: p.Phone, Role: p.Role, CreatedAt: now, UpdatedAt: now,
		}
		next.Workers = append(slices.Clone(s.doc.Workers), rec)
		if err := s.write(next); err != nil {
			return model.Principal{}, err
		}
		s.doc = next
		return rec.principal(), nil
	}
	return model.Principal{}, ErrUnknownKind
}

// FindByEmail returns the first row of kind whose email matches exactly.
func (s *FileStore) FindByEmail(ctx context.Context, kind model.Kind, email string) (model.Principal, error) {
	email = strings.TrimSpace(email)
	return s.find(ctx, kind, func(e string, _ uint64) bool { return e == email })
}

// FindByID returns the row of kind with id.
func (s *FileStore) FindByID(ctx context.Context, kind model.Kind, id uint64) (model.Principal, error) {
	return s.find(ctx, kind, func(_ string, rid uint64) bool { return rid == id })
}

func (s *FileStore) find(ctx context.Context, kind model.Kind, match func(email string, id uint64) bool) (model.Principal, error) {
	if err := ctx.Err(); err != nil {
		return model.Principal{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case model.KindUser:
		for _, u := range s.doc.Users {
			if match(u.Email, u.ID) {
				return u.principal(), nil
			}
		}
	case model.KindWorker:
		for _, w := range s.doc.Workers {
			if match(w.Email, w.ID) {
				return w.principal(), nil
			}
		}
	default:
		return model.Principal{}, ErrUnknownKind
	}
	return model.Principal{}, ErrNotFound
}

// UserProfile returns the user view with bookingsCount computed from the
// bookings array.
func (s *FileStore) UserProfile(ctx context.Context, id uint64) (model.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return model.UserProfile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.doc.Users, func(u fileUser) bool { return u.ID == id })
	if i < 0 {
		return model.UserProfile{}, ErrNotFound
	}
	return s.userProfile(s.doc.Users[i]), nil
}

func (s *FileStore) userProfile(u fileUser) model.UserProfile {
	count := 0
	for _, b := range s.doc.Bookings {
		if b.UserID == u.ID {
			count++
		}
	}
	return model.UserProfile{
		ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone, Role: u.Role,
		Address:          u.Address,
		TotalSavings:     u.TotalSavings,
		MembershipStatus: u.MembershipStatus,
		FavoritesCount:   u.FavoritesCount,
		BookingsCount:    count,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// WorkerProfile returns the worker view.
func (s *FileStore) WorkerProfile(ctx context.Context, id uint64) (model.WorkerProfile, error) {
	if err := ctx.Err(); err != nil {
		return model.WorkerProfile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.doc.Workers {
		if w.ID == id {
			return model.WorkerProfile{
				ID: w.ID, Email: w.Email, Name: w.Name, Phone: w.Phone, Role: w.Role,
				Service: w.Service, Rating: w.Rating, TotalEarnings: w.TotalEarnings,
				CompletedJobs: w.CompletedJobs, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
			}, nil
		}
	}
	return model.WorkerProfile{}, ErrNotFound
}

// UpdateUserProfile applies patch to the stored user and persists it.
func (s *FileStore) UpdateUserProfile(ctx context.Context, id uint64, patch model.ProfilePatch) (model.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return model.UserProfile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.doc.Users, func(u fileUser) bool { return u.ID == id })
	if i < 0 {
		return model.UserProfile{}, ErrNotFound
	}
	if patch.Empty() {
		return s.userProfile(s.doc.Users[i]), nil
	}

	view := s.userProfile(s.doc.Users[i])
	patch.Apply(&view)
	rec := s.doc.Users[i]
	rec.Name, rec.Phone, rec.Address = view.Name, view.Phone, view.Address
	rec.UpdatedAt = s.now().UTC()

	next := s.doc
	next.Users = slices.Clone(s.doc.Users)
	next.Users[i] = rec
	if err := s.write(next); err != nil {
		return model.UserProfile{}, err
	}
	s.doc = next
	return s.userProfile(rec), nil
}

func (u fileUser) principal() model.Principal {
	return model.Principal{
		ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, Name: u.Name, Phone: u.Phone,
		Role: u.Role, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (w fileWorker) principal() model.Principal {
	return model.Principal{
		ID: w.ID, Email: w.Email, PasswordHash: w.PasswordHash, Name: w.Name, Phone: w.Phone,
		Role: w.Role, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
	}
}

func nextUserID(rows []fileUser) uint64 {
	var top uint64
	for _, r := range rows {
		if r.ID > top {
			top = r.ID
		}
	}
	return top + 1
}

func nextWorkerID(rows []fileWorker) uint64 {
	var top uint64
	for _, r := range rows {
		if r.ID > top {
			top = r.ID
		}
	}
	return top + 1
}
