package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/home-services/internal/model"
)

func newFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "db.json")
	s, err := OpenFileStore(path)
	require.NoError(t, err)
	return s, path
}

func strPtr(s string) *string { return &s }

func TestOpenFileStore_CreatesEmptyDocument(t *testing.T) {
	_, path := newFileStore(t)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string][]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"users", "services", "workers", "bookings"} {
		arr, ok := doc[key]
		assert.True(t, ok, "missing %s array", key)
		assert.Empty(t, arr)
	}
}

func TestFileStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s, path := newFileStore(t)

	u, err := s.CreatePrincipal(ctx, model.Principal{Email: " alice@example.com ", PasswordHash: "h1", Name: "Alice", Role: model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.Equal(t, "alice@example.com", u.Email)

	u2, err := s.CreatePrincipal(ctx, model.Principal{Email: "carol@example.com", PasswordHash: "h2", Role: model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), u2.ID)

	w, err := s.CreatePrincipal(ctx, model.Principal{Email: "bob@example.com", PasswordHash: "h3", Role: model.RoleWorker})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), w.ID, "ids are per array")

	got, err := s.FindByEmail(ctx, model.KindUser, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h1", got.PasswordHash)

	_, err = s.FindByEmail(ctx, model.KindUser, "ALICE@example.com")
	assert.ErrorIs(t, err, ErrNotFound, "lookups are case-sensitive as stored")

	_, err = s.FindByEmail(ctx, model.KindWorker, "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = s.FindByID(ctx, model.KindWorker, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RoleWorker, got.Role)

	// A reopened store sees the same rows.
	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	got, err = reopened.FindByEmail(ctx, model.KindWorker, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.ID)
}

func TestFileStore_DuplicateEmailIsPerKind(t *testing.T) {
	ctx := context.Background()
	s, _ := newFileStore(t)

	_, err := s.CreatePrincipal(ctx, model.Principal{Email: "dup@example.com", PasswordHash: "h", Role: model.RoleUser})
	require.NoError(t, err)

	_, err = s.CreatePrincipal(ctx, model.Principal{Email: "dup@example.com", PasswordHash: "h", Role: model.RoleUser})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = s.CreatePrincipal(ctx, model.Principal{Email: "dup@example.com", PasswordHash: "h", Role: model.RoleWorker})
	assert.NoError(t, err)
}

func TestFileStore_UserProfileCountsBookings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")
	seed := `{
		"users": [{"id": 7, "email": "a@example.com", "passwordHash": "h", "role": "user", "city": "Pune", "favoritesCount": 3}],
		"services": [{"id": 1, "name": "Plumbing"}],
		"workers": [],
		"bookings": [{"id": 1, "userId": 7, "status": "PENDING"}, {"id": 2, "userId": 7, "status": "COMPLETED"}, {"id": 3, "userId": 8, "status": "PENDING"}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s, err := OpenFileStore(path)
	require.NoError(t, err)

	p, err := s.UserProfile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, p.BookingsCount)
	assert.Equal(t, "Pune", p.City)
	assert.Equal(t, 3, p.FavoritesCount)

	next, err := s.CreatePrincipal(ctx, model.Principal{Email: "b@example.com", PasswordHash: "h", Role: model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), next.ID)

	// The services array survives rewrites untouched.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc fileDoc
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Services, 1)
	assert.JSONEq(t, `{"id": 1, "name": "Plumbing"}`, string(doc.Services[0]))

	_, err = s.UserProfile(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_UpdateUserProfileIsPartial(t *testing.T) {
	ctx := context.Background()
	s, path := newFileStore(t)

	u, err := s.CreatePrincipal(ctx, model.Principal{Email: "a@example.com", PasswordHash: "h", Name: "Alice", Phone: "111", Role: model.RoleUser})
	require.NoError(t, err)

	_, err = s.UpdateUserProfile(ctx, u.ID, model.ProfilePatch{City: strPtr("Pune"), Street: strPtr("MG Road")})
	require.NoError(t, err)

	before, err := s.UserProfile(ctx, u.ID)
	require.NoError(t, err)

	after, err := s.UpdateUserProfile(ctx, u.ID, model.ProfilePatch{Phone: strPtr("222")})
	require.NoError(t, err)
	assert.Equal(t, "222", after.Phone)

	after.Phone = before.Phone
	after.UpdatedAt = before.UpdatedAt
	assert.Equal(t, before, after, "only phone changed")

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	p, err := reopened.UserProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "222", p.Phone)
	assert.Equal(t, "Pune", p.City)

	_, err = s.UpdateUserProfile(ctx, 42, model.ProfilePatch{City: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_RewriteKeepsUnmodelledFields(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")
	seed := `{
		"users": [{"id": 7, "email": "a@example.com", "passwordHash": "h", "name": "Asha", "role": "user", "favorites": [3, 5], "preferences": {"sms": true}}],
		"services": [],
		"workers": [{"id": 2, "email": "w@example.com", "passwordHash": "h", "role": "worker", "skills": ["tiling"], "availability": "weekends"}],
		"bookings": [{"id": 1, "userId": 7, "status": "PENDING", "date": "2024-05-01", "address": "12 MG Road", "price": 450}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	_, err = s.UpdateUserProfile(ctx, 7, model.ProfilePatch{Name: strPtr("Asha K")})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string][]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))

	user := doc["users"][0]
	assert.JSONEq(t, `"Asha K"`, string(user["name"]))
	assert.JSONEq(t, `[3, 5]`, string(user["favorites"]))
	assert.JSONEq(t, `{"sms": true}`, string(user["preferences"]))

	worker := doc["workers"][0]
	assert.JSONEq(t, `["tiling"]`, string(worker["skills"]))
	assert.JSONEq(t, `"weekends"`, string(worker["availability"]))

	booking := doc["bookings"][0]
	assert.JSONEq(t, `"PENDING"`, string(booking["status"]))
	assert.JSONEq(t, `"2024-05-01"`, string(booking["date"]))
	assert.JSONEq(t, `"12 MG Road"`, string(booking["address"]))
	assert.JSONEq(t, `450`, string(booking["price"]))

	// Reopening keeps the modelled view intact.
	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	p, err := reopened.UserProfile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", p.Name)
	assert.Equal(t, 1, p.BookingsCount)
}

func TestFileStore_WorkerProfile(t *testing.T) {
	ctx := context.Background()
	s, _ := newFileStore(t)

	w, err := s.CreatePrincipal(ctx, model.Principal{Email: "w@example.com", PasswordHash: "h", Name: "Wes", Role: model.RoleWorker})
	require.NoError(t, err)

	p, err := s.WorkerProfile(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "w@example.com", p.Email)
	assert.Equal(t, model.RoleWorker, p.Role)
	assert.Zero(t, p.CompletedJobs)

	_, err = s.WorkerProfile(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_UnknownKind(t *testing.T) {
	s, _ := newFileStore(t)
	_, err := s.FindByEmail(context.Background(), model.Kind("admin"), "x@example.com")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
