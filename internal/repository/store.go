package repository

import (
	"context"

	"github.com/iliyamo/home-services/internal/model"
)

// PrincipalStore captures the persistence operations the auth flow needs.
// Every method touches at most one principal row.
type PrincipalStore interface {
	// CreatePrincipal inserts p into the table of p.Kind() and returns the
	// stored row with ID and timestamps populated.
	CreatePrincipal(ctx context.Context, p model.Principal) (model.Principal, error)
	FindByEmail(ctx context.Context, kind model.Kind, email string) (model.Principal, error)
	FindByID(ctx context.Context, kind model.Kind, id uint64) (model.Principal, error)
	UserProfile(ctx context.Context, id uint64) (model.UserProfile, error)
	WorkerProfile(ctx context.Context, id uint64) (model.WorkerProfile, error)
	// UpdateUserProfile applies patch to the user row and returns the result.
	UpdateUserProfile(ctx context.Context, id uint64, patch model.ProfilePatch) (model.UserProfile, error)
	Close() error
}

func tableFor(kind model.Kind) (string, error) {
	switch kind {
	case model.KindUser:
		return "users", nil
	case model.KindWorker:
		return "workers", nil
	}
	return "", ErrUnknownKind
}
