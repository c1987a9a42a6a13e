package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/pairtalk/backend/internal/sessions"
)

// Directory adapts the user repository to the session service's
// partner-lookup interface.
type Directory struct {
	repo *Repository
}

// NewDirectory wraps a repository as a sessions.UserDirectory.
func NewDirectory(repo *Repository) *Directory {
	return &Directory{repo: repo}
}

// LookupByEmail returns the partner record for an email, or nil when no
// account exists yet.
func (d *Directory) LookupByEmail(ctx context.Context, email string) (*sessions.PartnerRecord, error) {
	u, err := d.repo.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, err
	}
	return &sessions.PartnerRecord{ID: u.ID, Email: u.Email, Approved: u.Approved}, nil
}

// LookupByID returns the partner record for a user ID, or nil when absent.
func (d *Directory) LookupByID(ctx context.Context, id uuid.UUID) (*sessions.PartnerRecord, error) {
	u, err := d.repo.GetByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	return &sessions.PartnerRecord{ID: u.ID, Email: u.Email, Approved: u.Approved}, nil
}
