// Package store persists the shared session state: the access token,
// the resolved partner list, and the operator's partner selection.
// Every write bumps a revision counter in the same transaction so other
// processes sharing the database can detect changes by polling.
package store

import (
	"context"

	"github.com/Ducpm1301/ga-webcs/internal/model"
)

// Well-known keys in the session table. They live and die together:
// Clear removes all three atomically.
const (
	keyToken           = "auth_token"
	keyPartners        = "partners"
	keySelectedPartner = "selected_partner"
)

// Store defines the persistence interface for the shared session.
type Store interface {
	// Token
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error

	// Partners
	Partners(ctx context.Context) ([]model.Partner, error)
	SetPartners(ctx context.Context, partners []model.Partner) error

	// Selection
	SelectedPartner(ctx context.Context) (string, error)
	SetSelectedPartner(ctx context.Context, partnerID string) error

	// Clear wipes token, partners, and selection in one transaction.
	Clear(ctx context.Context) error

	// Revision is a monotonic counter bumped by every successful write.
	Revision(ctx context.Context) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
