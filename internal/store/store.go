// Package store is the persistence gateway. Callers load the full account
// record, mutate it and write it back; there is no partial-field update and
// no transaction spanning the account record and the shared fleet index.
package store

import (
	"context"
	"errors"

	"servertycoon/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Gateway persists accounts and the derived fleet index.
type Gateway interface {
	CreateAccount(ctx context.Context, acct *models.Account) error
	LoadAccount(ctx context.Context, id string) (*models.Account, error)
	LoadAccountByNickname(ctx context.Context, nickname string) (*models.Account, error)
	SaveAccount(ctx context.Context, acct *models.Account) error

	// LoadFleet returns the shared cross-account index.
	LoadFleet(ctx context.Context) ([]models.FleetServer, error)
	// RebuildFleet replaces the owner's slice of the index wholesale from
	// the authoritative per-account collection.
	RebuildFleet(ctx context.Context, acct *models.Account) error

	// ListAccountsWithOnlineServers returns ids of accounts the accrual
	// sweep must visit.
	ListAccountsWithOnlineServers(ctx context.Context) ([]string, error)
}

func fleetRows(acct *models.Account) []models.FleetServer {
	rows := make([]models.FleetServer, 0, len(acct.Servers))
	for _, srv := range acct.Servers {
		rows = append(rows, models.FleetServer{
			ServerID:      srv.ID,
			OwnerID:       acct.ID,
			OwnerNickname: acct.Nickname,
			ProductID:     srv.ProductID,
			Online:        srv.Online,
			Load:          srv.Load,
			CreatedAt:     srv.CreatedAt,
		})
	}
	return rows
}
