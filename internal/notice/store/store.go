// Package store persists notices, parties, addresses and the append-only
// suspension and lookup audit trails. Two implementations: in-memory for
// unit tests and PostgreSQL for everything else.
package store

import (
	"context"

	"noticerecon/internal/notice/models"
)

// Store is the persistence surface the reconciliation service works against.
// Postgres methods join the ambient transaction when one is carried in ctx.
type Store interface {
	// GetNotice returns sentinel.ErrNotFound for an unknown notice number.
	GetNotice(ctx context.Context, noticeNo string) (*models.Notice, error)
	// CreateNotice inserts a new notice; sentinel.ErrConflict on a duplicate
	// notice number.
	CreateNotice(ctx context.Context, n *models.Notice) error
	// SaveNotice updates the mutable columns of an existing notice.
	SaveNotice(ctx context.Context, n *models.Notice) error

	// UpsertParty inserts or replaces the party keyed by
	// (notice number, role, identity number).
	UpsertParty(ctx context.Context, p *models.Party) error
	// GetParty resolves a party by (notice number, identity number) across
	// roles, so a record for a driver updates the driver row instead of
	// creating an owner twin. sentinel.ErrNotFound when absent.
	GetParty(ctx context.Context, noticeNo, idNo string) (*models.Party, error)
	// DemotePrimaries clears the primary flag on every party of the notice
	// except the given identity number. Used to keep at most one primary.
	DemotePrimaries(ctx context.Context, noticeNo, keepIDNo string) error
	// ListParties returns the parties of a notice in stable order.
	ListParties(ctx context.Context, noticeNo string) ([]models.Party, error)

	// UpsertAddress inserts or replaces the address keyed by
	// (notice number, party identity number, source).
	UpsertAddress(ctx context.Context, a *models.Address) error
	// GetAddress returns sentinel.ErrNotFound when the party has no address
	// from the given source.
	GetAddress(ctx context.Context, noticeNo, partyIDNo, source string) (*models.Address, error)

	// AppendSuspension records one suspension decision. Append-only.
	AppendSuspension(ctx context.Context, e *models.SuspendedNoticeEntry) error
	// ListSuspensions returns the suspension trail of a notice, oldest first.
	ListSuspensions(ctx context.Context, noticeNo string) ([]models.SuspendedNoticeEntry, error)

	// AppendLookupAudit records one secondary-lookup attempt. Append-only.
	AppendLookupAudit(ctx context.Context, a *models.LookupAudit) error

	// ListPendingIDs returns the distinct identity numbers of parties on
	// unsuspended notices, for the outbound registry-confirmation file.
	ListPendingIDs(ctx context.Context, limit int) ([]string, error)

	// RevivalDays returns the configured revival window for a suspension
	// pairing; sentinel.ErrNotFound when no rule exists.
	RevivalDays(ctx context.Context, typ models.SuspensionType, reason models.SuspensionReason) (int, error)
}
