// Package datahive is the client side of the secondary person-record
// service. The reconciler consults it when a batch record arrives without a
// usable registered address.
package datahive

import (
	"context"
	"time"
)

// Record is one person record as served by the secondary store.
type Record struct {
	IDNo        string
	Name        string
	DateOfBirth time.Time
	LifeStatus  string
	DateOfDeath time.Time

	BlockNo    string
	Street     string
	FloorNo    string
	UnitNo     string
	Building   string
	PostalCode string

	Phone string
	Email string
}

// Gateway looks up person records by identity number.
//
// Lookup returns sentinel.ErrNotFound when the store has no match and
// sentinel.ErrUnavailable when the store cannot be reached; callers decide
// how each outcome is audited.
type Gateway interface {
	Lookup(ctx context.Context, idNo string) (*Record, error)
}
