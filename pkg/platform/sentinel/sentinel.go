package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so the reconciliation service can translate them into per-record
// outcomes without inspecting driver errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: notice/party does not exist in store
// - ErrConflict: write collided with an existing row
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: external service or resource temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
