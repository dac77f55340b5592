package models

import (
	"time"

	"github.com/google/uuid"
)

// SuspensionType classifies a suspension: technical (revivable after a fixed
// window) or personal (no automatic revival).
type SuspensionType string

const (
	SuspensionTechnical SuspensionType = "TS"
	SuspensionPersonal  SuspensionType = "PS"
)

// SuspensionReason is the registry-facing reason code paired with a type.
type SuspensionReason string

const (
	ReasonNoRegisteredOwner SuspensionReason = "NRO" // no valid registered address
	ReasonDeceasedAfter     SuspensionReason = "RIP" // owner died after the offence
	ReasonDeceasedBefore    SuspensionReason = "RP2" // owner already deceased at offence time
)

// PartyRole distinguishes the owner and driver slots on a notice.
type PartyRole string

const (
	RoleOwner  PartyRole = "owner"
	RoleDriver PartyRole = "driver"
)

// IdentityKind mirrors the id_type column: national ID or passport. The
// diplomatic marker lives on the Notice, not the Party.
type IdentityKind string

const (
	IdentityNationalID IdentityKind = "N"
	IdentityPassport   IdentityKind = "P"
)

// LifeStatus is the registry-reported life status of a party.
type LifeStatus string

const (
	LifeAlive    LifeStatus = "A"
	LifeDeceased LifeStatus = "D"
)

// Notice is one traffic offence record tracked through the processing
// pipeline.
//
// Invariants:
//   - NoticeNo is the unique key and immutable
//   - At most one suspension marker at a time; a recorded suspension freezes
//     stage progression until an external revival clears it
//   - Stage fields always name codes from the configured stage table
type Notice struct {
	NoticeNo           string
	VehicleNo          string
	OffenceCode        string
	CompositionAmount  int64 // cents
	OffenceDate        time.Time
	LastStage          string
	NextStage          string
	LastProcessingDate time.Time
	NextProcessingDate time.Time

	SuspensionType   SuspensionType
	SuspensionReason SuspensionReason
	SuspensionDate   time.Time
	RevivalDueDate   time.Time

	VehicleRegistrationType string
	DiplomaticFlag          bool
}

// Suspended reports whether a suspension marker is present.
func (n *Notice) Suspended() bool {
	return n.SuspensionType != ""
}

// Party is an owner or driver associated with a Notice.
//
// Invariants:
//   - At most one Party per (NoticeNo, Role, IDNo)
//   - At most one Party per notice carries Primary
//   - Passport kind implies Nationality/PassportPlaceOfIssue may be set;
//     national-ID kind implies they are empty
type Party struct {
	NoticeNo  string
	Role      PartyRole
	IDKind    IdentityKind
	IDNo      string
	Name      string
	Life      LifeStatus
	DeathDate time.Time

	Nationality          string
	PassportPlaceOfIssue string

	Phone   string
	Email   string
	Primary bool
}

// Deceased reports whether the registry has marked the party deceased.
func (p *Party) Deceased() bool {
	return p.Life == LifeDeceased
}

// AddressSourceRegistry tags addresses sourced from the national identity
// registry batch response.
const AddressSourceRegistry = "mha_reg"

// Address is the registered address for one Party, tagged by source.
// A Party has at most one Address per source. When InvalidTag is set the
// lines may be degenerate ("NA" street, empty postal) and represent a
// resolution failure rather than a real address.
type Address struct {
	NoticeNo      string
	PartyIDNo     string
	Source        string
	BlockNo       string
	Street        string
	FloorNo       string
	UnitNo        string
	Building      string
	PostalCode    string
	InvalidTag    string
	EffectiveDate time.Time
}

// SuspendedNoticeEntry is one append-only audit row recording a suspension
// decision. Entries are never updated in place.
type SuspendedNoticeEntry struct {
	ID             uuid.UUID
	NoticeNo       string
	Type           SuspensionType
	Reason         SuspensionReason
	RevivalDueDate time.Time
	Remarks        string
	CreatedBy      string
	CreatedAt      time.Time
}

// LookupStatus is the recorded outcome of one secondary identity lookup.
type LookupStatus string

const (
	LookupSuccess  LookupStatus = "SUCCESS"
	LookupNotFound LookupStatus = "NOT_FOUND"
	LookupError    LookupStatus = "ERROR"
)

// LookupAudit is one append-only row recording a secondary lookup attempt.
type LookupAudit struct {
	ID        uuid.UUID
	IDNo      string
	NoticeNo  string
	Status    LookupStatus
	Detail    string
	CreatedAt time.Time
}

// RevivalRule maps a (type, reason) pair to the number of days after which a
// technical suspension becomes eligible for revival. Personal suspensions
// carry no rule.
type RevivalRule struct {
	Type   SuspensionType
	Reason SuspensionReason
	Days   int
}
