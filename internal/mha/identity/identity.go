// Package identity classifies parsed detail records into a tagged identity
// union so downstream rules never see kind-dependent nullable fields.
package identity

import (
	"fmt"
	"regexp"
	"time"

	"noticerecon/internal/mha/codec"
)

// Kind tags a resolved identity.
type Kind int

const (
	KindNationalID Kind = iota
	KindPassport
)

func (k Kind) String() string {
	switch k {
	case KindNationalID:
		return "national-id"
	case KindPassport:
		return "passport"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	nationalIDPattern = regexp.MustCompile(`^[STFG]\d{7}[A-Z]$`)
	passportPattern   = regexp.MustCompile(`^[A-Z]\d{7,8}[A-Z]?$`)
)

// Resolved is the tagged output of Resolve. Exactly the fields relevant to
// the kind are set; passport-specific fields are empty for national IDs.
type Resolved struct {
	Kind     Kind
	IDNo     string
	NoticeNo string
	Name     string

	Deceased    bool
	DateOfDeath time.Time

	// Passport only.
	Nationality  string
	PlaceOfIssue string

	// Diplomatic marker is additive: the record still resolves a party, but
	// the notice additionally gets the diplomatic treatment.
	Diplomatic bool

	Primary bool
}

// UnresolvedError marks a record whose identity shape is not recognized.
// The record is skipped; the batch continues.
type UnresolvedError struct {
	IDNo   string
	Reason string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved identity %q: %s", e.IDNo, e.Reason)
}

// Resolve classifies one detail record. The passport indicator wins over the
// national-ID pattern: a party switching to passport keeps the passport kind
// even when the old NRIC is still on file.
func Resolve(rec codec.DetailRecord) (Resolved, error) {
	res := Resolved{
		IDNo:        rec.IDNo,
		NoticeNo:    rec.NoticeNo,
		Name:        rec.Name,
		Deceased:    rec.LifeStatus == "D",
		DateOfDeath: rec.DateOfDeath,
		Diplomatic:  rec.DiplomaticFlag,
		Primary:     rec.PrimaryFlag,
	}

	switch {
	case rec.PassportIndicator:
		if !passportPattern.MatchString(rec.IDNo) {
			return Resolved{}, &UnresolvedError{IDNo: rec.IDNo, Reason: "passport indicator set but number is not passport-shaped"}
		}
		res.Kind = KindPassport
		res.Nationality = rec.Nationality
		res.PlaceOfIssue = rec.PlaceOfIssue
	case nationalIDPattern.MatchString(rec.IDNo):
		res.Kind = KindNationalID
	default:
		return Resolved{}, &UnresolvedError{IDNo: rec.IDNo, Reason: "identity number matches no known pattern"}
	}
	return res, nil
}
