// Package rules is the suspension decision table: an ordered chain of
// predicate→decision rules evaluated highest-precedence first. Each rule is
// pure and testable on its own; the first match wins and later rules are
// never consulted for that record.
package rules

import (
	"fmt"
	"strings"
	"time"

	"noticerecon/internal/notice/models"
)

// Input is everything one decision needs: resolved identity flags plus the
// record's address payload and the notice's offence date. Clock is injected
// so date comparisons stay deterministic under test.
type Input struct {
	Diplomatic  bool
	Deceased    bool
	DateOfDeath time.Time

	InvalidTag        string
	Street            string
	PostalCode        string
	AddressChangeDate time.Time

	OffenceDate time.Time
	Now         time.Time
}

// Decision is the engine's output for one record. Zero Type means no
// suspension. Diplomatic marks the categorical exemption: no suspension and
// the notice gets the diplomatic treatment.
type Decision struct {
	Rule       string
	Type       models.SuspensionType
	Reason     models.SuspensionReason
	Remarks    string
	Diplomatic bool
}

// Suspend reports whether the decision freezes the notice.
func (d Decision) Suspend() bool {
	return d.Type != ""
}

// Rule is one entry of the decision table.
type Rule struct {
	Name string
	Eval func(Input) (Decision, bool)
}

// Chain is the decision table in precedence order. Diplomatic status is a
// categorical exemption and outranks the death check; death outranks the
// address check so an unreachable address never masks an estate case.
func Chain() []Rule {
	return []Rule{
		{Name: "diplomatic-override", Eval: diplomaticOverride},
		{Name: "death-check", Eval: deathCheck},
		{Name: "invalid-address", Eval: invalidAddress},
	}
}

// Decide runs the chain and returns the first matching decision, or the
// zero decision when no rule fires.
func Decide(in Input) Decision {
	for _, r := range Chain() {
		if d, ok := r.Eval(in); ok {
			d.Rule = r.Name
			return d
		}
	}
	return Decision{}
}

func diplomaticOverride(in Input) (Decision, bool) {
	if !in.Diplomatic {
		return Decision{}, false
	}
	return Decision{
		Diplomatic: true,
		Remarks:    "diplomatic registration: exempt from suspension processing",
	}, true
}

// deathCheck compares dates at day granularity. A death date after the
// offence suspends the notice pending estate resolution; a death date on or
// before the offence means the offence was recorded against a deceased
// person and goes to manual review. A death date in the future is a data
// anomaly and falls back to a technical suspension.
func deathCheck(in Input) (Decision, bool) {
	if !in.Deceased || in.DateOfDeath.IsZero() {
		return Decision{}, false
	}
	dod := day(in.DateOfDeath)
	if dod.After(day(in.Now)) {
		return Decision{
			Type:    models.SuspensionTechnical,
			Reason:  models.ReasonNoRegisteredOwner,
			Remarks: fmt.Sprintf("date of death %s is in the future", dod.Format("2006-01-02")),
		}, true
	}
	if dod.After(day(in.OffenceDate)) {
		return Decision{
			Type:    models.SuspensionPersonal,
			Reason:  models.ReasonDeceasedAfter,
			Remarks: "registered owner deceased after offence date",
		}, true
	}
	return Decision{
		Type:    models.SuspensionPersonal,
		Reason:  models.ReasonDeceasedBefore,
		Remarks: "registered owner deceased on or before offence date",
	}, true
}

// invalidAddress fires on any of the registry's no-usable-address signals:
// an explicit invalid-address tag, the degenerate "NA" street with an empty
// postal code, an all-zero postal code, or an address-change date in the
// future.
func invalidAddress(in Input) (Decision, bool) {
	var why string
	switch {
	case in.InvalidTag != "":
		why = fmt.Sprintf("invalid address tag %q", in.InvalidTag)
	case strings.EqualFold(in.Street, "NA") && in.PostalCode == "":
		why = "street NA with empty postal code"
	case in.PostalCode == "000000":
		why = "postal code 000000"
	case !in.AddressChangeDate.IsZero() && day(in.AddressChangeDate).After(day(in.Now)):
		why = fmt.Sprintf("address change date %s is in the future", day(in.AddressChangeDate).Format("2006-01-02"))
	default:
		return Decision{}, false
	}
	return Decision{
		Type:    models.SuspensionTechnical,
		Reason:  models.ReasonNoRegisteredOwner,
		Remarks: "no valid registered address: " + why,
	}, true
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
