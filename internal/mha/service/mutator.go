package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"noticerecon/internal/mha/codec"
	"noticerecon/internal/mha/identity"
	"noticerecon/internal/mha/rules"
	"noticerecon/internal/notice/models"
	"noticerecon/pkg/platform/sentinel"
)

type detailWork struct {
	resolved identity.Resolved
	rec      codec.DetailRecord
}

type noticeWork struct {
	noticeNo   string
	details    []detailWork
	exceptions []codec.ExceptionRecord
}

// applyNotice applies every record targeting one notice, in input order,
// inside the caller's transaction. The notice is saved once at the end so
// either all of its mutations land or none do.
func (s *Service) applyNotice(ctx context.Context, fileDate time.Time, w noticeWork) (applied, suspensions int, err error) {
	now := s.clock()

	n, err := s.store.GetNotice(ctx, w.noticeNo)
	if err != nil {
		return 0, 0, err
	}

	for _, d := range w.details {
		suspended, err := s.applyDetail(ctx, n, now, fileDate, d)
		if err != nil {
			return 0, 0, &MutationError{NoticeNo: w.noticeNo, Err: err}
		}
		applied++
		if suspended {
			suspensions++
		}
	}
	for _, exc := range w.exceptions {
		suspended, err := s.applyException(ctx, n, now, exc)
		if err != nil {
			return 0, 0, &MutationError{NoticeNo: w.noticeNo, Err: err}
		}
		applied++
		if suspended {
			suspensions++
		}
	}

	if err := s.store.SaveNotice(ctx, n); err != nil {
		return 0, 0, &MutationError{NoticeNo: w.noticeNo, Err: err}
	}
	return applied, suspensions, nil
}

func (s *Service) applyDetail(ctx context.Context, n *models.Notice, now, fileDate time.Time, d detailWork) (bool, error) {
	rec := d.rec
	res := d.resolved

	// Resolve the party across roles so a record for a driver updates the
	// driver row. Fields the record omits keep their stored values.
	party, err := s.store.GetParty(ctx, n.NoticeNo, res.IDNo)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		party = &models.Party{NoticeNo: n.NoticeNo, Role: models.RoleOwner, IDNo: res.IDNo}
	default:
		return false, err
	}

	if res.Name != "" {
		party.Name = res.Name
	}
	if rec.LifeStatus != "" {
		party.Life = models.LifeStatus(rec.LifeStatus)
	}
	if party.Life == "" {
		party.Life = models.LifeAlive
	}
	if !res.DateOfDeath.IsZero() {
		party.DeathDate = res.DateOfDeath
	}
	if rec.Phone != "" {
		party.Phone = rec.Phone
	}
	if rec.Email != "" {
		party.Email = rec.Email
	}
	if res.Primary {
		party.Primary = true
	}
	switch res.Kind {
	case identity.KindPassport:
		party.IDKind = models.IdentityPassport
		party.Nationality = res.Nationality
		party.PassportPlaceOfIssue = res.PlaceOfIssue
	default:
		party.IDKind = models.IdentityNationalID
	}

	// Passport records never touch the address: the registry address keys
	// off the national ID, and a passport holder has none on record.
	if res.Kind != identity.KindPassport {
		if hasAddressPayload(rec) {
			effective := rec.AddressChangeDate
			if effective.IsZero() {
				effective = now
			}
			if err := s.store.UpsertAddress(ctx, &models.Address{
				NoticeNo:      n.NoticeNo,
				PartyIDNo:     res.IDNo,
				Source:        models.AddressSourceRegistry,
				BlockNo:       rec.BlockNo,
				Street:        rec.Street,
				FloorNo:       rec.FloorNo,
				UnitNo:        rec.UnitNo,
				Building:      rec.Building,
				PostalCode:    rec.PostalCode,
				InvalidTag:    rec.InvalidTag,
				EffectiveDate: effective,
			}); err != nil {
				return false, err
			}
		} else if err := s.enrichFromLookup(ctx, n, party, now); err != nil {
			return false, err
		}
	}

	if err := s.store.UpsertParty(ctx, party); err != nil {
		return false, err
	}
	if party.Primary {
		if err := s.store.DemotePrimaries(ctx, n.NoticeNo, party.IDNo); err != nil {
			return false, err
		}
	}

	decision := rules.Decide(rules.Input{
		Diplomatic:        res.Diplomatic,
		Deceased:          res.Deceased,
		DateOfDeath:       res.DateOfDeath,
		InvalidTag:        rec.InvalidTag,
		Street:            rec.Street,
		PostalCode:        rec.PostalCode,
		AddressChangeDate: rec.AddressChangeDate,
		OffenceDate:       n.OffenceDate,
		Now:               now,
	})

	if decision.Diplomatic {
		n.DiplomaticFlag = true
		n.VehicleRegistrationType = "D"
	}

	if decision.Suspend() {
		if n.Suspended() {
			return false, nil
		}
		if err := s.recordSuspension(ctx, n, decision.Type, decision.Reason, decision.Remarks, now); err != nil {
			return false, err
		}
		return true, nil
	}

	s.advanceStage(n, now, fileDate)
	return false, nil
}

// applyException maps a registry exception line to a technical suspension:
// the registry could not match the party, so the notice has no reachable
// owner until someone intervenes.
func (s *Service) applyException(ctx context.Context, n *models.Notice, now time.Time, exc codec.ExceptionRecord) (bool, error) {
	if n.Suspended() {
		return false, nil
	}
	remarks := "registry exception: " + exc.Status
	if err := s.recordSuspension(ctx, n, models.SuspensionTechnical, models.ReasonNoRegisteredOwner, remarks, now); err != nil {
		return false, err
	}
	return true, nil
}

// enrichFromLookup consults the secondary store when the batch record
// carries no address and the party has none on file. Every attempt is
// audited; lookup failures never fail the record.
func (s *Service) enrichFromLookup(ctx context.Context, n *models.Notice, party *models.Party, now time.Time) error {
	_, err := s.store.GetAddress(ctx, n.NoticeNo, party.IDNo, models.AddressSourceRegistry)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}

	rec, lookupErr := s.gateway.Lookup(ctx, party.IDNo)
	switch {
	case lookupErr == nil:
		if party.Phone == "" {
			party.Phone = rec.Phone
		}
		if party.Email == "" {
			party.Email = rec.Email
		}
		if rec.Street != "" || rec.PostalCode != "" || rec.BlockNo != "" {
			if err := s.store.UpsertAddress(ctx, &models.Address{
				NoticeNo:      n.NoticeNo,
				PartyIDNo:     party.IDNo,
				Source:        models.AddressSourceRegistry,
				BlockNo:       rec.BlockNo,
				Street:        rec.Street,
				FloorNo:       rec.FloorNo,
				UnitNo:        rec.UnitNo,
				Building:      rec.Building,
				PostalCode:    rec.PostalCode,
				EffectiveDate: now,
			}); err != nil {
				return err
			}
		}
		return s.auditLookup(ctx, party.IDNo, n.NoticeNo, models.LookupSuccess, "", now)
	case errors.Is(lookupErr, sentinel.ErrNotFound):
		return s.auditLookup(ctx, party.IDNo, n.NoticeNo, models.LookupNotFound, "", now)
	default:
		s.log.Warn("secondary lookup failed",
			"notice_no", n.NoticeNo, "id_no", party.IDNo, "error", lookupErr)
		return s.auditLookup(ctx, party.IDNo, n.NoticeNo, models.LookupError, lookupErr.Error(), now)
	}
}

func (s *Service) auditLookup(ctx context.Context, idNo, noticeNo string, status models.LookupStatus, detail string, now time.Time) error {
	s.metrics.Lookups.WithLabelValues(string(status)).Inc()
	return s.store.AppendLookupAudit(ctx, &models.LookupAudit{
		ID:        uuid.New(),
		IDNo:      idNo,
		NoticeNo:  noticeNo,
		Status:    status,
		Detail:    detail,
		CreatedAt: now,
	})
}

func (s *Service) recordSuspension(ctx context.Context, n *models.Notice, typ models.SuspensionType, reason models.SuspensionReason, remarks string, now time.Time) error {
	n.SuspensionType = typ
	n.SuspensionReason = reason
	n.SuspensionDate = now

	if typ == models.SuspensionTechnical {
		days, err := s.store.RevivalDays(ctx, typ, reason)
		if errors.Is(err, sentinel.ErrNotFound) {
			days = s.revivalDaysDefault
		} else if err != nil {
			return err
		}
		n.RevivalDueDate = now.AddDate(0, 0, days)
	} else {
		n.RevivalDueDate = time.Time{}
	}

	if err := s.store.AppendSuspension(ctx, &models.SuspendedNoticeEntry{
		ID:             uuid.New(),
		NoticeNo:       n.NoticeNo,
		Type:           typ,
		Reason:         reason,
		RevivalDueDate: n.RevivalDueDate,
		Remarks:        remarks,
		CreatedBy:      createdByEngine,
		CreatedAt:      now,
	}); err != nil {
		return fmt.Errorf("append suspension entry: %w", err)
	}

	s.metrics.Suspensions.WithLabelValues(string(typ), string(reason)).Inc()
	s.log.Info("notice suspended",
		"notice_no", n.NoticeNo, "type", typ, "reason", reason, "remarks", remarks)
	return nil
}

// advanceStage moves the notice one rung on a clean decision. A suspended
// notice stays frozen, and a notice already processed for this file date
// does not advance again, which keeps batch re-application idempotent.
func (s *Service) advanceStage(n *models.Notice, now, fileDate time.Time) {
	if n.Suspended() {
		return
	}
	if !fileDate.IsZero() && !n.LastProcessingDate.Before(fileDate) {
		return
	}
	last, next, err := s.stages.Advance(n.NextStage)
	if err != nil {
		s.log.Warn("stage not in table, progression frozen",
			"notice_no", n.NoticeNo, "next_stage", n.NextStage)
		return
	}
	n.LastStage = last
	n.NextStage = next
	n.LastProcessingDate = now
	n.NextProcessingDate = now.Add(24 * time.Hour)
}

func hasAddressPayload(rec codec.DetailRecord) bool {
	return rec.BlockNo != "" || rec.Street != "" || rec.PostalCode != "" || rec.Building != ""
}
