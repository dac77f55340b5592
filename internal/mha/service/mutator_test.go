package service

import (
	"noticerecon/internal/datahive"
	"noticerecon/internal/mha/codec"
	"noticerecon/internal/notice/models"
	"noticerecon/pkg/platform/sentinel"
)

// Lookup-path tests share the ServiceSuite fixtures.

func (s *ServiceSuite) noAddressDetail(id, noticeNo string) codec.DetailRecord {
	rec := s.detail(id, noticeNo)
	rec.BlockNo = ""
	rec.Street = ""
	rec.PostalCode = ""
	rec.Building = ""
	return rec
}

// TestLookupEnrichment: a record without an address triggers a secondary
// lookup; a hit writes the address and contact details and audits SUCCESS.
func (s *ServiceSuite) TestLookupEnrichment() {
	s.seedNotice("LOOKUP0001")
	s.gateway.Put(datahive.Record{
		IDNo:       "T9716729F",
		Name:       "TAN AH KOW",
		BlockNo:    "88",
		Street:     "SCOTTS ROAD",
		PostalCode: "228221",
		Phone:      "+6598765432",
		Email:      "owner@example.com",
	})

	s.process([]codec.DetailRecord{s.noAddressDetail("T9716729F", "LOOKUP0001")}, nil)

	s.Equal([]string{"T9716729F"}, s.gateway.Calls())

	addr, err := s.store.GetAddress(s.ctx, "LOOKUP0001", "T9716729F", models.AddressSourceRegistry)
	s.Require().NoError(err)
	s.Equal("SCOTTS ROAD", addr.Street)

	parties, err := s.store.ListParties(s.ctx, "LOOKUP0001")
	s.Require().NoError(err)
	s.Require().Len(parties, 1)
	s.Equal("+6598765432", parties[0].Phone)
	s.Equal("owner@example.com", parties[0].Email)

	audits := s.store.ListLookupAudits("T9716729F")
	s.Require().Len(audits, 1)
	s.Equal(models.LookupSuccess, audits[0].Status)
}

// TestLookupNotFound: a miss leaves the party unchanged and audits NOT_FOUND.
func (s *ServiceSuite) TestLookupNotFound() {
	s.seedNotice("LOOKUP0002")

	sum := s.process([]codec.DetailRecord{s.noAddressDetail("T9716729F", "LOOKUP0002")}, nil)
	s.Equal(1, sum.Applied)

	_, err := s.store.GetAddress(s.ctx, "LOOKUP0002", "T9716729F", models.AddressSourceRegistry)
	s.Require().Error(err)

	audits := s.store.ListLookupAudits("T9716729F")
	s.Require().Len(audits, 1)
	s.Equal(models.LookupNotFound, audits[0].Status)
}

// TestLookupOutage: a gateway failure is audited as ERROR and never fails
// the record.
func (s *ServiceSuite) TestLookupOutage() {
	s.seedNotice("LOOKUP0003")
	s.gateway.SetDown(true)

	sum := s.process([]codec.DetailRecord{s.noAddressDetail("T9716729F", "LOOKUP0003")}, nil)
	s.Equal(1, sum.Applied)
	s.Equal(0, sum.Errored)

	audits := s.store.ListLookupAudits("T9716729F")
	s.Require().Len(audits, 1)
	s.Equal(models.LookupError, audits[0].Status)
	s.NotEmpty(audits[0].Detail)

	n, err := s.store.GetNotice(s.ctx, "LOOKUP0003")
	s.Require().NoError(err)
	s.Equal("ROV", n.LastStage, "outage must not block progression")
}

// TestLookupMissKeepsStoredContact: a lookup miss (and an outage) must leave
// the party's stored phone and email exactly as they were.
func (s *ServiceSuite) TestLookupMissKeepsStoredContact() {
	seed := func(noticeNo string) {
		s.seedNotice(noticeNo)
		s.Require().NoError(s.store.UpsertParty(s.ctx, &models.Party{
			NoticeNo: noticeNo,
			Role:     models.RoleOwner,
			IDKind:   models.IdentityNationalID,
			IDNo:     "T9716729F",
			Name:     "TAN AH KOW",
			Life:     models.LifeAlive,
			Phone:    "+6591112222",
			Email:    "kept@example.com",
		}))
	}

	s.Run("not found", func() {
		seed("KEEP000001")

		s.process([]codec.DetailRecord{s.noAddressDetail("T9716729F", "KEEP000001")}, nil)

		parties, err := s.store.ListParties(s.ctx, "KEEP000001")
		s.Require().NoError(err)
		s.Require().Len(parties, 1)
		s.Equal("+6591112222", parties[0].Phone)
		s.Equal("kept@example.com", parties[0].Email)
	})

	s.Run("outage", func() {
		seed("KEEP000002")
		s.gateway.SetDown(true)

		s.process([]codec.DetailRecord{s.noAddressDetail("T9716729F", "KEEP000002")}, nil)

		parties, err := s.store.ListParties(s.ctx, "KEEP000002")
		s.Require().NoError(err)
		s.Require().Len(parties, 1)
		s.Equal("+6591112222", parties[0].Phone)
		s.Equal("kept@example.com", parties[0].Email)
	})
}

// TestDriverRecordKeepsRole: a record for a party already on file as the
// driver updates that row instead of creating an owner twin.
func (s *ServiceSuite) TestDriverRecordKeepsRole() {
	s.seedNotice("DRIVER0001")
	s.Require().NoError(s.store.UpsertParty(s.ctx, &models.Party{
		NoticeNo: "DRIVER0001",
		Role:     models.RoleDriver,
		IDKind:   models.IdentityNationalID,
		IDNo:     "S2170362A",
		Name:     "LIM BEE HOON",
		Life:     models.LifeAlive,
	}))

	s.process([]codec.DetailRecord{s.detail("S2170362A", "DRIVER0001")}, nil)

	parties, err := s.store.ListParties(s.ctx, "DRIVER0001")
	s.Require().NoError(err)
	s.Require().Len(parties, 1)
	s.Equal(models.RoleDriver, parties[0].Role)
	s.Equal("TAN AH KOW", parties[0].Name, "record fields still land on the driver row")
}

// TestPassportLeavesAddressUntouched: passport-kind records never write the
// registry address and never trigger the secondary lookup.
func (s *ServiceSuite) TestPassportLeavesAddressUntouched() {
	s.Run("existing address survives", func() {
		s.seedNotice("PPADDR0001")
		s.Require().NoError(s.store.UpsertAddress(s.ctx, &models.Address{
			NoticeNo:   "PPADDR0001",
			PartyIDNo:  "A12345678",
			Source:     models.AddressSourceRegistry,
			Street:     "EXISTING ROAD",
			PostalCode: "111111",
		}))

		rec := s.detail("A12345678", "PPADDR0001")
		rec.PassportIndicator = true
		rec.Nationality = "MALAYSIAN"
		s.process([]codec.DetailRecord{rec}, nil)

		addr, err := s.store.GetAddress(s.ctx, "PPADDR0001", "A12345678", models.AddressSourceRegistry)
		s.Require().NoError(err)
		s.Equal("EXISTING ROAD", addr.Street)
	})

	s.Run("no lookup without an address", func() {
		s.seedNotice("PPADDR0002")

		rec := s.noAddressDetail("A12345678", "PPADDR0002")
		rec.PassportIndicator = true
		rec.Nationality = "MALAYSIAN"
		s.process([]codec.DetailRecord{rec}, nil)

		s.Empty(s.gateway.Calls())
		_, err := s.store.GetAddress(s.ctx, "PPADDR0002", "A12345678", models.AddressSourceRegistry)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestLookupSkippedWhenAddressOnFile: an existing registry address means no
// gateway call at all.
func (s *ServiceSuite) TestLookupSkippedWhenAddressOnFile() {
	s.seedNotice("LOOKUP0004")
	s.Require().NoError(s.store.UpsertAddress(s.ctx, &models.Address{
		NoticeNo:   "LOOKUP0004",
		PartyIDNo:  "T9716729F",
		Source:     models.AddressSourceRegistry,
		Street:     "EXISTING ROAD",
		PostalCode: "111111",
	}))

	s.process([]codec.DetailRecord{s.noAddressDetail("T9716729F", "LOOKUP0004")}, nil)

	s.Empty(s.gateway.Calls())
	s.Empty(s.store.ListLookupAudits("T9716729F"))
}
