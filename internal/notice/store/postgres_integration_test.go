//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"noticerecon/internal/notice/models"
	"noticerecon/internal/notice/store"
	"noticerecon/pkg/platform/sentinel"
	"noticerecon/pkg/platform/tx"
	"noticerecon/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"lookup_audits", "suspended_notices", "addresses", "parties", "notices")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newNotice(noticeNo string) *models.Notice {
	return &models.Notice{
		NoticeNo:    noticeNo,
		VehicleNo:   "SGX1234A",
		OffenceCode: "PKG01",
		OffenceDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		LastStage:   "NPA",
		NextStage:   "ROV",
	}
}

func (s *PostgresStoreSuite) TestNoticeRoundTrip() {
	ctx := context.Background()

	n := s.newNotice("MHATEST001")
	n.SuspensionType = models.SuspensionTechnical
	n.SuspensionReason = models.ReasonNoRegisteredOwner
	n.SuspensionDate = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	n.RevivalDueDate = n.SuspensionDate.AddDate(0, 0, 90)
	s.Require().NoError(s.store.CreateNotice(ctx, n))

	found, err := s.store.GetNotice(ctx, "MHATEST001")
	s.Require().NoError(err)
	s.Equal(models.SuspensionTechnical, found.SuspensionType)
	s.Equal(models.ReasonNoRegisteredOwner, found.SuspensionReason)
	s.True(found.RevivalDueDate.Equal(n.RevivalDueDate))
}

func (s *PostgresStoreSuite) TestNullableColumns() {
	ctx := context.Background()

	s.Require().NoError(s.store.CreateNotice(ctx, s.newNotice("NULLS00001")))

	found, err := s.store.GetNotice(ctx, "NULLS00001")
	s.Require().NoError(err)
	s.False(found.Suspended())
	s.True(found.SuspensionDate.IsZero())
	s.True(found.RevivalDueDate.IsZero())
}

func (s *PostgresStoreSuite) TestDuplicateNotice() {
	ctx := context.Background()
	n := s.newNotice("DUP0000001")
	s.Require().NoError(s.store.CreateNotice(ctx, n))
	s.Require().ErrorIs(s.store.CreateNotice(ctx, n), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.GetNotice(ctx, "GHOST00001")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().ErrorIs(s.store.SaveNotice(ctx, s.newNotice("GHOST00001")), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPartyUpsertAndDemote() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateNotice(ctx, s.newNotice("PARTY00001")))

	owner := &models.Party{
		NoticeNo: "PARTY00001",
		Role:     models.RoleOwner,
		IDKind:   models.IdentityNationalID,
		IDNo:     "T9716729F",
		Name:     "TAN AH KOW",
		Life:     models.LifeAlive,
		Primary:  true,
	}
	s.Require().NoError(s.store.UpsertParty(ctx, owner))

	driver := &models.Party{
		NoticeNo: "PARTY00001",
		Role:     models.RoleDriver,
		IDKind:   models.IdentityPassport,
		IDNo:     "A12345678",
		Name:     "JOHN DOE",
		Life:     models.LifeAlive,

		Nationality:          "MALAYSIAN",
		PassportPlaceOfIssue: "KUALA LUMPUR",
		Primary:              true,
	}
	s.Require().NoError(s.store.UpsertParty(ctx, driver))
	s.Require().NoError(s.store.DemotePrimaries(ctx, "PARTY00001", "A12345678"))

	parties, err := s.store.ListParties(ctx, "PARTY00001")
	s.Require().NoError(err)
	s.Require().Len(parties, 2)

	var primaries int
	for _, p := range parties {
		if p.Primary {
			primaries++
			s.Equal("A12345678", p.IDNo)
			s.Equal("MALAYSIAN", p.Nationality)
		}
	}
	s.Equal(1, primaries)
}

func (s *PostgresStoreSuite) TestGetPartyAcrossRoles() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateNotice(ctx, s.newNotice("ROLE000001")))

	s.Require().NoError(s.store.UpsertParty(ctx, &models.Party{
		NoticeNo: "ROLE000001",
		Role:     models.RoleDriver,
		IDKind:   models.IdentityNationalID,
		IDNo:     "S2170362A",
		Name:     "LIM BEE HOON",
		Life:     models.LifeAlive,
		Phone:    "+6591112222",
	}))

	p, err := s.store.GetParty(ctx, "ROLE000001", "S2170362A")
	s.Require().NoError(err)
	s.Equal(models.RoleDriver, p.Role)
	s.Equal("+6591112222", p.Phone)

	_, err = s.store.GetParty(ctx, "ROLE000001", "T9716729F")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAddressUpsert() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateNotice(ctx, s.newNotice("ADDR000001")))

	addr := &models.Address{
		NoticeNo:   "ADDR000001",
		PartyIDNo:  "T9716729F",
		Source:     models.AddressSourceRegistry,
		BlockNo:    "123",
		Street:     "ORCHARD ROAD",
		PostalCode: "238823",
	}
	s.Require().NoError(s.store.UpsertAddress(ctx, addr))

	addr.Street = "SCOTTS ROAD"
	addr.InvalidTag = "G"
	s.Require().NoError(s.store.UpsertAddress(ctx, addr))

	var street, tag string
	err := s.postgres.DB.QueryRowContext(ctx, `
		SELECT street, invalid_tag FROM addresses
		WHERE notice_no = $1 AND party_id_no = $2 AND source = $3
	`, "ADDR000001", "T9716729F", models.AddressSourceRegistry).Scan(&street, &tag)
	s.Require().NoError(err)
	s.Equal("SCOTTS ROAD", street)
	s.Equal("G", tag)
}

func (s *PostgresStoreSuite) TestSuspensionTrail() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.AppendSuspension(ctx, &models.SuspendedNoticeEntry{
			ID:        uuid.New(),
			NoticeNo:  "TRAIL00001",
			Type:      models.SuspensionTechnical,
			Reason:    models.ReasonNoRegisteredOwner,
			Remarks:   "no valid registered address",
			CreatedBy: "recon",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	trail, err := s.store.ListSuspensions(ctx, "TRAIL00001")
	s.Require().NoError(err)
	s.Len(trail, 3)
}

func (s *PostgresStoreSuite) TestRevivalRuleSeed() {
	ctx := context.Background()

	days, err := s.store.RevivalDays(ctx, models.SuspensionTechnical, models.ReasonNoRegisteredOwner)
	s.Require().NoError(err)
	s.Equal(90, days)

	_, err = s.store.RevivalDays(ctx, models.SuspensionPersonal, models.ReasonDeceasedAfter)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestTransactionJoin verifies store calls inside a transactional context
// share the transaction and roll back together.
func (s *PostgresStoreSuite) TestTransactionJoin() {
	ctx := context.Background()

	sqlTx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txCtx := tx.WithTx(ctx, sqlTx)

	s.Require().NoError(s.store.CreateNotice(txCtx, s.newNotice("TXROLL0001")))

	// Visible inside the transaction.
	_, err = s.store.GetNotice(txCtx, "TXROLL0001")
	s.Require().NoError(err)

	s.Require().NoError(sqlTx.Rollback())

	// Gone after rollback.
	_, err = s.store.GetNotice(ctx, "TXROLL0001")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
