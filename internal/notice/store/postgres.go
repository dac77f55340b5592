package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"noticerecon/internal/notice/models"
	"noticerecon/pkg/platform/sentinel"
	"noticerecon/pkg/platform/tx"
)

// Postgres persists notices in PostgreSQL. Every method resolves its
// executor through the transaction context, so calls made inside a
// transactional closure share that transaction.
type Postgres struct {
	db *sql.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const noticeColumns = `notice_no, vehicle_no, offence_code, composition_amount_cents,
	offence_date, last_stage, next_stage, last_processing_date, next_processing_date,
	suspension_type, suspension_reason, suspension_date, revival_due_date,
	vehicle_registration_type, diplomatic_flag`

func (p *Postgres) GetNotice(ctx context.Context, noticeNo string) (*models.Notice, error) {
	q := tx.Executor(ctx, p.db)
	row := q.QueryRowContext(ctx, `SELECT `+noticeColumns+` FROM notices WHERE notice_no = $1`, noticeNo)

	var (
		n                    models.Notice
		lastProc, nextProc   sql.NullTime
		susType, susReason   sql.NullString
		susDate, revivalDate sql.NullTime
	)
	err := row.Scan(
		&n.NoticeNo, &n.VehicleNo, &n.OffenceCode, &n.CompositionAmount,
		&n.OffenceDate, &n.LastStage, &n.NextStage, &lastProc, &nextProc,
		&susType, &susReason, &susDate, &revivalDate,
		&n.VehicleRegistrationType, &n.DiplomaticFlag,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notice %q: %w", noticeNo, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get notice: %w", err)
	}
	n.LastProcessingDate = lastProc.Time
	n.NextProcessingDate = nextProc.Time
	n.SuspensionType = models.SuspensionType(susType.String)
	n.SuspensionReason = models.SuspensionReason(susReason.String)
	n.SuspensionDate = susDate.Time
	n.RevivalDueDate = revivalDate.Time
	return &n, nil
}

func (p *Postgres) CreateNotice(ctx context.Context, n *models.Notice) error {
	if n == nil || n.NoticeNo == "" {
		return fmt.Errorf("notice with notice number is required")
	}
	q := tx.Executor(ctx, p.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO notices (`+noticeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, n.NoticeNo, n.VehicleNo, n.OffenceCode, n.CompositionAmount,
		n.OffenceDate, n.LastStage, n.NextStage,
		nullTime(n.LastProcessingDate), nullTime(n.NextProcessingDate),
		nullString(string(n.SuspensionType)), nullString(string(n.SuspensionReason)),
		nullTime(n.SuspensionDate), nullTime(n.RevivalDueDate),
		n.VehicleRegistrationType, n.DiplomaticFlag)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("notice %q: %w", n.NoticeNo, sentinel.ErrConflict)
		}
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

func (p *Postgres) SaveNotice(ctx context.Context, n *models.Notice) error {
	if n == nil || n.NoticeNo == "" {
		return fmt.Errorf("notice with notice number is required")
	}
	q := tx.Executor(ctx, p.db)
	res, err := q.ExecContext(ctx, `
		UPDATE notices SET
			vehicle_no = $2, offence_code = $3, composition_amount_cents = $4,
			offence_date = $5, last_stage = $6, next_stage = $7,
			last_processing_date = $8, next_processing_date = $9,
			suspension_type = $10, suspension_reason = $11,
			suspension_date = $12, revival_due_date = $13,
			vehicle_registration_type = $14, diplomatic_flag = $15,
			updated_at = NOW()
		WHERE notice_no = $1
	`, n.NoticeNo, n.VehicleNo, n.OffenceCode, n.CompositionAmount,
		n.OffenceDate, n.LastStage, n.NextStage,
		nullTime(n.LastProcessingDate), nullTime(n.NextProcessingDate),
		nullString(string(n.SuspensionType)), nullString(string(n.SuspensionReason)),
		nullTime(n.SuspensionDate), nullTime(n.RevivalDueDate),
		n.VehicleRegistrationType, n.DiplomaticFlag)
	if err != nil {
		return fmt.Errorf("save notice: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("notice %q: %w", n.NoticeNo, sentinel.ErrNotFound)
	}
	return nil
}

func (p *Postgres) UpsertParty(ctx context.Context, party *models.Party) error {
	if party == nil || party.NoticeNo == "" || party.IDNo == "" {
		return fmt.Errorf("party with notice and identity number is required")
	}
	q := tx.Executor(ctx, p.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO parties (notice_no, role, id_no, id_kind, name, life_status,
			death_date, nationality, passport_place_of_issue, phone, email, is_primary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (notice_no, role, id_no) DO UPDATE SET
			id_kind = EXCLUDED.id_kind,
			name = EXCLUDED.name,
			life_status = EXCLUDED.life_status,
			death_date = EXCLUDED.death_date,
			nationality = EXCLUDED.nationality,
			passport_place_of_issue = EXCLUDED.passport_place_of_issue,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			is_primary = EXCLUDED.is_primary,
			updated_at = NOW()
	`, party.NoticeNo, party.Role, party.IDNo, party.IDKind, party.Name,
		party.Life, nullTime(party.DeathDate), party.Nationality,
		party.PassportPlaceOfIssue, party.Phone, party.Email, party.Primary)
	if err != nil {
		return fmt.Errorf("upsert party: %w", err)
	}
	return nil
}

func (p *Postgres) GetParty(ctx context.Context, noticeNo, idNo string) (*models.Party, error) {
	q := tx.Executor(ctx, p.db)
	row := q.QueryRowContext(ctx, `
		SELECT notice_no, role, id_no, id_kind, name, life_status, death_date,
			nationality, passport_place_of_issue, phone, email, is_primary
		FROM parties
		WHERE notice_no = $1 AND id_no = $2
		ORDER BY role
		LIMIT 1
	`, noticeNo, idNo)

	var (
		party     models.Party
		deathDate sql.NullTime
	)
	err := row.Scan(&party.NoticeNo, &party.Role, &party.IDNo, &party.IDKind,
		&party.Name, &party.Life, &deathDate, &party.Nationality,
		&party.PassportPlaceOfIssue, &party.Phone, &party.Email, &party.Primary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("party %s/%s: %w", noticeNo, idNo, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get party: %w", err)
	}
	party.DeathDate = deathDate.Time
	return &party, nil
}

func (p *Postgres) DemotePrimaries(ctx context.Context, noticeNo, keepIDNo string) error {
	q := tx.Executor(ctx, p.db)
	_, err := q.ExecContext(ctx, `
		UPDATE parties SET is_primary = FALSE, updated_at = NOW()
		WHERE notice_no = $1 AND id_no <> $2 AND is_primary
	`, noticeNo, keepIDNo)
	if err != nil {
		return fmt.Errorf("demote primaries: %w", err)
	}
	return nil
}

func (p *Postgres) ListParties(ctx context.Context, noticeNo string) ([]models.Party, error) {
	q := tx.Executor(ctx, p.db)
	rows, err := q.QueryContext(ctx, `
		SELECT notice_no, role, id_no, id_kind, name, life_status, death_date,
			nationality, passport_place_of_issue, phone, email, is_primary
		FROM parties
		WHERE notice_no = $1
		ORDER BY role, id_no
	`, noticeNo)
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	defer rows.Close()

	var out []models.Party
	for rows.Next() {
		var (
			party     models.Party
			deathDate sql.NullTime
		)
		if err := rows.Scan(&party.NoticeNo, &party.Role, &party.IDNo, &party.IDKind,
			&party.Name, &party.Life, &deathDate, &party.Nationality,
			&party.PassportPlaceOfIssue, &party.Phone, &party.Email, &party.Primary); err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		party.DeathDate = deathDate.Time
		out = append(out, party)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	return out, nil
}

func (p *Postgres) UpsertAddress(ctx context.Context, a *models.Address) error {
	if a == nil || a.NoticeNo == "" || a.PartyIDNo == "" || a.Source == "" {
		return fmt.Errorf("address with notice, party and source is required")
	}
	q := tx.Executor(ctx, p.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO addresses (notice_no, party_id_no, source, block_no, street,
			floor_no, unit_no, building, postal_code, invalid_tag, effective_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (notice_no, party_id_no, source) DO UPDATE SET
			block_no = EXCLUDED.block_no,
			street = EXCLUDED.street,
			floor_no = EXCLUDED.floor_no,
			unit_no = EXCLUDED.unit_no,
			building = EXCLUDED.building,
			postal_code = EXCLUDED.postal_code,
			invalid_tag = EXCLUDED.invalid_tag,
			effective_date = EXCLUDED.effective_date,
			updated_at = NOW()
	`, a.NoticeNo, a.PartyIDNo, a.Source, a.BlockNo, a.Street, a.FloorNo,
		a.UnitNo, a.Building, a.PostalCode, a.InvalidTag, nullTime(a.EffectiveDate))
	if err != nil {
		return fmt.Errorf("upsert address: %w", err)
	}
	return nil
}

func (p *Postgres) GetAddress(ctx context.Context, noticeNo, partyIDNo, source string) (*models.Address, error) {
	q := tx.Executor(ctx, p.db)
	row := q.QueryRowContext(ctx, `
		SELECT notice_no, party_id_no, source, block_no, street, floor_no,
			unit_no, building, postal_code, invalid_tag, effective_date
		FROM addresses
		WHERE notice_no = $1 AND party_id_no = $2 AND source = $3
	`, noticeNo, partyIDNo, source)

	var (
		a         models.Address
		effective sql.NullTime
	)
	err := row.Scan(&a.NoticeNo, &a.PartyIDNo, &a.Source, &a.BlockNo, &a.Street,
		&a.FloorNo, &a.UnitNo, &a.Building, &a.PostalCode, &a.InvalidTag, &effective)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("address %s/%s/%s: %w", noticeNo, partyIDNo, source, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	a.EffectiveDate = effective.Time
	return &a, nil
}

func (p *Postgres) AppendSuspension(ctx context.Context, e *models.SuspendedNoticeEntry) error {
	if e == nil || e.NoticeNo == "" {
		return fmt.Errorf("suspension entry with notice number is required")
	}
	q := tx.Executor(ctx, p.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO suspended_notices (id, notice_no, suspension_type,
			suspension_reason, revival_due_date, remarks, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.NoticeNo, e.Type, e.Reason, nullTime(e.RevivalDueDate),
		e.Remarks, e.CreatedBy, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append suspension: %w", err)
	}
	return nil
}

func (p *Postgres) ListSuspensions(ctx context.Context, noticeNo string) ([]models.SuspendedNoticeEntry, error) {
	q := tx.Executor(ctx, p.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, notice_no, suspension_type, suspension_reason,
			revival_due_date, remarks, created_by, created_at
		FROM suspended_notices
		WHERE notice_no = $1
		ORDER BY created_at, id
	`, noticeNo)
	if err != nil {
		return nil, fmt.Errorf("list suspensions: %w", err)
	}
	defer rows.Close()

	var out []models.SuspendedNoticeEntry
	for rows.Next() {
		var (
			e       models.SuspendedNoticeEntry
			revival sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.NoticeNo, &e.Type, &e.Reason, &revival,
			&e.Remarks, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan suspension: %w", err)
		}
		e.RevivalDueDate = revival.Time
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list suspensions: %w", err)
	}
	return out, nil
}

func (p *Postgres) AppendLookupAudit(ctx context.Context, a *models.LookupAudit) error {
	if a == nil || a.IDNo == "" {
		return fmt.Errorf("lookup audit with identity number is required")
	}
	q := tx.Executor(ctx, p.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO lookup_audits (id, id_no, notice_no, status, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.IDNo, a.NoticeNo, a.Status, a.Detail, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("append lookup audit: %w", err)
	}
	return nil
}

func (p *Postgres) ListPendingIDs(ctx context.Context, limit int) ([]string, error) {
	q := tx.Executor(ctx, p.db)
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT pa.id_no
		FROM parties pa
		JOIN notices n ON n.notice_no = pa.notice_no
		WHERE n.suspension_type IS NULL
		ORDER BY pa.id_no
		LIMIT $1
	`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var idNo string
		if err := rows.Scan(&idNo); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		out = append(out, idNo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending ids: %w", err)
	}
	return out, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 10000
	}
	return limit
}

func (p *Postgres) RevivalDays(ctx context.Context, typ models.SuspensionType, reason models.SuspensionReason) (int, error) {
	q := tx.Executor(ctx, p.db)
	var days int
	err := q.QueryRowContext(ctx, `
		SELECT days FROM revival_rules
		WHERE suspension_type = $1 AND suspension_reason = $2
	`, typ, reason).Scan(&days)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("revival rule %s/%s: %w", typ, reason, sentinel.ErrNotFound)
		}
		return 0, fmt.Errorf("revival days: %w", err)
	}
	return days, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
