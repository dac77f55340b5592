package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"noticerecon/internal/notice/models"
	"noticerecon/pkg/platform/sentinel"
)

type partyKey struct {
	noticeNo string
	role     models.PartyRole
	idNo     string
}

type addressKey struct {
	noticeNo  string
	partyIDNo string
	source    string
}

type ruleKey struct {
	typ    models.SuspensionType
	reason models.SuspensionReason
}

// InMemory is a mutex-guarded Store for unit tests. Values are copied on the
// way in and out so callers can never alias internal state.
type InMemory struct {
	mu           sync.RWMutex
	notices      map[string]models.Notice
	parties      map[partyKey]models.Party
	addresses    map[addressKey]models.Address
	suspensions  []models.SuspendedNoticeEntry
	lookupAudits []models.LookupAudit
	revivalRules map[ruleKey]int
}

var _ Store = (*InMemory)(nil)

// NewInMemory constructs an empty in-memory store seeded with the default
// technical-suspension revival rule.
func NewInMemory() *InMemory {
	return &InMemory{
		notices:   make(map[string]models.Notice),
		parties:   make(map[partyKey]models.Party),
		addresses: make(map[addressKey]models.Address),
		revivalRules: map[ruleKey]int{
			{typ: models.SuspensionTechnical, reason: models.ReasonNoRegisteredOwner}: 90,
		},
	}
}

func (m *InMemory) GetNotice(_ context.Context, noticeNo string) (*models.Notice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notices[noticeNo]
	if !ok {
		return nil, fmt.Errorf("notice %q: %w", noticeNo, sentinel.ErrNotFound)
	}
	return &n, nil
}

func (m *InMemory) CreateNotice(_ context.Context, n *models.Notice) error {
	if n == nil || n.NoticeNo == "" {
		return fmt.Errorf("notice with notice number is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.notices[n.NoticeNo]; exists {
		return fmt.Errorf("notice %q: %w", n.NoticeNo, sentinel.ErrConflict)
	}
	m.notices[n.NoticeNo] = *n
	return nil
}

func (m *InMemory) SaveNotice(_ context.Context, n *models.Notice) error {
	if n == nil || n.NoticeNo == "" {
		return fmt.Errorf("notice with notice number is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.notices[n.NoticeNo]; !exists {
		return fmt.Errorf("notice %q: %w", n.NoticeNo, sentinel.ErrNotFound)
	}
	m.notices[n.NoticeNo] = *n
	return nil
}

func (m *InMemory) UpsertParty(_ context.Context, p *models.Party) error {
	if p == nil || p.NoticeNo == "" || p.IDNo == "" {
		return fmt.Errorf("party with notice and identity number is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parties[partyKey{noticeNo: p.NoticeNo, role: p.Role, idNo: p.IDNo}] = *p
	return nil
}

func (m *InMemory) GetParty(_ context.Context, noticeNo, idNo string) (*models.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.Party
	for k, p := range m.parties {
		if k.noticeNo != noticeNo || k.idNo != idNo {
			continue
		}
		if found == nil || p.Role < found.Role {
			cp := p
			found = &cp
		}
	}
	if found == nil {
		return nil, fmt.Errorf("party %s/%s: %w", noticeNo, idNo, sentinel.ErrNotFound)
	}
	return found, nil
}

func (m *InMemory) DemotePrimaries(_ context.Context, noticeNo, keepIDNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, p := range m.parties {
		if k.noticeNo == noticeNo && k.idNo != keepIDNo && p.Primary {
			p.Primary = false
			m.parties[k] = p
		}
	}
	return nil
}

func (m *InMemory) ListParties(_ context.Context, noticeNo string) ([]models.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Party
	for k, p := range m.parties {
		if k.noticeNo == noticeNo {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].IDNo < out[j].IDNo
	})
	return out, nil
}

func (m *InMemory) UpsertAddress(_ context.Context, a *models.Address) error {
	if a == nil || a.NoticeNo == "" || a.PartyIDNo == "" || a.Source == "" {
		return fmt.Errorf("address with notice, party and source is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[addressKey{noticeNo: a.NoticeNo, partyIDNo: a.PartyIDNo, source: a.Source}] = *a
	return nil
}

func (m *InMemory) GetAddress(_ context.Context, noticeNo, partyIDNo, source string) (*models.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.addresses[addressKey{noticeNo: noticeNo, partyIDNo: partyIDNo, source: source}]
	if !ok {
		return nil, fmt.Errorf("address %s/%s/%s: %w", noticeNo, partyIDNo, source, sentinel.ErrNotFound)
	}
	return &a, nil
}

func (m *InMemory) AppendSuspension(_ context.Context, e *models.SuspendedNoticeEntry) error {
	if e == nil || e.NoticeNo == "" {
		return fmt.Errorf("suspension entry with notice number is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspensions = append(m.suspensions, *e)
	return nil
}

func (m *InMemory) ListSuspensions(_ context.Context, noticeNo string) ([]models.SuspendedNoticeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.SuspendedNoticeEntry
	for _, e := range m.suspensions {
		if e.NoticeNo == noticeNo {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *InMemory) AppendLookupAudit(_ context.Context, a *models.LookupAudit) error {
	if a == nil || a.IDNo == "" {
		return fmt.Errorf("lookup audit with identity number is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupAudits = append(m.lookupAudits, *a)
	return nil
}

// ListLookupAudits is a test convenience not part of the Store interface.
func (m *InMemory) ListLookupAudits(idNo string) []models.LookupAudit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.LookupAudit
	for _, a := range m.lookupAudits {
		if a.IDNo == idNo {
			out = append(out, a)
		}
	}
	return out
}

func (m *InMemory) ListPendingIDs(_ context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for k := range m.parties {
		n, ok := m.notices[k.noticeNo]
		if !ok || n.Suspended() {
			continue
		}
		if _, dup := seen[k.idNo]; dup {
			continue
		}
		seen[k.idNo] = struct{}{}
		out = append(out, k.idNo)
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *InMemory) RevivalDays(_ context.Context, typ models.SuspensionType, reason models.SuspensionReason) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	days, ok := m.revivalRules[ruleKey{typ: typ, reason: reason}]
	if !ok {
		return 0, fmt.Errorf("revival rule %s/%s: %w", typ, reason, sentinel.ErrNotFound)
	}
	return days, nil
}

// SetRevivalRule overrides a revival window for tests.
func (m *InMemory) SetRevivalRule(typ models.SuspensionType, reason models.SuspensionReason, days int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revivalRules[ruleKey{typ: typ, reason: reason}] = days
}
