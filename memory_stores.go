package policyeval

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ============================================================================
// IN-MEMORY STORES (for tests and small deployments)
// ============================================================================

// MemoryReferenceStore keeps tags, teams and roles in maps
type MemoryReferenceStore struct {
	mu    sync.RWMutex
	tags  map[string]*Tag
	teams map[string]*Team
	roles map[string]*Role
}

func NewMemoryReferenceStore() *MemoryReferenceStore {
	return &MemoryReferenceStore{
		tags:  make(map[string]*Tag),
		teams: make(map[string]*Team),
		roles: make(map[string]*Role),
	}
}

func (m *MemoryReferenceStore) AddTag(t *Tag) {
	m.mu.Lock()
	m.tags[t.FQN] = t
	m.mu.Unlock()
}

func (m *MemoryReferenceStore) AddTeam(t *Team) {
	m.mu.Lock()
	m.teams[t.Name] = t
	m.mu.Unlock()
}

func (m *MemoryReferenceStore) AddRole(r *Role) {
	m.mu.Lock()
	m.roles[r.Name] = r
	m.mu.Unlock()
}

func (m *MemoryReferenceStore) GetTag(ctx context.Context, fqn string) (*Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tags[fqn]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("tag %s: %w", fqn, ErrNotFound)
}

func (m *MemoryReferenceStore) GetTeam(ctx context.Context, name string) (*Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.teams[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("team %s: %w", name, ErrNotFound)
}

func (m *MemoryReferenceStore) GetRole(ctx context.Context, name string) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.roles[name]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("role %s: %w", name, ErrNotFound)
}

type memoryEntityRow struct {
	rec     Record
	deleted bool
}

// MemoryEntityStore keeps an ordered entity listing in memory, sorted by
// record name, with soft-delete flags honored by ListFilter.
type MemoryEntityStore struct {
	mu   sync.RWMutex
	rows []memoryEntityRow
}

func NewMemoryEntityStore() *MemoryEntityStore {
	return &MemoryEntityStore{}
}

// Put inserts or replaces a record, keeping the listing sorted
func (m *MemoryEntityStore) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.rows), func(i int) bool { return m.rows[i].rec.Name >= name })
	if i < len(m.rows) && m.rows[i].rec.Name == name {
		m.rows[i] = memoryEntityRow{rec: Record{Name: name, Data: data}}
		return
	}
	m.rows = append(m.rows, memoryEntityRow{})
	copy(m.rows[i+1:], m.rows[i:])
	m.rows[i] = memoryEntityRow{rec: Record{Name: name, Data: data}}
}

// SoftDelete marks a record deleted without removing it from the listing
func (m *MemoryEntityStore) SoftDelete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].rec.Name == name {
			m.rows[i].deleted = true
			return
		}
	}
}

func (m *MemoryEntityStore) ListAfter(ctx context.Context, filter ListFilter, limit int, after string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, limit)
	for _, row := range m.rows {
		if len(out) == limit {
			break
		}
		if !filter.Matches(row.deleted) {
			continue
		}
		if after != "" && row.rec.Name <= after {
			continue
		}
		out = append(out, row.rec)
	}
	return out, nil
}

func (m *MemoryEntityStore) ListBefore(ctx context.Context, filter ListFilter, limit int, before string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, limit)
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		row := m.rows[i]
		if !filter.Matches(row.deleted) {
			continue
		}
		if row.rec.Name >= before {
			continue
		}
		out = append(out, row.rec)
	}
	return out, nil
}

func (m *MemoryEntityStore) ListCount(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, row := range m.rows {
		if filter.Matches(row.deleted) {
			n++
		}
	}
	return n, nil
}
