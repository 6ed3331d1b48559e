package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/oarkflow/squealx"

	"github.com/oarkflow/policyeval"
)

// SQLEntityStore serves keyset pagination over one entity type's listing,
// ordered by name. It implements policyeval.EntityStore.
type SQLEntityStore struct {
	db         *squealx.DB
	entityType string
}

func NewSQLEntityStore(db *squealx.DB, entityType string) *SQLEntityStore {
	return &SQLEntityStore{db: db, entityType: entityType}
}

// Insert adds or replaces an entity row
func (s *SQLEntityStore) Insert(ctx context.Context, name string, data []byte) error {
	q := `INSERT INTO entities(name, entity_type, json, deleted, updated_at) VALUES(:name, :entity_type, :json, 0, :updated_at)
		ON CONFLICT(entity_type, name) DO UPDATE SET json = :json, deleted = 0, updated_at = :updated_at`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"name":        name,
		"entity_type": s.entityType,
		"json":        string(data),
		"updated_at":  time.Now(),
	})
	return err
}

// SoftDelete flags an entity as deleted without removing its row
func (s *SQLEntityStore) SoftDelete(ctx context.Context, name string) error {
	return s.setDeleted(ctx, name, true)
}

// Restore clears the deleted flag of a soft-deleted entity
func (s *SQLEntityStore) Restore(ctx context.Context, name string) error {
	return s.setDeleted(ctx, name, false)
}

func (s *SQLEntityStore) setDeleted(ctx context.Context, name string, deleted bool) error {
	q := `UPDATE entities SET deleted = :deleted, updated_at = :updated_at WHERE entity_type = :entity_type AND name = :name`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"name":        name,
		"entity_type": s.entityType,
		"deleted":     boolToInt(deleted),
		"updated_at":  time.Now(),
	})
	return err
}

// EntityRow is a full entity row including soft-delete state
type EntityRow struct {
	Name      string
	Data      []byte
	Deleted   bool
	UpdatedAt time.Time
}

// Get fetches one entity row regardless of its deleted flag
func (s *SQLEntityStore) Get(ctx context.Context, name string) (*EntityRow, error) {
	q := `SELECT name, json, deleted, updated_at FROM entities WHERE entity_type = :entity_type AND name = :name`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"entity_type": s.entityType, "name": name})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if !r.Next() {
		return nil, fmt.Errorf("entity %s: %w", name, policyeval.ErrNotFound)
	}
	var data string
	var deletedInt int
	var updatedRaw interface{}
	row := &EntityRow{}
	if err := r.Scan(&row.Name, &data, &deletedInt, &updatedRaw); err != nil {
		return nil, err
	}
	row.Data = []byte(data)
	row.Deleted = deletedInt != 0
	row.UpdatedAt = scanTime(updatedRaw)
	return row, nil
}

func (s *SQLEntityStore) includeCondition(filter policyeval.ListFilter) string {
	switch filter.Include {
	case policyeval.IncludeDeleted:
		return " AND deleted = 1"
	case policyeval.IncludeAll:
		return ""
	default:
		return " AND deleted = 0"
	}
}

func (s *SQLEntityStore) ListAfter(ctx context.Context, filter policyeval.ListFilter, limit int, after string) ([]policyeval.Record, error) {
	q := `SELECT name, json FROM entities WHERE entity_type = :entity_type` + s.includeCondition(filter)
	params := map[string]any{"entity_type": s.entityType, "limit": limit}
	if after != "" {
		q += ` AND name > :after`
		params["after"] = after
	}
	q += ` ORDER BY name ASC LIMIT :limit`
	return s.scanRecords(ctx, q, params)
}

func (s *SQLEntityStore) ListBefore(ctx context.Context, filter policyeval.ListFilter, limit int, before string) ([]policyeval.Record, error) {
	q := `SELECT name, json FROM entities WHERE entity_type = :entity_type` + s.includeCondition(filter) +
		` AND name < :before ORDER BY name DESC LIMIT :limit`
	params := map[string]any{"entity_type": s.entityType, "before": before, "limit": limit}
	return s.scanRecords(ctx, q, params)
}

func (s *SQLEntityStore) ListCount(ctx context.Context, filter policyeval.ListFilter) (int, error) {
	q := `SELECT COUNT(*) FROM entities WHERE entity_type = :entity_type` + s.includeCondition(filter)
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"entity_type": s.entityType})
	if err != nil {
		return 0, err
	}
	defer r.Close()
	count := 0
	if r.Next() {
		if err := r.Scan(&count); err != nil {
			return 0, err
		}
	}
	return count, nil
}

func (s *SQLEntityStore) scanRecords(ctx context.Context, q string, params map[string]any) ([]policyeval.Record, error) {
	r, err := s.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := make([]policyeval.Record, 0)
	for r.Next() {
		var name, data string
		if err := r.Scan(&name, &data); err != nil {
			return nil, err
		}
		out = append(out, policyeval.Record{Name: name, Data: []byte(data)})
	}
	return out, nil
}
