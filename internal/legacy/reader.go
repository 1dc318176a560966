package legacy

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Reader reads legacy tables through bun's query builder.
type Reader struct {
	*bun.DB
}

// NewReader wraps an existing *sql.DB.
func NewReader(sqlDB *sql.DB) *Reader {
	return &Reader{DB: bun.NewDB(sqlDB, sqlitedialect.New())}
}

// CreateTables creates the legacy tables if they do not exist.
func (r *Reader) CreateTables(ctx context.Context) error {
	for _, model := range []any{(*PageModel)(nil), (*PluginModel)(nil)} {
		if _, err := r.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating legacy table: %w", err)
		}
	}
	return nil
}

// HasTable reports whether the named legacy table exists.
func (r *Reader) HasTable(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.NewRaw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(ctx, &count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Pages returns legacy pages in old traversal order. Sorting by level before
// lft puts every parent ahead of its children while keeping siblings in
// their original left-to-right order.
func (r *Reader) Pages(ctx context.Context) ([]Row, error) {
	var pages []PageModel
	err := r.NewSelect().
		Model(&pages).
		Order("tree_id", "level", "lft").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading legacy pages: %w", err)
	}

	rows := make([]Row, len(pages))
	for i, p := range pages {
		rows[i] = Row{ID: p.ID, ParentID: p.ParentID, Label: p.Title, Kind: "page"}
	}
	return rows, nil
}

// Plugins returns legacy plugins in old traversal order, siblings sorted by
// their position inside the placeholder.
func (r *Reader) Plugins(ctx context.Context) ([]Row, error) {
	var plugins []PluginModel
	err := r.NewSelect().
		Model(&plugins).
		Order("tree_id", "level", "position", "lft").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading legacy plugins: %w", err)
	}

	rows := make([]Row, len(plugins))
	for i, p := range plugins {
		rows[i] = Row{
			ID:       p.ID,
			ParentID: p.ParentID,
			Label:    fmt.Sprintf("placeholder %d (%s)", p.PlaceholderID, p.Language),
			Kind:     p.PluginType,
		}
	}
	return rows, nil
}
