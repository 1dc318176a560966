// Package legacy converts trees stored in the old nested-set (MPTT) tables
// into materialized paths. The conversion is a one-way batch pass.
package legacy

import "github.com/uptrace/bun"

// PageModel is a row of the pre-migration page table
type PageModel struct {
	bun.BaseModel `bun:"table:legacy_pages"`

	ID       int64  `bun:"id,pk,autoincrement"`
	ParentID *int64 `bun:"parent_id"`
	TreeID   int64  `bun:"tree_id,notnull"`
	Lft      int64  `bun:"lft,notnull"`
	Rght     int64  `bun:"rght,notnull"`
	Level    int64  `bun:"level,notnull"`
	Title    string `bun:"title,notnull"`
}

// PluginModel is a row of the pre-migration plugin table
type PluginModel struct {
	bun.BaseModel `bun:"table:legacy_plugins"`

	ID            int64  `bun:"id,pk,autoincrement"`
	ParentID      *int64 `bun:"parent_id"`
	PlaceholderID int64  `bun:"placeholder_id,notnull"`
	Position      int64  `bun:"position,notnull"`
	TreeID        int64  `bun:"tree_id,notnull"`
	Lft           int64  `bun:"lft,notnull"`
	Rght          int64  `bun:"rght,notnull"`
	Level         int64  `bun:"level,notnull"`
	PluginType    string `bun:"plugin_type,notnull"`
	Language      string `bun:"language,notnull"`
}

// Row is a legacy node reduced to what the migrator needs, in either forest
type Row struct {
	ID       int64
	ParentID *int64
	Label    string
	Kind     string
}
