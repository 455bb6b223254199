package access

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// KitExpander resolves the product ids a purchase actually entitles the buyer
// to. Kit products expand to their member ids; plain products map to
// themselves. Implementations may fail when the catalog schema lacks the kit
// columns, in which case the caller degrades to the unexpanded list.
type KitExpander interface {
	Expand(ctx context.Context, productIDs []string) ([]string, error)
}

// NoopExpander keeps the purchased ids as-is. Used when the kit capability is
// disabled by feature flag or absent from the schema.
type NoopExpander struct{}

func (NoopExpander) Expand(ctx context.Context, productIDs []string) ([]string, error) {
	return productIDs, nil
}

type kitRow struct {
	IsKit         bool
	KitProductIDs []string
}

type kitReader interface {
	FindKitRows(ctx context.Context, ids []string) (map[string]kitRow, error)
}

type catalogExpander struct {
	reader kitReader
}

// NewCatalogExpander expands kit products by reading is_kit/kit_product_ids
// from the catalog.
func NewCatalogExpander(db *gorm.DB) (KitExpander, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &catalogExpander{reader: &catalogKitReader{db: db}}, nil
}

// Expand resolves one level only: members of a kit are never themselves
// re-resolved as kits.
func (e *catalogExpander) Expand(ctx context.Context, productIDs []string) ([]string, error) {
	rows, err := e.reader.FindKitRows(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	expanded := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		expanded = append(expanded, id)
		row, ok := rows[id]
		if !ok || !row.IsKit {
			continue
		}
		expanded = append(expanded, row.KitProductIDs...)
	}
	return expanded, nil
}

type catalogKitReader struct {
	db *gorm.DB
}

func (r *catalogKitReader) FindKitRows(ctx context.Context, ids []string) (map[string]kitRow, error) {
	if len(ids) == 0 {
		return map[string]kitRow{}, nil
	}

	type row struct {
		ID            string `gorm:"column:id"`
		IsKit         bool   `gorm:"column:is_kit"`
		KitProductIDs string `gorm:"column:kit_product_ids"`
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Table("products").
		Select("id", "is_kit", "kit_product_ids").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]kitRow, len(rows))
	for _, r := range rows {
		out[r.ID] = kitRow{IsKit: r.IsKit, KitProductIDs: parseTextArray(r.KitProductIDs)}
	}
	return out, nil
}

// parseTextArray decodes the postgres text[] literal form ("{a,b}") without
// relying on a typed scan, so a malformed value degrades to no members rather
// than aborting the grant.
func parseTextArray(raw string) []string {
	if raw == "" || raw == "{}" {
		return nil
	}
	if len(raw) < 2 || raw[0] != '{' || raw[len(raw)-1] != '}' {
		return nil
	}
	inner := raw[1 : len(raw)-1]
	if inner == "" {
		return nil
	}
	var out []string
	for _, part := range splitCSV(inner) {
		part = trimQuotes(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitCSV(s string) []string {
	var parts []string
	start := 0
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
