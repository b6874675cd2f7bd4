package db

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FoldedValueTaken reports whether a row of model, other than excludeID, has
// any column in want equal to its value after lower-casing. Folding happens
// in Go because SQLite's LOWER leaves non-ASCII letters alone. Meant for the
// small catalogue tables only.
func FoldedValueTaken(ctx context.Context, conn *gorm.DB, model any, excludeID uuid.UUID, want map[string]string) (bool, error) {
	columns := slices.Sorted(maps.Keys(want))
	query := conn.WithContext(ctx).Model(model).Select(columns)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var rows []map[string]any
	if err := query.Find(&rows).Error; err != nil {
		return false, err
	}
	for _, row := range rows {
		for _, column := range columns {
			value := strings.ToLower(want[column])
			if value != "" && strings.ToLower(text(row[column])) == value {
				return true, nil
			}
		}
	}
	return false, nil
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}
