package recipes

import (
	"context"
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Lookup matches references against live rows case-insensitively. When several rows
// share a key, an exact-case match wins, then the oldest row.
type Lookup struct {
	db *gorm.DB
}

func NewLookup(db *gorm.DB) *Lookup {
	return &Lookup{db: db}
}

func (l *Lookup) WithTx(tx *gorm.DB) *Lookup {
	if tx == nil {
		return l
	}
	return &Lookup{db: tx}
}

func oldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

// Keys are compared in Go: SQLite's LOWER only folds ASCII, so "ÉCORCE"
// and "écorce" would not meet in SQL.
func matching[T any](rows []T, key string, field func(T) string) []T {
	var out []T
	for _, row := range rows {
		if key != "" && NameKey(field(row)) == key {
			out = append(out, row)
		}
	}
	return out
}

// Unit matches by abbreviation first and falls back to the name.
func (l *Lookup) Unit(ctx context.Context, ref EntityRef) (*models.Unit, error) {
	var all []models.Unit
	if err := oldestFirst(l.db.WithContext(ctx)).Find(&all).Error; err != nil {
		return nil, err
	}
	key := UnitKey(ref.Name, ref.Abbreviation)
	if rows := matching(all, key, func(u models.Unit) string { return u.Abbreviation }); len(rows) > 0 {
		return pick(rows, func(u models.Unit) bool { return u.Abbreviation == strings.TrimSpace(ref.Abbreviation) }), nil
	}
	name := NameKey(ref.Name)
	if name == "" {
		name = key
	}
	rows := matching(all, name, func(u models.Unit) string { return u.Name })
	return pick(rows, func(u models.Unit) bool { return u.Name == strings.TrimSpace(ref.Name) }), nil
}

func (l *Lookup) Category(ctx context.Context, name string) (*models.Category, error) {
	var all []models.Category
	if err := oldestFirst(l.db.WithContext(ctx)).Preload("Type").Find(&all).Error; err != nil {
		return nil, err
	}
	rows := matching(all, NameKey(name), func(c models.Category) string { return c.Name })
	return pick(rows, func(c models.Category) bool { return c.Name == strings.TrimSpace(name) }), nil
}

func (l *Lookup) Bottle(ctx context.Context, name string) (*models.Bottle, error) {
	var all []models.Bottle
	if err := oldestFirst(l.db.WithContext(ctx)).Preload("Category").Find(&all).Error; err != nil {
		return nil, err
	}
	rows := matching(all, NameKey(name), func(b models.Bottle) string { return b.Name })
	return pick(rows, func(b models.Bottle) bool { return b.Name == strings.TrimSpace(name) }), nil
}

func (l *Lookup) Ingredient(ctx context.Context, name string) (*models.Ingredient, error) {
	var all []models.Ingredient
	if err := oldestFirst(l.db.WithContext(ctx)).Find(&all).Error; err != nil {
		return nil, err
	}
	rows := matching(all, NameKey(name), func(i models.Ingredient) string { return i.Name })
	return pick(rows, func(i models.Ingredient) bool { return i.Name == strings.TrimSpace(name) }), nil
}

func pick[T any](rows []T, exact func(T) bool) *T {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if exact(rows[i]) {
			return &rows[i]
		}
	}
	return &rows[0]
}
