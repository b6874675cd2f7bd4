// Package shortages reports categories whose sealed bottles fall below the desired stock.
package shortages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Shortage struct {
	CategoryID   uuid.UUID `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	TypeName     string    `json:"typeName"`
	DesiredStock int       `json:"desiredStock"`
	SealedCount  int       `json:"sealedCount"`
	Missing      int       `json:"missing"`
}

// Compute lists categories with fewer sealed bottles than desired, most missing first.
func Compute(categories []models.Category, bottles []models.Bottle) []Shortage {
	sealed := make(map[uuid.UUID]int, len(categories))
	for _, b := range bottles {
		if b.IsSealed() {
			sealed[b.CategoryID]++
		}
	}
	out := []Shortage{}
	for _, c := range categories {
		count := sealed[c.ID]
		if count >= c.DesiredStock {
			continue
		}
		item := Shortage{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			DesiredStock: c.DesiredStock,
			SealedCount:  count,
			Missing:      c.DesiredStock - count,
		}
		if c.Type != nil {
			item.TypeName = c.Type.Name
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Missing != out[j].Missing {
			return out[i].Missing > out[j].Missing
		}
		return strings.ToLower(out[i].CategoryName) < strings.ToLower(out[j].CategoryName)
	})
	return out
}

type Service interface {
	List(ctx context.Context) ([]Shortage, error)
}

type service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &service{db: db}, nil
}

func (s *service) List(ctx context.Context) ([]Shortage, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Preload("Type").Find(&categories).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load categories")
	}
	var bottles []models.Bottle
	if err := s.db.WithContext(ctx).
		Where("opened_at IS NULL AND remaining_percent >= 100").
		Find(&bottles).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sealed bottles")
	}
	return Compute(categories, bottles), nil
}
