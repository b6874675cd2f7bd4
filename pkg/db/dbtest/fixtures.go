package dbtest

import (
	"testing"

	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"gorm.io/gorm"
)

func Unit(t testing.TB, conn *gorm.DB, name, abbreviation string, factor *float64) models.Unit {
	t.Helper()
	row := models.Unit{Name: name, Abbreviation: abbreviation, ConversionFactorToMl: factor}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("create unit %s: %v", name, err)
	}
	return row
}

// Category creates the category, reusing or creating its type by name.
func Category(t testing.TB, conn *gorm.DB, name, typeName string, desiredStock int) models.Category {
	t.Helper()
	var kind models.CategoryType
	if err := conn.Where("name = ?", typeName).FirstOrCreate(&kind, models.CategoryType{Name: typeName}).Error; err != nil {
		t.Fatalf("create category type %s: %v", typeName, err)
	}
	row := models.Category{Name: name, TypeID: kind.ID, DesiredStock: desiredStock}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return row
}

func Bottle(t testing.TB, conn *gorm.DB, name string, category models.Category, capacityMl, remainingPercent int) models.Bottle {
	t.Helper()
	row := models.Bottle{Name: name, CategoryID: category.ID, CapacityMl: capacityMl, RemainingPercent: remainingPercent}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("create bottle %s: %v", name, err)
	}
	return row
}

func Ingredient(t testing.TB, conn *gorm.DB, name string, available bool) models.Ingredient {
	t.Helper()
	row := models.Ingredient{Name: name, IsAvailable: available}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("create ingredient %s: %v", name, err)
	}
	return row
}

func Factor(v float64) *float64 {
	return &v
}
