package models

import "gorm.io/gorm"

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Setting{},
		&Unit{},
		&CategoryType{},
		&Category{},
		&Bottle{},
		&Ingredient{},
		&Cocktail{},
		&CocktailIngredient{},
		&CocktailIngredientPreferredBottle{},
		&CocktailInstruction{},
		&Menu{},
		&MenuSection{},
		&MenuCocktail{},
		&MenuBottle{},
	}
}

// AutoMigrate creates or updates the schema through gorm. Used for SQLite deployments
// and tests; PostgreSQL uses the goose migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
