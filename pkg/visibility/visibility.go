package visibility

import (
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
)

// EnsureMenuVisible hides private menus behind the same not-found as a missing slug.
func EnsureMenuVisible(menu *models.Menu) error {
	if menu == nil || !menu.IsPublic {
		return pkgerrors.New(pkgerrors.CodeNotFound, "menu not found")
	}
	return nil
}

// CocktailInput carries what decides whether a listed cocktail reaches a public menu.
type CocktailInput struct {
	Cocktail        models.Cocktail
	MaxServings     int
	HideUnavailable bool
}

// Cocktail reports whether the cocktail is shown and, when shown, whether it can be
// ordered. A cocktail switched off by hand never shows.
func Cocktail(in CocktailInput) (shown bool, available bool) {
	if !in.Cocktail.IsAvailable {
		return false, false
	}
	available = in.MaxServings > 0
	if !available && in.HideUnavailable {
		return false, false
	}
	return true, available
}

// Bottle keeps emptied bottles off public menus.
func Bottle(b models.Bottle) bool {
	return !b.IsEmptied()
}
