package recipes

import "strings"

// Kind names one of the entity groups a document references.
type Kind string

const (
	KindUnit       Kind = "unit"
	KindCategory   Kind = "category"
	KindBottle     Kind = "bottle"
	KindIngredient Kind = "ingredient"
)

// UnitKey is the lower-cased abbreviation, or the lower-cased name when the
// abbreviation is empty.
func UnitKey(name, abbreviation string) string {
	if abbr := strings.TrimSpace(abbreviation); abbr != "" {
		return strings.ToLower(abbr)
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// NameKey keys categories, bottles and ingredients.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
