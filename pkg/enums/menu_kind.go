package enums

import "fmt"

// MenuKind decides whether a menu lists cocktails or bottles.
type MenuKind string

const (
	MenuKindCocktails MenuKind = "COCKTAILS"
	MenuKindBottles   MenuKind = "BOTTLES"
)

func (k MenuKind) String() string {
	return string(k)
}

func (k MenuKind) IsValid() bool {
	return k == MenuKindCocktails || k == MenuKindBottles
}

func ParseMenuKind(value string) (MenuKind, error) {
	kind := MenuKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid menu kind %q", value)
	}
	return kind, nil
}
