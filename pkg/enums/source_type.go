package enums

import (
	"fmt"
	"strings"
)

// SourceType says what a cocktail ingredient line draws from.
type SourceType string

const (
	SourceTypeBottle     SourceType = "BOTTLE"
	SourceTypeCategory   SourceType = "CATEGORY"
	SourceTypeIngredient SourceType = "INGREDIENT"
)

var validSourceTypes = []SourceType{
	SourceTypeBottle,
	SourceTypeCategory,
	SourceTypeIngredient,
}

func (s SourceType) String() string {
	return string(s)
}

func (s SourceType) IsValid() bool {
	for _, candidate := range validSourceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSourceType accepts any casing.
func ParseSourceType(value string) (SourceType, error) {
	normalized := SourceType(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid source type %q", value)
}
