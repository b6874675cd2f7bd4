package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/cartacocktail/carta-backend/internal/importwizard"
	"github.com/cartacocktail/carta-backend/internal/recipes"
)

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type resolutionFlags struct {
	use  stringList
	skip stringList
}

// apply records every -use and -skip override on a wizard in the resolve step.
func (f resolutionFlags) apply(wiz *importwizard.Wizard) error {
	for _, raw := range f.use {
		kind, key, id, err := parseUse(raw)
		if err != nil {
			return err
		}
		if err := setExisting(wiz, kind, key, id); err != nil {
			return fmt.Errorf("-use %s: %w", raw, err)
		}
	}
	for _, raw := range f.skip {
		kind, key, err := parseRef(raw)
		if err != nil {
			return err
		}
		if kind != recipes.KindBottle {
			return fmt.Errorf("-skip %s: %w", raw, importwizard.ErrSkipNotValid)
		}
		if err := wiz.SetBottle(key, recipes.Resolution[recipes.BottleData]{Action: recipes.ActionSkip}); err != nil {
			return fmt.Errorf("-skip %s: %w", raw, err)
		}
	}
	return nil
}

func setExisting(wiz *importwizard.Wizard, kind recipes.Kind, key string, id uuid.UUID) error {
	switch kind {
	case recipes.KindUnit:
		return wiz.SetUnit(key, recipes.Resolution[recipes.UnitData]{Action: recipes.ActionUseExisting, ExistingID: &id})
	case recipes.KindCategory:
		return wiz.SetCategory(key, recipes.Resolution[recipes.CategoryData]{Action: recipes.ActionUseExisting, ExistingID: &id})
	case recipes.KindBottle:
		return wiz.SetBottle(key, recipes.Resolution[recipes.BottleData]{Action: recipes.ActionUseExisting, ExistingID: &id})
	case recipes.KindIngredient:
		return wiz.SetIngredient(key, recipes.Resolution[recipes.IngredientData]{Action: recipes.ActionUseExisting, ExistingID: &id})
	}
	return fmt.Errorf("unknown kind %q", kind)
}

// parseUse splits kind:key=uuid.
func parseUse(raw string) (recipes.Kind, string, uuid.UUID, error) {
	ref, idStr, ok := strings.Cut(raw, "=")
	if !ok {
		return "", "", uuid.Nil, fmt.Errorf("-use %q: expected kind:key=uuid", raw)
	}
	kind, key, err := parseRef(ref)
	if err != nil {
		return "", "", uuid.Nil, err
	}
	id, err := uuid.Parse(strings.TrimSpace(idStr))
	if err != nil {
		return "", "", uuid.Nil, fmt.Errorf("-use %q: invalid id: %w", raw, err)
	}
	return kind, key, id, nil
}

// parseRef splits kind:key. Keys are matched the way the server builds them, lower-cased.
func parseRef(raw string) (recipes.Kind, string, error) {
	kindStr, key, ok := strings.Cut(raw, ":")
	key = strings.ToLower(strings.TrimSpace(key))
	if !ok || key == "" {
		return "", "", fmt.Errorf("%q: expected kind:key", raw)
	}
	kind := recipes.Kind(strings.ToLower(strings.TrimSpace(kindStr)))
	switch kind {
	case recipes.KindUnit, recipes.KindCategory, recipes.KindBottle, recipes.KindIngredient:
		return kind, key, nil
	}
	return "", "", fmt.Errorf("%q: unknown kind %q", raw, kindStr)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
