package importwizard

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/cartacocktail/carta-backend/internal/cocktails"
	"github.com/cartacocktail/carta-backend/internal/recipes"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/google/uuid"
)

type Step string

const (
	StepUpload  Step = "upload"
	StepResolve Step = "resolve"
	StepConfirm Step = "confirm"
	StepSuccess Step = "success"
	StepError   Step = "error"
)

var (
	ErrBusy         = errors.New("import request already in flight")
	ErrClosed       = errors.New("import wizard closed")
	ErrNoDocument   = errors.New("no recipe document uploaded")
	ErrUnresolved   = errors.New("every missing entity needs a resolution")
	ErrSkipNotValid = errors.New("only bottles can be skipped")
	ErrNoAction     = errors.New("resolution needs a create, use_existing or skip action")
	ErrNoExistingID = errors.New("use_existing needs the id of the existing row")
)

// RecipeAPI is the remote surface the wizard drives. *cartaclient.Client satisfies it.
type RecipeAPI interface {
	PreviewImport(ctx context.Context, doc recipes.Document) (*recipes.Preview, error)
	ConfirmImport(ctx context.Context, req recipes.ConfirmRequest) (*cocktails.CocktailDTO, error)
}

var kinds = []recipes.Kind{recipes.KindUnit, recipes.KindCategory, recipes.KindBottle, recipes.KindIngredient}

// Wizard walks one recipe document through upload, resolve and confirm.
// It is safe for concurrent use; remote calls run without holding the lock and
// the loading flag rejects overlapping Next or Confirm calls.
type Wizard struct {
	api RecipeAPI

	mu          sync.Mutex
	step        Step
	loading     bool
	closed      bool
	doc         *recipes.Document
	uploadErr   error
	preview     *recipes.Preview
	resolutions recipes.Resolutions
	created     *cocktails.CocktailDTO
	failure     string
}

func New(api RecipeAPI) (*Wizard, error) {
	if api == nil {
		return nil, fmt.Errorf("recipe api required")
	}
	return &Wizard{api: api, step: StepUpload, resolutions: recipes.NewResolutions()}, nil
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// UploadError returns the parse or preview failure that kept the wizard in upload.
func (w *Wizard) UploadError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.uploadErr
}

func (w *Wizard) Document() *recipes.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc
}

func (w *Wizard) Preview() *recipes.Preview {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.preview
}

func (w *Wizard) Cocktail() *cocktails.CocktailDTO {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.created
}

// Failure returns the message of the last failed confirm.
func (w *Wizard) Failure() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failure
}

// Upload parses data as a recipe export. The wizard stays on the upload step
// either way; Next moves on once a document is accepted.
func (w *Wizard) Upload(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.guard(StepUpload); err != nil {
		return err
	}

	doc, err := recipes.Parse(data)
	if err != nil {
		w.doc = nil
		w.uploadErr = err
		return err
	}
	w.doc = doc
	w.uploadErr = nil
	w.preview = nil
	w.resolutions = recipes.NewResolutions()
	return nil
}

// CanAdvance reports whether Next would leave the current step.
func (w *Wizard) CanAdvance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.loading {
		return false
	}
	switch w.step {
	case StepUpload:
		return w.doc != nil
	case StepResolve:
		return w.allResolved()
	}
	return false
}

// Next requests the preview from upload, or moves from resolve to confirm once
// every missing entity is resolved.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.loading {
		w.mu.Unlock()
		return ErrBusy
	}

	switch w.step {
	case StepUpload:
		if w.doc == nil {
			w.mu.Unlock()
			return ErrNoDocument
		}
		doc := *w.doc
		w.loading = true
		w.mu.Unlock()

		preview, err := w.api.PreviewImport(ctx, doc)

		w.mu.Lock()
		defer w.mu.Unlock()
		w.loading = false
		if w.closed {
			return ErrClosed
		}
		if err != nil {
			w.uploadErr = err
			return err
		}
		w.preview = preview
		w.resolutions = recipes.AutoResolve(preview)
		w.uploadErr = nil
		w.step = StepResolve
		return nil
	case StepResolve:
		defer w.mu.Unlock()
		if !w.allResolved() {
			return ErrUnresolved
		}
		w.step = StepConfirm
		return nil
	default:
		step := w.step
		w.mu.Unlock()
		return pkgerrors.Newf(pkgerrors.CodeValidation, "cannot advance from %s", step)
	}
}

// Back returns from confirm to resolve, or from resolve to upload keeping the document.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.loading {
		return ErrBusy
	}
	switch w.step {
	case StepConfirm:
		w.step = StepResolve
	case StepResolve:
		w.step = StepUpload
	default:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "cannot go back from %s", w.step)
	}
	return nil
}

// Retry returns a failed confirm to the resolve step with resolutions intact.
func (w *Wizard) Retry() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.step != StepError {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "cannot retry from %s", w.step)
	}
	w.step = StepResolve
	w.failure = ""
	return nil
}

// Close discards the wizard. Calls in flight finish but their results are dropped.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.doc = nil
	w.preview = nil
	w.resolutions = recipes.NewResolutions()
}

func (w *Wizard) SetUnit(key string, res recipes.Resolution[recipes.UnitData]) error {
	if err := checkResolution(res.Action, res.ExistingID, false); err != nil {
		return err
	}
	return w.set(recipes.KindUnit, key, func(r recipes.Resolutions) { r.Units[key] = res })
}

func (w *Wizard) SetCategory(key string, res recipes.Resolution[recipes.CategoryData]) error {
	if err := checkResolution(res.Action, res.ExistingID, false); err != nil {
		return err
	}
	return w.set(recipes.KindCategory, key, func(r recipes.Resolutions) { r.Categories[key] = res })
}

func (w *Wizard) SetBottle(key string, res recipes.Resolution[recipes.BottleData]) error {
	if err := checkResolution(res.Action, res.ExistingID, true); err != nil {
		return err
	}
	return w.set(recipes.KindBottle, key, func(r recipes.Resolutions) { r.Bottles[key] = res })
}

func (w *Wizard) SetIngredient(key string, res recipes.Resolution[recipes.IngredientData]) error {
	if err := checkResolution(res.Action, res.ExistingID, false); err != nil {
		return err
	}
	return w.set(recipes.KindIngredient, key, func(r recipes.Resolutions) { r.Ingredients[key] = res })
}

// checkResolution rejects choices that confirm could not apply. Anything stored
// counts as resolved.
func checkResolution(action recipes.Action, existingID *uuid.UUID, skippable bool) error {
	switch action {
	case recipes.ActionCreate:
		return nil
	case recipes.ActionUseExisting:
		if existingID == nil || *existingID == uuid.Nil {
			return ErrNoExistingID
		}
		return nil
	case recipes.ActionSkip:
		if !skippable {
			return ErrSkipNotValid
		}
		return nil
	default:
		return ErrNoAction
	}
}

// ClearResolution removes the choice for kind and key, which blocks Next again
// when the entity is missing.
func (w *Wizard) ClearResolution(kind recipes.Kind, key string) error {
	return w.set(kind, key, func(r recipes.Resolutions) { r.Remove(kind, key) })
}

func (w *Wizard) set(kind recipes.Kind, key string, apply func(recipes.Resolutions)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.guard(StepResolve); err != nil {
		return err
	}
	if !w.known(kind, key) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %q is not referenced by this recipe", kind, key)
	}
	apply(w.resolutions)
	return nil
}

func (w *Wizard) known(kind recipes.Kind, key string) bool {
	if w.preview == nil {
		return false
	}
	for _, e := range w.preview.Entries(kind) {
		if e.Key == key {
			return true
		}
	}
	return false
}

func (w *Wizard) MissingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.missingCount()
}

func (w *Wizard) ResolvedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resolvedCount()
}

func (w *Wizard) AllResolved() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.allResolved()
}

func (w *Wizard) missingCount() int {
	if w.preview == nil {
		return 0
	}
	n := 0
	for _, kind := range kinds {
		for _, e := range w.preview.Entries(kind) {
			if e.Status == recipes.StatusMissing {
				n++
			}
		}
	}
	return n
}

func (w *Wizard) resolvedCount() int {
	if w.preview == nil {
		return 0
	}
	n := 0
	for _, kind := range kinds {
		for _, e := range w.preview.Entries(kind) {
			if e.Status == recipes.StatusMissing && w.resolutions.Has(kind, e.Key) {
				n++
			}
		}
	}
	return n
}

func (w *Wizard) allResolved() bool {
	return w.preview != nil && w.missingCount() == w.resolvedCount()
}

// Resolutions returns a copy of the current choices.
func (w *Wizard) Resolutions() recipes.Resolutions {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneResolutions(w.resolutions)
}

// Confirm sends the document and resolutions in a single request.
func (w *Wizard) Confirm(ctx context.Context) (*cocktails.CocktailDTO, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	if w.loading {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	if w.step != StepConfirm {
		step := w.step
		w.mu.Unlock()
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "cannot confirm from %s", step)
	}
	req := recipes.ConfirmRequest{Recipe: *w.doc, Resolutions: cloneResolutions(w.resolutions)}
	w.loading = true
	w.mu.Unlock()

	created, err := w.api.ConfirmImport(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.loading = false
	if w.closed {
		return nil, ErrClosed
	}
	if err != nil {
		w.step = StepError
		w.failure = err.Error()
		return nil, err
	}
	w.step = StepSuccess
	w.created = created
	return created, nil
}

func (w *Wizard) guard(step Step) error {
	if w.closed {
		return ErrClosed
	}
	if w.loading {
		return ErrBusy
	}
	if w.step != step {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "not allowed during %s", w.step)
	}
	return nil
}

func cloneResolutions(src recipes.Resolutions) recipes.Resolutions {
	out := recipes.NewResolutions()
	maps.Copy(out.Units, src.Units)
	maps.Copy(out.Categories, src.Categories)
	maps.Copy(out.Bottles, src.Bottles)
	maps.Copy(out.Ingredients, src.Ingredients)
	return out
}
