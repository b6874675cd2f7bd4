package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/storage"
)

const defaultOrphanImageMinAge = 24 * time.Hour

type OrphanImageCleanupJobParams struct {
	Logger *logger.Logger
	Images imageReferences
	Store  imageStore
	MinAge time.Duration
}

type imageReferences interface {
	ImagePaths(ctx context.Context) ([]string, error)
}

type imageStore interface {
	Files(ctx context.Context) ([]storage.StoredFile, error)
	Delete(ctx context.Context, publicPath string) error
}

// NewOrphanImageCleanupJob removes uploaded images no cocktail points at anymore.
// Files younger than MinAge are kept so an upload racing a cocktail save survives.
func NewOrphanImageCleanupJob(params OrphanImageCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Images == nil {
		return nil, fmt.Errorf("image references required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("image store required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = defaultOrphanImageMinAge
	}
	return &orphanImageCleanupJob{
		logg:   params.Logger,
		images: params.Images,
		store:  params.Store,
		minAge: minAge,
		now:    time.Now,
	}, nil
}

type orphanImageCleanupJob struct {
	logg   *logger.Logger
	images imageReferences
	store  imageStore
	minAge time.Duration
	now    func() time.Time
}

func (j *orphanImageCleanupJob) Name() string { return "orphan-image-cleanup" }

func (j *orphanImageCleanupJob) Run(ctx context.Context) error {
	referenced, err := j.images.ImagePaths(ctx)
	if err != nil {
		return fmt.Errorf("query image paths: %w", err)
	}
	inUse := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		inUse[p] = struct{}{}
	}

	files, err := j.store.Files(ctx)
	if err != nil {
		return fmt.Errorf("list uploads: %w", err)
	}

	cutoff := j.now().Add(-j.minAge)
	var deleted, tooRecent int
	for _, f := range files {
		if _, ok := inUse[f.PublicPath]; ok {
			continue
		}
		if f.ModTime.After(cutoff) {
			tooRecent++
			continue
		}
		if err := j.store.Delete(ctx, f.PublicPath); err != nil {
			return fmt.Errorf("delete %s: %w", f.PublicPath, err)
		}
		deleted++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"files_scanned":    len(files),
		"images_in_use":    len(inUse),
		"orphans_deleted":  deleted,
		"orphans_deferred": tooRecent,
		"min_age":          j.minAge.String(),
	})
	j.logg.Info(logCtx, "orphan image cleanup complete")
	return nil
}
