package cron

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/storage"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type fakeImageRefs struct {
	paths []string
	err   error
}

func (f fakeImageRefs) ImagePaths(context.Context) ([]string, error) {
	return f.paths, f.err
}

func TestOrphanImageCleanupRemovesUnreferencedFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, err := storage.NewLocalStore(root, 1024, nil)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()
	kept, err := store.SaveImage(ctx, "cocktails", bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	orphan, err := store.SaveImage(ctx, "cocktails", bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}

	job := newOrphanImageJob(t, fakeImageRefs{paths: []string{kept}}, store)
	job.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(onDisk(root, kept)); err != nil {
		t.Fatalf("referenced image should survive: %v", err)
	}
	if _, err := os.Stat(onDisk(root, orphan)); !os.IsNotExist(err) {
		t.Fatalf("orphan image should be deleted, stat err=%v", err)
	}
}

func TestOrphanImageCleanupKeepsRecentUploads(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, err := storage.NewLocalStore(root, 1024, nil)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	fresh, err := store.SaveImage(context.Background(), "cocktails", bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}

	job := newOrphanImageJob(t, fakeImageRefs{}, store)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(onDisk(root, fresh)); err != nil {
		t.Fatalf("fresh upload should survive: %v", err)
	}
}

func TestOrphanImageCleanupPropagatesErrors(t *testing.T) {
	t.Parallel()

	store, err := storage.NewLocalStore(t.TempDir(), 1024, nil)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	job := newOrphanImageJob(t, fakeImageRefs{err: errors.New("db down")}, store)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newOrphanImageJob(t *testing.T, refs imageReferences, store imageStore) *orphanImageCleanupJob {
	t.Helper()
	jobIface, err := NewOrphanImageCleanupJob(OrphanImageCleanupJobParams{
		Logger: logger.Nop(),
		Images: refs,
		Store:  store,
	})
	if err != nil {
		t.Fatalf("NewOrphanImageCleanupJob: %v", err)
	}
	job, ok := jobIface.(*orphanImageCleanupJob)
	if !ok {
		t.Fatalf("expected orphanImageCleanupJob, got %T", jobIface)
	}
	return job
}

func onDisk(root, public string) string {
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(public, storage.PublicPrefix+"/")))
}
