// Package storage keeps uploaded media on the local filesystem and serves it under a
// public URL prefix.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const PublicPrefix = "/uploads"

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type LocalStore struct {
	root     string
	maxBytes int64
	logg     *logger.Logger
}

func NewLocalStore(root string, maxBytes int64, logg *logger.Logger) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &LocalStore{root: root, maxBytes: maxBytes, logg: logg}, nil
}

// Root is the directory served under PublicPrefix.
func (s *LocalStore) Root() string {
	return s.root
}

// SaveImage sniffs the content, rejects non-images and oversize payloads, and returns
// the public path of the stored file.
func (s *LocalStore) SaveImage(ctx context.Context, folder string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if int64(len(data)) > s.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodePayloadTooLarge, "image exceeds the upload limit").
			WithDetails(map[string]any{"maxBytes": s.maxBytes})
	}
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image is empty")
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedImageTypes[mtype.String()]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeUnsupportedMedia, "only jpeg, png, webp and gif images are accepted").
			WithDetails(map[string]any{"detected": mtype.String()})
	}

	folder = sanitizeFolder(folder)
	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create upload folder")
	}
	name := uuid.NewString() + ext
	if err := writeFileAtomic(filepath.Join(dir, name), data); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store image")
	}

	public := path.Join(PublicPrefix, folder, name)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"path": public, "mime": mtype.String(), "bytes": len(data)}), "image stored")
	return public, nil
}

// Delete removes a file previously returned by SaveImage. Missing files are ignored.
func (s *LocalStore) Delete(_ context.Context, publicPath string) error {
	rel := strings.TrimPrefix(path.Clean("/"+publicPath), PublicPrefix+"/")
	if rel == "" || strings.HasPrefix(rel, "/") || strings.Contains(rel, "..") {
		return fmt.Errorf("path %q is outside the upload directory", publicPath)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// StoredFile is one upload found on disk.
type StoredFile struct {
	PublicPath string
	ModTime    time.Time
}

// Files lists every stored upload. Temporary files of writes in progress are left out.
func (s *LocalStore) Files(ctx context.Context) ([]StoredFile, error) {
	var files []StoredFile
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		files = append(files, StoredFile{
			PublicPath: path.Join(PublicPrefix, filepath.ToSlash(rel)),
			ModTime:    info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk upload directory: %w", err)
	}
	return files, nil
}

func sanitizeFolder(folder string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" || folder == "." {
		return "misc"
	}
	return strings.ReplaceAll(folder, "..", "")
}

func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}
