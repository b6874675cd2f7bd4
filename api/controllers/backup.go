package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/cartacocktail/carta-backend/api/responses"
	"github.com/cartacocktail/carta-backend/api/validators"
	"github.com/cartacocktail/carta-backend/internal/backup"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
)

const maxBackupBytes int64 = 32 << 20

// BackupExport streams the whole bar as a JSON attachment, outside the data envelope.
func BackupExport(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("backup"))
			return
		}
		exported, err := svc.Export(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload, err := json.MarshalIndent(exported.Document, "", "  ")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode backup"))
			return
		}
		responses.WriteAttachment(w, exported.Filename, "application/json", payload)
	}
}

// BackupImport replaces every table with the uploaded multipart "file" and
// returns the restored row counts.
func BackupImport(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("backup"))
			return
		}
		file, header, err := validators.FormFile(w, r, "file", maxBackupBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer func() { _ = file.Close() }()

		summary, err := svc.Import(r.Context(), file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{"filename": header.Filename, "bytes": header.Size})
			logg.Warn(ctx, "backup.restored")
		}
		responses.WriteSuccess(w, summary)
	}
}
