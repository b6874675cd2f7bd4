package responses

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/types"
	"github.com/rs/zerolog/log"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteAttachment sends a raw download outside the JSON envelope.
func WriteAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("write attachment")
	}
}

// WriteError renders err as the error envelope. Untyped errors become
// INTERNAL_ERROR and their text never reaches the client.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	// client errors explain themselves; server errors stay generic
	msg := meta.PublicMessage
	if meta.HTTPStatus < http.StatusInternalServerError && typed.Message() != "" {
		msg = typed.Message()
	}

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:      string(typed.Code()),
			Message:   msg,
			RequestID: logger.RequestID(ctx),
		},
	}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		fields := pkgerrors.Diagnose(err).Fields()
		fields["status"] = meta.HTTPStatus
		// 4xx logs at warn without a stack
		if meta.HTTPStatus < http.StatusInternalServerError {
			fields["error"] = err.Error()
			logg.Warn(logg.WithFields(ctx, fields), "request rejected")
		} else {
			logg.Error(logg.WithFields(ctx, fields), "request failed", err)
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Int("status", status).Msg("encode response")
	}
}
