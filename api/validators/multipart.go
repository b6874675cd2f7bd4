package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
)

// multipartOverhead leaves room for boundaries and part headers on top of the file itself.
const multipartOverhead = 64 << 10

// FormFile limits the request body to maxBytes plus form overhead and returns the
// named file part. The caller closes the file.
func FormFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		return nil, nil, formError(err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required").WithDetails(map[string]any{"field": field})
		}
		return nil, nil, formError(err)
	}
	if header.Size > maxBytes {
		_ = file.Close()
		return nil, nil, pkgerrors.New(pkgerrors.CodePayloadTooLarge, "file too large").WithDetails(map[string]any{"field": field, "maxBytes": maxBytes})
	}
	return file, header, nil
}

// ReadBody reads at most maxBytes of the request body.
func ReadBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		return nil, formError(err)
	}
	return data, nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.New(pkgerrors.CodePayloadTooLarge, "request body too large").WithDetails(map[string]any{"maxBytes": tooLarge.Limit})
	}
	if errors.Is(err, http.ErrNotMultipart) {
		return pkgerrors.New(pkgerrors.CodeUnsupportedMedia, "multipart/form-data required")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
}
