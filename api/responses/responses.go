package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
	"github.com/hariombakery/khakhra-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps an error onto the public envelope. Typed errors keep their
// code; anything else is reported as internal. Details only cross the wire
// when the code's metadata allows them.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	code := pkgerrors.CodeInternal
	message := ""
	var details any

	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
		message = typed.Message()
		details = typed.Details()
	}

	meta := pkgerrors.MetadataFor(code)

	publicMessage := meta.PublicMessage
	switch code {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeConflict,
		pkgerrors.CodeStateConflict,
		pkgerrors.CodeOutOfStock,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeForbidden:
		if message != "" {
			publicMessage = message
		}
	}

	if !meta.DetailsAllowed {
		details = nil
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"error_code":  string(code),
			"http_status": meta.HTTPStatus,
			"error_dump":  pkgerrors.Dump(err),
		})
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(logCtx, "request failed", err)
		} else {
			logg.Warn(logCtx, "request rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(code),
			Message: publicMessage,
			Details: details,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
