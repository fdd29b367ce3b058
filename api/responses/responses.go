// Package responses writes the JSON envelopes returned by every handler:
// {"data": ...} on success and {"error": {...}} on failure.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessEnvelope{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, SuccessEnvelope{Data: data})
}

// WriteJSON writes payload as-is. Paged listings use it because their
// envelope already carries data plus paging fields.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError maps err onto its code's HTTP policy. Untyped errors become a
// generic 500 so internals never leak; the full chain goes to the log only.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := APIError{Code: string(typed.Code()), Message: publicMessage(typed, meta)}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		logRejection(ctx, logg, err, meta)
	}
	WriteJSON(w, meta.HTTPStatus, ErrorEnvelope{Error: body})
}

func publicMessage(typed *pkgerrors.Error, meta pkgerrors.Metadata) string {
	if meta.Retryable || typed.Message() == "" {
		return meta.PublicMessage
	}
	return typed.Message()
}

func logRejection(ctx context.Context, logg *logger.Logger, err error, meta pkgerrors.Metadata) {
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
		"http_status": meta.HTTPStatus,
	}
	if dump.PGCode != "" {
		fields["pg"] = dump.PGFields
	}
	logCtx := logg.WithFields(ctx, fields)
	if meta.HTTPStatus >= http.StatusInternalServerError {
		logg.Error(logCtx, "request.error", err)
		return
	}
	logg.Warn(logg.WithField(logCtx, "error", dump.TopMessage), "request.rejected")
}
