package handler

// RESPONSE HELPERS:
// Three kinds of response leave this package:
//
//   - full page / fragment  → text/html, rendered by internal/render
//   - JSON                  → writeJSON / writeError, for app.js
//   - redirect + flash      → the form posts (PRG: POST, 303, GET /)
//
// CONSISTENT ERROR FORMAT:
// Every JSON error has the same shape:
//   {"error": "duplicate", "message": "Movie is already in your watchlist"}
//
// app.js shows "message" as-is, so it must always be fit for a user to read.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/auth"
)

// ErrorResponse is the standard error format returned by all JSON endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "duplicate")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status go out on the first Write. Anything set after that is
// silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401
//	ErrNotFound     → 404
//	ErrDuplicate    → 409
//	ErrProvider     → 502 (the auth provider said no)
//
// Anything that is not an AppError is a network or decode failure deeper
// down. Its text may carry URLs or keys, so the client only gets a generic
// message.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized // 401
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
			errorType = "not_found"
		case errors.Is(err, apperror.ErrDuplicate):
			status = http.StatusConflict // 409
			errorType = "duplicate"
		case errors.Is(err, apperror.ErrProvider):
			status = http.StatusBadGateway // 502
			errorType = "provider_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// writeHTML sends rendered markup. The renderer buffers internally, so a
// failure has written nothing and can still become a 500.
func writeHTML(w http.ResponseWriter, logger *slog.Logger, render func(io.Writer) error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render(w); err != nil {
		logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// bannerText is what the flash banner shows for a failed operation. Known
// failures carry their own text; anything else gets the generic form for op.
func bannerText(op auth.Op, err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return auth.Classify(op, "unexpected error, please try again").Message
}

// redirectHome finishes a form post: the banner goes in a cookie and the
// browser is sent back to the page with a GET.
func redirectHome(w http.ResponseWriter, r *http.Request, cookies *auth.Cookies, f auth.Flash) {
	cookies.SetFlash(w, f)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
