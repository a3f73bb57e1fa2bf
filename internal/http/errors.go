package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minutes/internal/comments"
	"github.com/fyrsmithlabs/minutes/internal/extraction"
	"github.com/fyrsmithlabs/minutes/internal/generation"
	"github.com/fyrsmithlabs/minutes/internal/session"
	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps a domain error to a status code and a short kind label.
func classify(err error) (int, string) {
	var (
		httpErr   *echo.HTTPError
		extVal    *extraction.ValidationError
		taskVal   *tasks.ValidationError
		cmtVal    *comments.ValidationError
		cfgErr    *generation.ConfigurationError
		svcErr    *generation.ServiceError
		malformed *extraction.MalformedResponseError
		persist   *tasks.PersistenceError
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, "request"
	case errors.As(err, &extVal), errors.As(err, &taskVal), errors.As(err, &cmtVal):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, tasks.ErrNotFound), errors.Is(err, session.ErrDraftNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, extraction.ErrExtractionInProgress):
		return http.StatusConflict, "busy"
	case errors.Is(err, session.ErrExtractionDiscarded):
		return http.StatusConflict, "discarded"
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable, "configuration"
	case errors.As(err, &svcErr):
		return http.StatusBadGateway, "service"
	case errors.As(err, &malformed):
		return http.StatusBadGateway, "malformed_response"
	case errors.As(err, &persist):
		return http.StatusInternalServerError, "persistence"
	}
	return http.StatusInternalServerError, "internal"
}

func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, kind := classify(err)
		msg := err.Error()
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			if m, ok := httpErr.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
		if err := c.JSON(code, ErrorResponse{Error: msg, Kind: kind}); err != nil {
			logger.Warn("writing error response failed", zap.Error(err))
		}
	}
}
