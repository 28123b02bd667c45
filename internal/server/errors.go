package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"storefront/internal/model"
	"storefront/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// errorStatus maps domain errors onto HTTP statuses. Anything unknown is a
// 500 whose message is not shown to the client.
func errorStatus(err error) (int, errorResponse) {
	var (
		httpErr *echo.HTTPError
		valErr  *model.ValidationError
		authErr *session.AuthError
	)
	switch {
	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, errorResponse{Error: msg}
	case errors.As(err, &valErr):
		return http.StatusBadRequest, errorResponse{Error: valErr.Message, Field: valErr.Field}
	case errors.As(err, &authErr):
		return http.StatusBadRequest, errorResponse{Error: authErr.Message}
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "Not found"}
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "Forbidden"}
	case errors.Is(err, model.ErrInvalidProductID):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, model.ErrEmptyCart):
		return http.StatusBadRequest, errorResponse{Error: "Your cart is empty"}
	case errors.Is(err, model.ErrNotAuthenticated), errors.Is(err, model.ErrProfileTimeout):
		return http.StatusUnauthorized, errorResponse{Error: "User not authenticated"}
	case errors.Is(err, model.ErrProductMissing):
		return http.StatusConflict, errorResponse{Error: model.ErrProductMissing.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: "Internal server error"}
}

func newErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := errorStatus(err)
		entry := log.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"status": status,
		}).WithError(err)
		if status >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Warn("write error response")
		}
	}
}
