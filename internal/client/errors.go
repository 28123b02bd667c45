package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// CodeNoRows is returned by PostgREST when a single-row read matches nothing.
	CodeNoRows = "PGRST116"
	// CodeForeignKeyViolation is the Postgres SQLSTATE for a broken reference.
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
)

// APIError is a non-2xx response from one of the provider APIs.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase API error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase API error %d: %s", e.Status, e.Message)
}

// parseAPIError reads the error body shapes used by PostgREST, GoTrue and
// Storage.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if !gjson.ValidBytes(body) {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	res := gjson.ParseBytes(body)
	apiErr.Code = firstString(res, "error_code", "code", "statusCode")
	apiErr.Message = firstString(res, "message", "msg", "error_description", "error")
	apiErr.Details = res.Get("details").String()
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func firstString(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func IsNoRows(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == CodeNoRows
}

func IsForeignKeyViolation(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == CodeForeignKeyViolation
}

// ErrorMessage returns the provider's message for err, or err.Error().
func ErrorMessage(err error) string {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}
