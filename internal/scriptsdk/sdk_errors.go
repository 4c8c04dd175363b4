package scriptsdk

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/imroc/req/v3"
)

var (
	ErrNoServerURL       = errors.New("sdk: server url missing")
	ErrInvalidServerURL  = errors.New("sdk: invalid server url")
	ErrRequestFailed     = errors.New("sdk: request failed")
	ErrEmptyBody         = errors.New("sdk: empty response body")
	ErrInvalidVersionMap = errors.New("sdk: invalid version map")
	ErrFileNotFound      = errors.New("sdk: file not found")
	ErrUnexpectedStatus  = errors.New("sdk: unexpected status")
)

const (
	CodeInvalidRequest = "E_INVALID_REQUEST"
	CodeNotFound       = "E_NOT_FOUND"
	CodeAccessDenied   = "E_ACCESS_DENIED"
	CodeRateLimited    = "E_RATE_LIMITED"
	CodeInternalError  = "E_INTERNAL_ERROR"
	CodeUnknownError   = "E_UNKNOWN_ERR"
)

// APIError is returned when the origin answers with a non-2xx status
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d %s - %s", e.StatusCode, e.Code, e.Message)
}

// Is lets callers test a 404 with errors.Is(err, ErrFileNotFound)
func (e *APIError) Is(target error) bool {
	return target == ErrFileNotFound && e.StatusCode == http.StatusNotFound
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return CodeAccessDenied
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status >= 500:
		return CodeInternalError
	case status >= 400:
		return CodeInvalidRequest
	default:
		return CodeUnknownError
	}
}

// newAPIError builds an APIError from a response, preferring the origin's own {code, error}
// body when it sent one
func newAPIError(resp *req.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.GetStatusCode()}

	if body, err := resp.ToBytes(); err == nil && len(body) > 0 {
		var payload APIError
		if jsonUnmarshal(body, &payload) == nil && payload.Code != "" {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
	}

	if apiErr.Code == "" {
		apiErr.Code = codeForStatus(apiErr.StatusCode)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(apiErr.StatusCode)
	}
	return apiErr
}

// handleAPIError folds transport errors and non-2xx responses into one error
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrRequestFailed, operation, requestErr)
	}

	if !resp.IsSuccessState() {
		return fmt.Errorf("%s: %w", operation, newAPIError(resp))
	}

	return nil
}
