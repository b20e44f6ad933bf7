package simsdk

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req/v3"

	"github.com/openmined/simlog/internal/wire"
)

var (
	ErrNoServerURL = errors.New("sdk: server url missing or invalid")

	// mapped from server error codes
	ErrDedupConflict      = errors.New("sdk: revision already uploaded")
	ErrInvalidCredentials = errors.New("sdk: invalid username or key")
	ErrAccessDenied       = errors.New("sdk: access denied")
	ErrCollectionEmpty    = errors.New("sdk: collection has no uploads")
	ErrRateLimited        = errors.New("sdk: rate limited")
)

const (
	CodeInvalidRequest         = "E_INVALID_REQUEST"
	CodeRateLimited            = "E_RATE_LIMITED"
	CodeInternalError          = "E_INTERNAL_ERROR"
	CodeAccessDenied           = "E_ACCESS_DENIED"
	CodeUnknownError           = "E_UNKNOWN_ERR"
	CodeAuthInvalidCredentials = "E_AUTH_INVALID_CREDENTIALS"
	CodeAuthRegisterFailed     = "E_AUTH_REGISTER_FAILED"
	CodeDedupConflict          = "E_DEDUP_CONFLICT"
	CodeHashMismatch           = "E_HASH_MISMATCH"
	CodeExtractionFailed       = "E_EXTRACTION_FAILED"
	CodeStorageFailed          = "E_STORAGE_FAILED"
	CodeCollectionEmpty        = "E_COLLECTION_EMPTY"
)

var codeErrors = map[string]error{
	CodeDedupConflict:          ErrDedupConflict,
	CodeAuthInvalidCredentials: ErrInvalidCredentials,
	CodeAccessDenied:           ErrAccessDenied,
	CodeCollectionEmpty:        ErrCollectionEmpty,
	CodeRateLimited:            ErrRateLimited,
}

// APIError is a non 2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d %s - %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}

// ProtocolError is a 2xx answer that lacks a header the protocol requires.
type ProtocolError struct {
	Op      string
	Missing string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s response has no %q header", e.Op, e.Missing)
}

func newAPIError(resp *req.Response) *APIError {
	code := resp.Header.Get(wire.HeaderErrorCode)
	if code == "" {
		code = CodeUnknownError
		if resp.StatusCode == http.StatusTooManyRequests {
			code = CodeRateLimited
		}
	}
	msg := strings.TrimSpace(resp.String())
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Code: code, Message: msg}
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		return fmt.Errorf("%s %w", operation, newAPIError(resp))
	}

	return nil
}
