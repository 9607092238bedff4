// Package errors provides standardized error handling for the chat service.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidMessage ErrorCode = "INVALID_MESSAGE"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"

	ErrCodeIntentDataLoadFailed ErrorCode = "INTENT_DATA_LOAD_FAILED"
	ErrCodeIntentDataInvalid    ErrorCode = "INTENT_DATA_INVALID"

	ErrCodeScrapeFailed  ErrorCode = "SCRAPE_FAILED"
	ErrCodeScrapeTimeout ErrorCode = "SCRAPE_TIMEOUT"

	ErrCodeLLMTimeout      ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMUnavailable  ErrorCode = "LLM_UNAVAILABLE"
	ErrCodeEmbeddingFailed ErrorCode = "EMBEDDING_FAILED"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeAdminNotConfigured ErrorCode = "ADMIN_NOT_CONFIGURED"
	ErrCodeAdminUnauthorized  ErrorCode = "ADMIN_UNAUTHORIZED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidMessageError rejects malformed boundary input (empty/oversized).
func NewInvalidMessageError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidMessage,
		Message:   "Message must be between 1 and 1000 characters",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntentDataInvalidError reports a schema violation in intents.json.
func NewIntentDataInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntentDataInvalid,
		Message:   "Intent configuration failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScrapeFailedError wraps an upstream fetch failure. Retryable: the
// source may recover, and nothing is cached on failure.
func NewScrapeFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScrapeFailed,
		Message:   "External data source unavailable",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"source": source},
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError reports the generative fallback exceeding its budget.
func NewLLMTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Generative model did not answer in time",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdminNotConfiguredError means the admin token is absent from config,
// distinct from a bad credential.
func NewAdminNotConfiguredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAdminNotConfigured,
		Message:   "Admin operations are not configured",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdminUnauthorizedError rejects a present-but-wrong credential.
func NewAdminUnauthorizedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAdminUnauthorized,
		Message:   "Invalid admin credential",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Boundary Mapping
// ==========================

// HTTPStatus maps an error code to the status returned at the API boundary.
// Only boundary errors surface; scrape/LLM/cache failures are recovered into
// user-visible messages before reaching this mapping.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidMessage:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeAdminNotConfigured:
		return http.StatusServiceUnavailable
	case ErrCodeAdminUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
