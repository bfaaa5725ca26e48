package youtube

import (
	"context"
	"errors"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for extraction operations.
var (
	// ErrQuotaExceeded indicates the daily API quota or rate limit was
	// exhausted. It is surfaced distinctly from generic transport failure
	// so the orchestrator can terminate early instead of hammering the API.
	ErrQuotaExceeded = errors.New("youtube: quota exceeded")
)

// RequestError wraps errors from a single API request with context about
// which resource and entity were being fetched.
//
//	var reqErr *youtube.RequestError
//	if errors.As(err, &reqErr) {
//		fmt.Printf("fetching %s %s failed: %v\n", reqErr.Resource, reqErr.ID, reqErr.Err)
//	}
type RequestError struct {
	// Resource is the API resource ("channels", "playlistItems", "videos",
	// "commentThreads").
	Resource string
	// ID is the entity or parent ID the request was about.
	ID string
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the request error.
func (e *RequestError) Error() string {
	return "youtube: " + e.Resource + " " + e.ID + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *RequestError) Unwrap() error { return e.Err }

// quotaReasons are the googleapi error reasons that signal quota or rate
// limit exhaustion rather than a plain request failure.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"dailyLimitExceeded":    true,
}

// IsQuotaError reports whether err is a quota or rate-limit failure.
func IsQuotaError(err error) bool {
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == 429 {
		return true
	}
	if gerr.Code == 403 {
		for _, item := range gerr.Errors {
			if quotaReasons[item.Reason] {
				return true
			}
		}
	}
	return false
}

// isRetryable classifies API errors for the retry loop. Quota errors are
// permanent here: backoff policy across a run belongs to the orchestrator,
// not this client. Client errors other than 429 are permanent too.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsQuotaError(err) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 {
		return false
	}
	return true
}
