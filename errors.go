package ytetl

import (
	"ytetl/warehouse"
	"ytetl/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, ytetl.ErrQuotaExceeded) {
//		fmt.Println("API quota exhausted")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var reqErr *ytetl.RequestError
//	if errors.As(err, &reqErr) {
//		fmt.Printf("fetching %s %s failed: %v\n", reqErr.Resource, reqErr.ID, reqErr.Err)
//	}

// Type aliases for convenient error handling.
type (
	// RequestError wraps errors from a single API request.
	RequestError = youtube.RequestError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrQuotaExceeded indicates the daily API quota or rate limit was exhausted.
	ErrQuotaExceeded = youtube.ErrQuotaExceeded

	// Warehouse errors
	// ErrUnknownRelation indicates a load targeted an unregistered relation.
	ErrUnknownRelation = warehouse.ErrUnknownRelation
	// ErrSchemaMismatch indicates a batch column does not exist in the target relation.
	ErrSchemaMismatch = warehouse.ErrSchemaMismatch
)

// IsQuotaError reports whether err is a quota or rate-limit failure.
func IsQuotaError(err error) bool {
	return youtube.IsQuotaError(err)
}
