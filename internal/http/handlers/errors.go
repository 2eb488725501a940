// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings returned in the `code` field
// of every error envelope (see fail()). Generic codes mirror HTTP status
// semantics; domain codes name batch and quota failures a client can act on
// (change the timeframe, add a pillar, wait for tomorrow).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "daily_limit_reached",
//	  "message": "daily limit reached"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Batch input and quota:
	ErrCodeInvalidTimeframe  = "invalid_timeframe"
	ErrCodeEmptyPillarSet    = "empty_pillar_set"
	ErrCodeInvalidStartDate  = "invalid_start_date"
	ErrCodeDailyLimitReached = "daily_limit_reached"
	ErrCodeBatchFailed       = "batch_failed"

	// Listing and updates:
	ErrCodeInvalidDateRange  = "invalid_date_range"
	ErrCodeListFailed        = "list_failed"
	ErrCodeUpdateFailed      = "update_failed"
	ErrCodeDeleteFailed      = "delete_failed"
	ErrCodeQuotaFailed       = "quota_failed"
	ErrCodeUnsupportedFormat = "unsupported_format"
)
