package telemetry

import "codeberg.org/mutker/battmon/internal/errors"

const (
	// Collection Errors
	ErrReadFailed     = errors.ErrorCode("telemetry_read_failed")
	ErrInvalidReading = errors.ErrorCode("telemetry_invalid_reading")

	// Operation Errors
	ErrOperationCanceled = errors.ErrorCode("telemetry_operation_canceled")
)
