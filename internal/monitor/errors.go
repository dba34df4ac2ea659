package monitor

import "codeberg.org/mutker/battmon/internal/errors"

const (
	ErrTelemetry    = errors.ErrorCode("monitor_telemetry_failed")
	ErrNotification = errors.ErrorCode("monitor_notification_failed")
	ErrRecord       = errors.ErrorCode("monitor_record_failed")
	ErrTickPanic    = errors.ErrTickPanic
)
