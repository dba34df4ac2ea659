package notify

import "codeberg.org/mutker/battmon/internal/errors"

const (
	ErrNotifyFailed        = errors.ErrorCode("notify_failed")
	ErrNoBackend           = errors.ErrorCode("notify_no_backend")
	ErrUnsupportedPlatform = errors.ErrorCode("notify_unsupported_platform")
)
