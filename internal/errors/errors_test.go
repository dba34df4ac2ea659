package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/battmon/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, "Invalid configuration", errFactory.New(errors.ErrInvalidConfig).Error())
	assert.Equal(t, "custom", errFactory.WithMessage(errors.ErrInvalidConfig, "custom").Error())
	assert.Equal(t, "Internal error occurred: boom",
		errFactory.Wrap(errors.ErrInternal, stderrors.New("boom")).Error())
	assert.Equal(t, "Invalid argument provided: 42",
		errFactory.WithData(errors.ErrInvalidArgument, 42).Error())
	assert.Equal(t, "unknown_code", errFactory.New(errors.ErrorCode("unknown_code")).Error())
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := errors.New().Wrap(errors.ErrCollectMetrics, cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, errors.ErrCollectMetrics, err.Code())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrInvalidLogLevel)
	outer := errFactory.Wrap(errors.ErrInvalidConfig, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrInvalidConfig))
	assert.True(t, errors.HasCode(outer, errors.ErrInvalidLogLevel))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(stderrors.New("plain"), errors.ErrInvalidConfig))
	assert.False(t, errors.HasCode(nil, errors.ErrInvalidConfig))
}
