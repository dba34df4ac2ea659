package telemetry

import (
	"context"
	"math"
	"time"

	"codeberg.org/mutker/battmon/internal/errors"
	"codeberg.org/mutker/battmon/internal/logger"
	"github.com/distatus/battery"
)

type source struct {
	read Reader
	ac   ACDetector
	now  func() time.Time
}

// NewSource returns a Source backed by the operating system's battery interface.
func NewSource(opts ...Option) Source {
	s := &source{
		read: battery.GetAll,
		ac:   platformACDetector(),
		now:  wallClock,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// wallClock drops the monotonic reading, which stops while the host is suspended.
func wallClock() time.Time {
	return time.Now().Round(0)
}

func (s *source) Sample(ctx context.Context) (Sample, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return Sample{}, errFactory.Wrap(ErrOperationCanceled, err)
	}

	batteries, err := s.read()
	bat, err := usableBattery(batteries, err)
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrReadFailed, err)
	}

	sample := Sample{Timestamp: s.now()}
	if bat == nil {
		return sample, nil
	}

	if bat.Full <= 0 {
		return Sample{}, errFactory.WithData(ErrInvalidReading, "battery reports zero full capacity")
	}

	sample.Present = true
	sample.Percentage = percentage(bat.Current, bat.Full)
	sample.OnACPower = s.onACPower(bat)

	return sample, nil
}

func (s *source) onACPower(bat *battery.Battery) bool {
	if s.ac != nil {
		if online, known := s.ac(); known {
			return online
		}
	}

	switch bat.State.Raw {
	case battery.Charging, battery.Full:
		return true
	default:
		return false
	}
}

// usableBattery picks the first battery whose charge and state could be read.
// Only one battery is considered; there is no aggregation across batteries.
func usableBattery(batteries []*battery.Battery, err error) (*battery.Battery, error) {
	if err != nil {
		var partial battery.Errors
		if !errors.As(err, &partial) {
			return nil, err
		}

		for i, bat := range batteries {
			if bat == nil {
				continue
			}
			if i >= len(partial) || chargeReadable(partial[i]) {
				return bat, nil
			}
			logger.Debug().Int("battery", i).Err(partial[i]).Msg("Skipping unreadable battery")
		}

		if len(batteries) == 0 {
			return nil, nil
		}

		return nil, err
	}

	for _, bat := range batteries {
		if bat != nil {
			return bat, nil
		}
	}

	return nil, nil
}

// chargeReadable reports whether a per-battery error still leaves charge and state usable.
func chargeReadable(err error) bool {
	if err == nil {
		return true
	}

	var partial battery.ErrPartial
	if errors.As(err, &partial) {
		return partial.Current == nil && partial.Full == nil && partial.State == nil
	}

	var partialPtr *battery.ErrPartial
	if errors.As(err, &partialPtr) {
		return partialPtr.Current == nil && partialPtr.Full == nil && partialPtr.State == nil
	}

	return false
}

// percentage truncates so that an integer threshold compares the same as the raw ratio.
func percentage(current, full float64) int {
	p := int(math.Floor(current / full * 100))

	return max(0, min(p, 100))
}
