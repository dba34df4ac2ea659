//go:build !linux

package telemetry

// Elsewhere the battery's charge state is the only signal.
func platformACDetector() ACDetector {
	return nil
}
