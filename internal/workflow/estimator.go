package workflow

import "time"

// WaitEstimator turns the number of machines already queued at a workstation
// into a wait estimate. A nil result means no wait.
type WaitEstimator func(queued int) *time.Duration

// FixedWaitEstimator charges perMachine for every machine ahead in the queue.
// It is a linear placeholder, not a model of service times; the estimate is
// taken once at check-in and never revised.
func FixedWaitEstimator(perMachine time.Duration) WaitEstimator {
	return func(queued int) *time.Duration {
		if queued <= 0 {
			return nil
		}
		d := time.Duration(queued) * perMachine
		return &d
	}
}

// DefaultWaitPerMachine is the per-machine interval of the default estimator.
const DefaultWaitPerMachine = 15 * time.Minute
