package challenge

import (
	"time"
)

// Accruer walks a participant's finalized periods forward from the last
// persisted checkpoint and tallies one success or failure per period.
// It is a pure function over already-validated inputs: running it twice
// with the same posts and the same now yields the same state, and the
// checkpoint only ever moves forward.
type Accruer struct {
	schedule Schedule

	// earlyFirstSuccess grants a provisional success while the very first
	// period is still open and the participant has already posted in it.
	// The grant is stripped and re-derived on every run, so closing the
	// period replaces it with the regular tally instead of stacking on it.
	earlyFirstSuccess bool
}

func NewAccruer(schedule Schedule, earlyFirstSuccess bool) *Accruer {
	return &Accruer{
		schedule:          schedule,
		earlyFirstSuccess: earlyFirstSuccess,
	}
}

// Run returns the updated accrual state. counted must be the full counted
// history from epoch start, ascending.
func (a *Accruer) Run(counted []time.Time, prior State, now time.Time) State {
	state := prior

	// A checkpoint before the epoch cannot belong to any period; treat
	// the participant as never finalized.
	if state.LastProcessedPeriodEnd != nil && state.LastProcessedPeriodEnd.Before(a.schedule.EpochStart) {
		state.LastProcessedPeriodEnd = nil
	}

	// Strip a provisional early grant so the walk below re-derives it.
	if a.earlyFirstSuccess && state.LastProcessedPeriodEnd == nil &&
		state.SuccessCount == 1 && state.FailureCount == 0 {
		state.SuccessCount = 0
	}

	cursor := a.schedule.EpochStart
	if state.LastProcessedPeriodEnd != nil {
		cursor = state.LastProcessedPeriodEnd.Add(Tick)
	}

	for {
		period := a.schedule.PeriodContaining(cursor)
		if !period.FinalizedAt(now) {
			break
		}

		if anyWithin(counted, period) {
			state.SuccessCount++
		} else {
			state.FailureCount++
		}

		end := period.End
		state.LastProcessedPeriodEnd = &end
		cursor = end.Add(Tick)
	}

	current := a.schedule.PeriodContaining(now)
	state.IsActive = anyWithin(counted, current)

	if a.earlyFirstSuccess && state.LastProcessedPeriodEnd == nil &&
		state.IsActive && state.SuccessCount == 0 && state.FailureCount == 0 {
		state.SuccessCount = 1
	}

	return state
}

func anyWithin(instants []time.Time, period Period) bool {
	for _, instant := range instants {
		if period.Contains(instant) {
			return true
		}
	}
	return false
}
