package challenge

import (
	"fmt"
	"time"
)

// Schedule describes the challenge period sequence: a fixed epoch, a
// possibly irregular first period, and a fixed regular period length
// afterwards. All arithmetic operates on absolute UTC instants; display
// timezone conversion never happens here.
type Schedule struct {
	EpochStart     time.Time
	FirstPeriodEnd time.Time // inclusive
	RegularPeriod  time.Duration
}

// NewSchedule validates and returns a schedule.
func NewSchedule(epochStart, firstPeriodEnd time.Time, regularPeriod time.Duration) (Schedule, error) {
	if !firstPeriodEnd.After(epochStart) {
		return Schedule{}, fmt.Errorf("first period end %s must be after epoch start %s", firstPeriodEnd, epochStart)
	}
	if regularPeriod < Tick {
		return Schedule{}, fmt.Errorf("regular period %s must be at least one tick", regularPeriod)
	}

	return Schedule{
		EpochStart:     epochStart.UTC(),
		FirstPeriodEnd: firstPeriodEnd.UTC(),
		RegularPeriod:  regularPeriod,
	}, nil
}

// PeriodContaining returns the period the given instant falls in. Instants
// before the epoch map to the first period.
func (s Schedule) PeriodContaining(instant time.Time) Period {
	if !instant.After(s.FirstPeriodEnd) {
		return Period{Start: s.EpochStart, End: s.FirstPeriodEnd}
	}

	elapsed := instant.Sub(s.FirstPeriodEnd) - Tick
	index := int64(elapsed / s.RegularPeriod)

	start := s.FirstPeriodEnd.Add(Tick + time.Duration(index)*s.RegularPeriod)
	end := start.Add(s.RegularPeriod - Tick)

	return Period{Start: start, End: end}
}
