package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	ParticipantsDir   string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Challenge schedule configuration
	EpochStart          time.Time
	FirstPeriodEnd      time.Time
	PeriodDays          int
	SpecialMissionStart time.Time
	SpecialMissionEnd   time.Time
	EarlyFirstSuccess   bool

	// Feed fetching
	UserAgent    string
	FetchTimeout int

	// Application metadata
	DisplayLanguage string
	Timezone        string
	Debug           bool
	Version         string
}

// SpecialMissionEnabled reports whether a special mission window is configured.
func (c *Cfg) SpecialMissionEnabled() bool {
	return !c.SpecialMissionStart.IsZero() && !c.SpecialMissionEnd.IsZero()
}
