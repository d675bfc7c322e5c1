package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./blogpace.db" description:"Path to the SQLite database file"`

	// Application configuration
	ParticipantsDir   string `long:"participants-dir" env:"PARTICIPANTS_DIR" default:"./participants" description:"Directory containing participant definition files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://challenge.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for participant processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Interval between batch runs in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Challenge schedule configuration
	EpochStart          string `long:"epoch-start" env:"CHALLENGE_EPOCH_START" default:"2025-05-10T00:00:00Z" description:"Challenge epoch start instant (RFC3339, UTC)"`
	FirstPeriodEnd      string `long:"first-period-end" env:"CHALLENGE_FIRST_PERIOD_END" default:"2025-05-24T23:59:59Z" description:"Inclusive end instant of the first challenge period (RFC3339, UTC)"`
	PeriodDays          int    `long:"period-days" env:"CHALLENGE_PERIOD_DAYS" default:"14" description:"Length of a regular challenge period in days"`
	SpecialMissionStart string `long:"special-mission-start" env:"SPECIAL_MISSION_START" default:"2025-05-10T00:00:00Z" description:"Special mission window start (RFC3339, empty disables)"`
	SpecialMissionEnd   string `long:"special-mission-end" env:"SPECIAL_MISSION_END" default:"2025-05-12T23:59:59Z" description:"Special mission window inclusive end (RFC3339, empty disables)"`
	EarlyFirstSuccess   bool   `long:"early-first-success" env:"EARLY_FIRST_SUCCESS" description:"Count the very first period as a success as soon as the participant posts, before the period closes"`

	// Feed fetching
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"BlogChallengeBot/1.0" description:"User agent string for feed requests"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Per-feed fetch timeout in seconds"`

	// Application metadata
	DisplayLanguage string `long:"display-language" env:"DISPLAY_LANGUAGE" default:"ko" description:"BCP 47 language tag used for collating participant listings"`
	Timezone        string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for displayed timestamps (e.g., UTC, Asia/Seoul)"`
	Debug           bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		ParticipantsDir:   raw.ParticipantsDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		PeriodDays:        raw.PeriodDays,
		EarlyFirstSuccess: raw.EarlyFirstSuccess,
		UserAgent:         raw.UserAgent,
		FetchTimeout:      raw.FetchTimeout,
		DisplayLanguage:   raw.DisplayLanguage,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	var err error
	cfg.EpochStart, err = parseInstant("epoch-start", raw.EpochStart, true)
	if err != nil {
		return nil, err
	}
	cfg.FirstPeriodEnd, err = parseInstant("first-period-end", raw.FirstPeriodEnd, true)
	if err != nil {
		return nil, err
	}
	cfg.SpecialMissionStart, err = parseInstant("special-mission-start", raw.SpecialMissionStart, false)
	if err != nil {
		return nil, err
	}
	cfg.SpecialMissionEnd, err = parseInstant("special-mission-end", raw.SpecialMissionEnd, false)
	if err != nil {
		return nil, err
	}

	if !cfg.FirstPeriodEnd.After(cfg.EpochStart) {
		return nil, fmt.Errorf("first-period-end (%s) must be after epoch-start (%s)", cfg.FirstPeriodEnd, cfg.EpochStart)
	}
	if cfg.PeriodDays <= 0 {
		return nil, fmt.Errorf("period-days must be positive, got %d", cfg.PeriodDays)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func parseInstant(name, value string, required bool) (time.Time, error) {
	if value == "" {
		if required {
			return time.Time{}, fmt.Errorf("%s is required", name)
		}
		return time.Time{}, nil
	}

	instant, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s %q: %w", name, value, err)
	}

	return instant.UTC(), nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
