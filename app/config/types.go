package config

// Definition is one participant definition file. The participant's store
// key (slug) is derived from the filename, so renaming the file renames
// the participant.
type Definition struct {
	Slug       string `yaml:"-"`
	Name       string `yaml:"name"`
	FeedURL    string `yaml:"feed_url"`
	WebsiteURL string `yaml:"website_url"`

	// SkipCount is the number of earliest eligible posts consumed by the
	// onboarding grace before counting starts. Resolved here, at
	// registration time, so the engine never special-cases participants.
	SkipCount *int `yaml:"skip_count"`
}

// ResolvedSkipCount returns the effective skip count (default 1).
func (d *Definition) ResolvedSkipCount() int {
	if d.SkipCount == nil {
		return 1
	}
	return *d.SkipCount
}
