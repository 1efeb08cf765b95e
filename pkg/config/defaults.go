package config

// Defaults contains system-wide default configurations applied when a
// submission request leaves a field unset.
type Defaults struct {
	// Language is used when a submission omits the language field.
	Language string `yaml:"language,omitempty"`

	// FortuneNumberMin/Max bound the accepted fortune_number range.
	// Fixed at 1..100 inclusive; not exposed for override via YAML.
	FortuneNumberMin int `yaml:"-"`
	FortuneNumberMax int `yaml:"-"`
}

// DefaultDefaults returns the built-in system defaults.
func DefaultDefaults() *Defaults {
	return &Defaults{
		Language:         "zh",
		FortuneNumberMin: 1,
		FortuneNumberMax: 100,
	}
}
