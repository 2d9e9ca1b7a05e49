package types

import (
	"fmt"
	"time"
)

// Config holds every knob the sync components take. It is loaded once by
// the CLI and passed into constructors as a value; no component reads
// configuration on its own.
type Config struct {
	// DatabaseFile is the path of the SQLite link store.
	DatabaseFile string `mapstructure:"database_file"`

	Directory DirectoryConfig `mapstructure:"directory"`
	CRM       CRMConfig       `mapstructure:"crm"`

	// CreateReminders forwards the CRM's reminder flag on birthday and
	// deceased dates.
	CreateReminders bool `mapstructure:"create_reminders"`

	// DeleteOnSync enables deletion propagation: a CRM contact is deleted
	// when its linked directory contact disappears.
	DeleteOnSync bool `mapstructure:"delete_on_sync"`

	// StreetReversal reorders "13 Main St" to "Main St 13" when the
	// street line begins with a digit.
	StreetReversal bool `mapstructure:"street_reversal"`

	Fields FieldSet `mapstructure:"fields"`

	// SourceLabels filters directory contacts for the forward sync;
	// TargetLabels filters CRM contacts for the back-sync.
	SourceLabels LabelFilter `mapstructure:"source_labels"`
	TargetLabels LabelFilter `mapstructure:"target_labels"`

	// MaxRetries bounds per-record retries of transient remote errors;
	// RetryDelay is the fixed wait between attempts.
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	LogLevel string `mapstructure:"log_level"`
}

// DirectoryConfig configures the source-side client.
type DirectoryConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Token    string `mapstructure:"token"`
	PageSize int    `mapstructure:"page_size"`
}

// CRMConfig configures the target-side client.
type CRMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`

	// RateLimit is the bound on CRM calls in requests per second. The CRM
	// enforces a global per-account limit, so calls are also serialized.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// FieldSet toggles the individually syncable field categories. Names and
// birthday are always on and have no toggle.
type FieldSet struct {
	Career  bool `mapstructure:"career"`
	Address bool `mapstructure:"address"`
	Phone   bool `mapstructure:"phone"`
	Email   bool `mapstructure:"email"`
	Labels  bool `mapstructure:"labels"`
	Notes   bool `mapstructure:"notes"`
}

// LabelFilter includes or excludes contacts by label. Exclude wins over
// include; both empty means every contact passes.
type LabelFilter struct {
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

// Allows reports whether a contact carrying the given labels passes the
// filter.
func (f LabelFilter) Allows(labels []string) bool {
	for _, l := range labels {
		for _, ex := range f.Exclude {
			if l == ex {
				return false
			}
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, l := range labels {
		for _, in := range f.Include {
			if l == in {
				return true
			}
		}
	}
	return false
}

// Validate checks that the Config is complete enough to run a sync.
func (c Config) Validate() error {
	if c.DatabaseFile == "" {
		return fmt.Errorf("%w: database_file must not be empty", ErrInvalidConfig)
	}
	if c.Directory.BaseURL == "" {
		return fmt.Errorf("%w: directory.base_url must not be empty", ErrInvalidConfig)
	}
	if c.CRM.BaseURL == "" {
		return fmt.Errorf("%w: crm.base_url must not be empty", ErrInvalidConfig)
	}
	if c.CRM.Token == "" {
		return fmt.Errorf("%w: crm.token must not be empty", ErrInvalidConfig)
	}
	if c.CRM.RateLimit <= 0 {
		return fmt.Errorf("%w: crm.rate_limit must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	}
	return nil
}
