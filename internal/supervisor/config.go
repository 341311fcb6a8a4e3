package supervisor

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML values can be written as "250ms", "3s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config controls a supervisor run. Zero values are filled in from
// DefaultConfig by LoadConfig; a Config built by hand should start from
// DefaultConfig too.
type Config struct {
	// MaxWorkers bounds the number of worker processes per run.
	MaxWorkers int `toml:"max_workers"`

	// OutputDir receives the persisted "file<pid>.hist" artifacts.
	OutputDir string `toml:"output_dir"`

	// SleepBase and SleepStep stagger worker completions: worker i sleeps
	// SleepBase + i*SleepStep after transmitting its result.
	SleepBase Duration `toml:"sleep_base"`
	SleepStep Duration `toml:"sleep_step"`

	// SigWait is how long a "SIG" worker waits for an interrupt before
	// giving up and exiting normally.
	SigWait Duration `toml:"sig_wait"`

	// PollInterval is the coarse interval at which the supervisor's wait
	// loop re-checks the termination counters.
	PollInterval Duration `toml:"poll_interval"`

	// ReadTimeout bounds the notifier's single drain of a result pipe.
	ReadTimeout Duration `toml:"read_timeout"`
}

// DefaultConfig mirrors the observed behavior of the original tool: up to 100
// workers, ten-second base sleep with a three-second step, artifacts in the
// current directory.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:   100,
		OutputDir:    ".",
		SleepBase:    Duration{10 * time.Second},
		SleepStep:    Duration{3 * time.Second},
		SigWait:      Duration{10 * time.Second},
		PollInterval: Duration{250 * time.Millisecond},
		ReadTimeout:  Duration{time.Second},
	}
}

// LoadConfig reads a TOML config file over the defaults. Keys absent from the
// file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", c.MaxWorkers)
	}
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.ReadTimeout.Duration <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.SleepBase.Duration < 0 || c.SleepStep.Duration < 0 || c.SigWait.Duration < 0 {
		return fmt.Errorf("sleep durations must not be negative")
	}
	return nil
}

// WorkerSleep returns the stagger duration for the worker at spawn index i.
func (c Config) WorkerSleep(i int) time.Duration {
	return c.SleepBase.Duration + time.Duration(i)*c.SleepStep.Duration
}
