package maker

import (
	"errors"
	"fmt"
	"time"

	"notegen/internal/config"
	"notegen/internal/notes"
)

// Config controls a Maker.
//
// Recognised flags:
//
//	crlf   end rows with \r\n
type Config struct {
	Store        string `yaml:"store"`
	notes.Limits `yaml:",inline"`

	// The pause after each record is IntervalOffset plus a uniform
	// fraction of IntervalMax.
	IntervalMax    time.Duration `yaml:"interval_max"`
	IntervalOffset time.Duration `yaml:"interval_offset"`

	MaxRecords int64        `yaml:"max_records"` // 0 runs until cancelled
	Seed       uint64       `yaml:"seed"`        // 0 is unseeded
	Flags      config.Flags `yaml:"flags"`
}

// DefaultConfig returns the settings of the stock data generator.
func DefaultConfig() Config {
	return Config{
		Store:          "/app/data/notes.csv",
		Limits:         notes.DefaultLimits(),
		IntervalMax:    100 * time.Millisecond,
		IntervalOffset: 10 * time.Microsecond,
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Store == "" {
		return errors.New("store path is empty")
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if c.IntervalMax < 0 || c.IntervalOffset < 0 {
		return fmt.Errorf("negative interval (max %s, offset %s)", c.IntervalMax, c.IntervalOffset)
	}
	if c.MaxRecords < 0 {
		return fmt.Errorf("max_records %d is negative", c.MaxRecords)
	}
	return nil
}
