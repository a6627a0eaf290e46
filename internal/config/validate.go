package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateConversion() error {
	for _, format := range c.Conversion.Formats {
		switch format {
		case "webp", "avif":
		default:
			return fmt.Errorf("conversion.formats: unsupported format %q", format)
		}
	}
	if c.Conversion.WebPQuality < 1 || c.Conversion.WebPQuality > 100 {
		return errors.New("conversion.webp_quality must be between 1 and 100")
	}
	if c.Conversion.AVIFQuality < 1 || c.Conversion.AVIFQuality > 100 {
		return errors.New("conversion.avif_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.MemoryLimitMiB < -1 {
		return errors.New("batch.memory_limit_mib must be -1 (auto), 0 (unlimited), or positive")
	}
	if c.Batch.TimeBudgetSeconds >= c.Batch.TickInterval {
		return fmt.Errorf(
			"batch.time_budget_seconds (%d) must be below batch.tick_interval (%d)",
			c.Batch.TimeBudgetSeconds, c.Batch.TickInterval,
		)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
