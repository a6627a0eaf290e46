package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConversion()
	c.normalizeBatch()
	c.normalizeCleanup()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeConversion() {
	formats := make([]string, 0, len(c.Conversion.Formats))
	seen := make(map[string]struct{}, len(c.Conversion.Formats))
	for _, format := range c.Conversion.Formats {
		normalized := strings.ToLower(strings.TrimSpace(format))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		formats = append(formats, normalized)
	}
	if len(formats) == 0 {
		formats = []string{"webp", "avif"}
	}
	c.Conversion.Formats = formats

	c.Conversion.WebPBinary = strings.TrimSpace(c.Conversion.WebPBinary)
	if c.Conversion.WebPBinary == "" {
		c.Conversion.WebPBinary = defaultWebPBinary
	}
	c.Conversion.AVIFBinary = strings.TrimSpace(c.Conversion.AVIFBinary)
	if c.Conversion.AVIFBinary == "" {
		c.Conversion.AVIFBinary = defaultAVIFBinary
	}
	if c.Conversion.ConvertTimeout <= 0 {
		c.Conversion.ConvertTimeout = defaultConvertTimeout
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.TickInterval <= 0 {
		c.Batch.TickInterval = defaultTickInterval
	}
	if c.Batch.TimeBudgetSeconds <= 0 {
		c.Batch.TimeBudgetSeconds = defaultTimeBudgetSeconds
	}
	if c.Batch.RetryBaseSeconds <= 0 {
		c.Batch.RetryBaseSeconds = defaultRetryBaseSeconds
	}
	if c.Batch.RetryMaxSeconds < c.Batch.RetryBaseSeconds {
		c.Batch.RetryMaxSeconds = defaultRetryMaxSeconds
	}
	if c.Batch.ErrorLogCap <= 0 {
		c.Batch.ErrorLogCap = defaultErrorLogCap
	}
}

func (c *Config) normalizeCleanup() {
	if c.Cleanup.TempFileMaxAge <= 0 {
		c.Cleanup.TempFileMaxAge = defaultTempFileMaxAge
	}
	if c.Cleanup.FailedRecordDays <= 0 {
		c.Cleanup.FailedRecordDays = defaultFailedRecordDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
