package config

const (
	defaultLibraryDir        = "~/uploads"
	defaultStagingDir        = "~/.local/share/optipress/staging"
	defaultLogDir            = "~/.local/share/optipress/logs"
	defaultAPIBind           = "127.0.0.1:7823"
	defaultWebPQuality       = 80
	defaultAVIFQuality       = 60
	defaultWebPBinary        = "cwebp"
	defaultAVIFBinary        = "avifenc"
	defaultConvertTimeout    = 120
	defaultTickInterval      = 60
	defaultTimeBudgetSeconds = 20
	defaultMemoryLimitMiB    = 0
	defaultRetryBaseSeconds  = 30
	defaultRetryMaxSeconds   = 600
	defaultErrorLogCap       = 50
	defaultTempFileMaxAge    = 3600
	defaultFailedRecordDays  = 7
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Conversion: Conversion{
			Formats:        []string{"webp", "avif"},
			WebPQuality:    defaultWebPQuality,
			AVIFQuality:    defaultAVIFQuality,
			WebPBinary:     defaultWebPBinary,
			AVIFBinary:     defaultAVIFBinary,
			ConvertTimeout: defaultConvertTimeout,
		},
		Batch: Batch{
			TickInterval:      defaultTickInterval,
			TimeBudgetSeconds: defaultTimeBudgetSeconds,
			MemoryLimitMiB:    defaultMemoryLimitMiB,
			RetryBaseSeconds:  defaultRetryBaseSeconds,
			RetryMaxSeconds:   defaultRetryMaxSeconds,
			ErrorLogCap:       defaultErrorLogCap,
		},
		Cleanup: Cleanup{
			TempFileMaxAge:   defaultTempFileMaxAge,
			FailedRecordDays: defaultFailedRecordDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
