package config

const (
	defaultWorkDir              = "~/.cache/skupix/work"
	defaultLogDir               = "~/.local/share/skupix/logs"
	defaultOutputDir            = "."
	defaultURLColumn            = "Image"
	defaultIDColumn             = "sku"
	defaultTimeoutSeconds       = 10
	defaultDirectTimeoutSeconds = 15
	defaultWorkers              = 1
	defaultUserAgent            = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultAcceptLanguage       = "en-US,en;q=0.9"
	defaultWidth                = 1200
	defaultHeight               = 1200
	defaultBackground           = "#FFFFFF"
	defaultQuality              = 90
	defaultPerFolder            = 2000
	defaultStartIndex           = 1
	defaultFolderPrefix         = "images"
	defaultBatchColumn          = "base_image"
	defaultChunkSize            = 2500
	defaultHistoryMaxListed     = 20
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultStaleWorkHours       = 24
	maxWorkers                  = 64
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
		},
		Fetch: Fetch{
			URLColumn:            defaultURLColumn,
			IDColumn:             defaultIDColumn,
			TimeoutSeconds:       defaultTimeoutSeconds,
			DirectTimeoutSeconds: defaultDirectTimeoutSeconds,
			Workers:              defaultWorkers,
			UserAgent:            defaultUserAgent,
			AcceptLanguage:       defaultAcceptLanguage,
		},
		Image: Image{
			Width:      defaultWidth,
			Height:     defaultHeight,
			Background: defaultBackground,
			Quality:    defaultQuality,
		},
		Batch: Batch{
			Column:       defaultBatchColumn,
			PerFolder:    defaultPerFolder,
			StartIndex:   defaultStartIndex,
			FolderPrefix: defaultFolderPrefix,
		},
		Split: Split{
			ChunkSize: defaultChunkSize,
		},
		History: History{
			Enabled:   true,
			MaxListed: defaultHistoryMaxListed,
		},
		Logging: Logging{
			Format:         defaultLogFormat,
			Level:          defaultLogLevel,
			RetentionDays:  defaultLogRetentionDays,
			StaleWorkHours: defaultStaleWorkHours,
		},
	}
}
