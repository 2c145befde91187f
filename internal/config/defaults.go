package config

const (
	defaultWatchDir           = "~/relic/incoming"
	defaultCompletedDir       = "~/relic/completed"
	defaultFailedDir          = "~/relic/failed"
	defaultDataDir            = "~/.local/share/relic"
	defaultLogDir             = "~/.local/share/relic/logs"
	defaultAPITimeout         = 30
	defaultAPIRetryCount      = 3
	defaultCDNUploadURL       = "https://upload.imagekit.io/api/v1/files/upload"
	defaultCDNFolder          = "/products"
	defaultCDNTimeout         = 60
	defaultCDNRetryCount      = 3
	defaultAIBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultAIModel            = "anthropic/claude-sonnet-4"
	defaultAITimeoutSeconds   = 60
	defaultAIMaxImages        = 5
	defaultMaxDimension       = 2400
	defaultQuality            = 88
	defaultOutputFormat       = "webp"
	defaultThumbnailDimension = 600
	defaultThumbnailQuality   = 70
	defaultBGStrength         = 0.5
	defaultBGFeather          = 2
	defaultPollInterval       = 60
	defaultErrorRetryInterval = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultCategoryID         = "collectibles"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:     defaultWatchDir,
			CompletedDir: defaultCompletedDir,
			FailedDir:    defaultFailedDir,
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
		},
		API: API{
			Timeout:    defaultAPITimeout,
			RetryCount: defaultAPIRetryCount,
		},
		CDN: CDN{
			UploadURL:  defaultCDNUploadURL,
			Folder:     defaultCDNFolder,
			Timeout:    defaultCDNTimeout,
			RetryCount: defaultCDNRetryCount,
		},
		AI: AI{
			Model:          defaultAIModel,
			BaseURL:        defaultAIBaseURL,
			TimeoutSeconds: defaultAITimeoutSeconds,
			MaxImages:      defaultAIMaxImages,
		},
		Categories: Categories{
			Default: defaultCategoryID,
			Entries: map[string]Category{
				"militaria": {
					Prefix:   "MILI",
					Name:     "Militaria",
					Keywords: []string{"wwii", "ww2", "military", "helmet", "uniform", "medal", "bayonet"},
				},
				"collectibles": {
					Prefix:   "COLL",
					Name:     "Collectibles",
					Keywords: []string{"victorian", "antique", "vintage", "porcelain", "silver", "brass"},
				},
			},
			Order: []string{"militaria", "collectibles"},
		},
		ImageProcessing: ImageProcessing{
			MaxDimension:       defaultMaxDimension,
			Quality:            defaultQuality,
			StripEXIF:          true,
			OutputFormat:       defaultOutputFormat,
			DeleteOriginals:    true,
			ThumbnailDimension: defaultThumbnailDimension,
			ThumbnailQuality:   defaultThumbnailQuality,
			BackgroundRemoval: BackgroundRemoval{
				Enabled:         false,
				Tool:            "rembg",
				Strength:        defaultBGStrength,
				BackgroundColor: "#FFFFFF",
				PreserveShadows: false,
				Feather:         defaultBGFeather,
			},
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
