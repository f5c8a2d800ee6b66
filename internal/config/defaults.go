package config

const (
	defaultWatchDir   = "~/Downloads"
	defaultLibraryDir = "~/sorted"
	defaultDataDir    = "~/.local/share/docsort"
	defaultLogDir     = "~/.local/share/docsort/logs"

	defaultWatcherBackend      = "notify"
	defaultWatchDelaySeconds   = 2
	defaultDebounceSeconds     = 5
	defaultReadyRetries        = 15
	defaultReadyRetrySeconds   = 2
	defaultPollIntervalSeconds = 10
	defaultMaxFileSizeMB       = 100

	defaultConfidenceThreshold = 0.50
	defaultWorkerThreads       = 2

	defaultExtractionMaxLines       = 500
	defaultCommandTimeoutSeconds    = 30
	defaultClassifierBackend        = "keyword"
	defaultClassifierEndpoint       = "http://localhost:11434"
	defaultClassifierModel          = "nomic-embed-text"
	defaultClassifierTimeoutSeconds = 30

	defaultHistoryKeep = 1000

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:   defaultWatchDir,
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Watcher: Watcher{
			Backend:               defaultWatcherBackend,
			WatchDelaySeconds:     defaultWatchDelaySeconds,
			DebounceSeconds:       defaultDebounceSeconds,
			ReadyRetries:          defaultReadyRetries,
			ReadyRetrySeconds:     defaultReadyRetrySeconds,
			PollIntervalSeconds:   defaultPollIntervalSeconds,
			MaxFileSizeMB:         defaultMaxFileSizeMB,
			IgnoredExtensions:     []string{".crdownload", ".part", ".tmp", ".download"},
			ScanExistingOnStartup: false,
		},
		Pipeline: Pipeline{
			ConfidenceThreshold: defaultConfidenceThreshold,
			WorkerThreads:       defaultWorkerThreads,
		},
		Extraction: Extraction{
			TextExtensions:        []string{".txt", ".md", ".py", ".go", ".c", ".ipynb"},
			MaxLines:              defaultExtractionMaxLines,
			Commands:              map[string][]string{},
			CommandTimeoutSeconds: defaultCommandTimeoutSeconds,
		},
		Classifier: Classifier{
			Backend:        defaultClassifierBackend,
			EndpointURL:    defaultClassifierEndpoint,
			Model:          defaultClassifierModel,
			TimeoutSeconds: defaultClassifierTimeoutSeconds,
		},
		History: History{
			Enabled: true,
			Keep:    defaultHistoryKeep,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Categories: map[string]string{},
	}
}
