package config

const (
	defaultDataDir  = "~/.local/share/sideline"
	defaultLogDir   = "~/.local/share/sideline/logs"
	defaultMediaDir = "~/.local/share/sideline/media"
	defaultAPIBind  = "127.0.0.1:7841"

	defaultTranscriptionBaseURL        = "https://api.openai.com/v1/audio/transcriptions"
	defaultTranscriptionModel          = "whisper-1"
	defaultTranscriptionRequestTimeout = 120
	defaultTranscriptionMaxElapsed     = 600

	defaultLLMBaseURL        = "https://api.openai.com/v1"
	defaultLLMModel          = "gpt-4o-mini"
	defaultLLMTimeoutSeconds = 90
	defaultLLMMaxRetries     = 3

	defaultResolverMinScore     = 0.85
	defaultResolverMargin       = 0.10
	defaultResolverTeamMinScore = 0.80
	defaultResolverRecencyDays  = 30

	defaultApprovalMinTrustLevel    = 2
	defaultApprovalMinConfidence    = 0.85
	defaultApprovalBlockFloor       = 0.35
	defaultApprovalRevocationWindow = 30

	defaultPipelinePollInterval    = 5
	defaultPipelineRetryLimit      = 3
	defaultHeartbeatInterval       = 15
	defaultHeartbeatTimeout        = 120
	defaultStaleProcessingSeconds  = 300
	defaultFlagEnvPrefix           = "SIDELINE_FLAG_"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			MediaDir: defaultMediaDir,
			APIBind:  defaultAPIBind,
		},
		Transcription: Transcription{
			BaseURL:           defaultTranscriptionBaseURL,
			Model:             defaultTranscriptionModel,
			RequestTimeout:    defaultTranscriptionRequestTimeout,
			MaxElapsedSeconds: defaultTranscriptionMaxElapsed,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxRetries:     defaultLLMMaxRetries,
		},
		Resolver: Resolver{
			MinScore:          defaultResolverMinScore,
			Margin:            defaultResolverMargin,
			TeamMinScore:      defaultResolverTeamMinScore,
			RecencyWindowDays: defaultResolverRecencyDays,
		},
		Approval: Approval{
			MinTrustLevel:           defaultApprovalMinTrustLevel,
			MinConfidence:           defaultApprovalMinConfidence,
			BlockConfidenceFloor:    defaultApprovalBlockFloor,
			RevocationWindowMinutes: defaultApprovalRevocationWindow,
		},
		Pipeline: Pipeline{
			PollInterval:           defaultPipelinePollInterval,
			RetryLimit:             defaultPipelineRetryLimit,
			HeartbeatInterval:      defaultHeartbeatInterval,
			HeartbeatTimeout:       defaultHeartbeatTimeout,
			StaleProcessingSeconds: defaultStaleProcessingSeconds,
		},
		Flags: Flags{
			EnvPrefix: defaultFlagEnvPrefix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
