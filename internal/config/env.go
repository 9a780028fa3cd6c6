// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "KAMPUS_PORT"
	EnvLogLevel        = "KAMPUS_LOG_LEVEL"
	EnvShutdownTimeout = "KAMPUS_SHUTDOWN_TIMEOUT"
	EnvInstanceID      = "KAMPUS_INSTANCE_ID"

	// Data
	EnvDataDir      = "KAMPUS_DATA_DIR"
	EnvDatasetPath  = "KAMPUS_DATASET_PATH"
	EnvHandbookPath = "KAMPUS_HANDBOOK_PATH"
	EnvModelDir     = "KAMPUS_MODEL_DIR"

	// Chat
	EnvConfidenceThreshold = "KAMPUS_CONFIDENCE_THRESHOLD"
	EnvResponsePolicy      = "KAMPUS_CHAT_RESPONSE_POLICY"
	EnvSessionTTL          = "KAMPUS_SESSION_TTL"
	EnvPersonalizationSeed = "KAMPUS_PERSONALIZATION_SEED"

	// Model
	EnvKNeighbors     = "KAMPUS_KNN_K"
	EnvNGramMin       = "KAMPUS_NGRAM_MIN"
	EnvNGramMax       = "KAMPUS_NGRAM_MAX"
	EnvMaxFeatures    = "KAMPUS_MAX_FEATURES"
	EnvMaxDocFraction = "KAMPUS_MAX_DOC_FRACTION"

	// Normalizer Feature
	EnvRemoveStopwords = "KAMPUS_REMOVE_STOPWORDS"
	EnvApplyStemming   = "KAMPUS_APPLY_STEMMING"

	// Rate Limits
	EnvGlobalRateRPS  = "KAMPUS_GLOBAL_RATE_RPS"
	EnvUserRateBurst  = "KAMPUS_USER_RATE_BURST"
	EnvUserRateRefill = "KAMPUS_USER_RATE_REFILL"

	// S3 Snapshot Feature
	EnvS3Enabled         = "KAMPUS_S3_ENABLED"
	EnvS3Endpoint        = "KAMPUS_S3_ENDPOINT"
	EnvS3AccessKeyID     = "KAMPUS_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "KAMPUS_S3_SECRET_ACCESS_KEY"
	EnvS3BucketName      = "KAMPUS_S3_BUCKET_NAME"
	EnvS3ModelKey        = "KAMPUS_S3_MODEL_KEY"

	// Sentry Feature
	EnvSentryEnabled     = "KAMPUS_SENTRY_ENABLED"
	EnvSentryDSN         = "KAMPUS_SENTRY_DSN"
	EnvSentryEnvironment = "KAMPUS_SENTRY_ENVIRONMENT"
	EnvSentryRelease     = "KAMPUS_SENTRY_RELEASE"
	EnvSentrySampleRate  = "KAMPUS_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackEnabled  = "KAMPUS_BETTERSTACK_ENABLED"
	EnvBetterStackToken    = "KAMPUS_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "KAMPUS_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "KAMPUS_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "KAMPUS_METRICS_USERNAME"
	EnvMetricsPassword    = "KAMPUS_METRICS_PASSWORD"
)
