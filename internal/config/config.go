package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Credential backends accepted by CREDENTIAL_BACKEND.
const (
	CredentialBackendFile   = "file"
	CredentialBackendDynamo = "dynamo" // one item per session, so snapshots must stay under 400 KB
	CredentialBackendRedis  = "redis"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	LogLevel       string
	AllowedOrigins []string // CORS allowed origins

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	SessionIdentity string // fixed key of the single stored session
	DeviceDBPath    string // local whatsmeow device database
	Reconnect       Reconnect

	CredentialBackend string
	CredentialDir     string
	RedisURL          string
	DynamoTables      DynamoTables

	Pairing      Pairing
	Verification Verification
	SMTP         SMTP

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
}

// Reconnect tunes the session manager's reconnection policy.
type Reconnect struct {
	ConflictCooldown time.Duration
	InitialDelay     time.Duration
	Multiplier       float64
	MaxDelay         time.Duration
	Jitter           bool
	StormThreshold   int
	StormWindow      time.Duration
}

// Pairing configures where pairing artifacts are mirrored and who is told about them.
type Pairing struct {
	ArtifactDir  string
	Title        string
	S3BucketName string // empty disables the S3 mirror
	S3Prefix     string
	PresignTTL   time.Duration
	NotifyPhone  string // empty disables the SMS notification
	NotifyEmail  string // empty disables the email notification
	SNSRegion    string
	TerminalQR   bool
	ImageSizePx  int
}

// Verification configures the number verification batches.
type Verification struct {
	PaceEvery    int
	PaceDelay    time.Duration
	QueryTimeout time.Duration
	MaxBatch     int
	BatchTimeout time.Duration // deadline of a whole batch; the HTTP write timeout is derived from it
	RateLimit    float64       // requests/second per IP on /verify
	RateBurst    int
}

// SMTP is the relay used for operator email.
type SMTP struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Credentials string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		SessionIdentity: getEnv("SESSION_IDENTITY", "default"),
		DeviceDBPath:    getEnv("WHATSAPP_DB_PATH", "./data/whatsmeow.db"),
		Reconnect: Reconnect{
			ConflictCooldown: getEnvDuration("RECONNECT_CONFLICT_COOLDOWN", 5*time.Second),
			InitialDelay:     getEnvDuration("RECONNECT_INITIAL_DELAY", 500*time.Millisecond),
			Multiplier:       getEnvFloat("RECONNECT_MULTIPLIER", 2.0),
			MaxDelay:         getEnvDuration("RECONNECT_MAX_DELAY", 30*time.Second),
			Jitter:           getEnvBool("RECONNECT_JITTER", true),
			StormThreshold:   getEnvInt("RECONNECT_STORM_THRESHOLD", 5),
			StormWindow:      getEnvDuration("RECONNECT_STORM_WINDOW", time.Minute),
		},

		CredentialBackend: strings.ToLower(getEnv("CREDENTIAL_BACKEND", CredentialBackendFile)),
		CredentialDir:     getEnv("CREDENTIAL_DIR", "./auth_info"),
		RedisURL:          getEnv("REDIS_URL", ""),
		DynamoTables: DynamoTables{
			Credentials: getEnv("DYNAMO_TABLE_CREDENTIALS", "bridge_credentials"),
		},

		Pairing: Pairing{
			ArtifactDir:  getEnv("PAIRING_ARTIFACT_DIR", "."),
			Title:        getEnv("PAIRING_TITLE", "Scan to connect Nexus"),
			S3BucketName: getEnv("S3_BUCKET_NAME", ""),
			S3Prefix:     getEnv("S3_PAIRING_PREFIX", "pairing/"),
			PresignTTL:   getEnvDuration("S3_PRESIGN_TTL", 10*time.Minute),
			NotifyPhone:  getEnv("PAIRING_NOTIFY_PHONE", ""),
			NotifyEmail:  getEnv("PAIRING_NOTIFY_EMAIL", ""),
			SNSRegion:    getEnv("SNS_REGION", "us-east-1"),
			TerminalQR:   getEnvBool("PAIRING_TERMINAL_QR", true),
			ImageSizePx:  getEnvInt("PAIRING_IMAGE_SIZE", 400),
		},
		Verification: Verification{
			PaceEvery:    getEnvInt("VERIFY_PACE_EVERY", 5),
			PaceDelay:    getEnvDuration("VERIFY_PACE_DELAY", 300*time.Millisecond),
			QueryTimeout: getEnvDuration("VERIFY_QUERY_TIMEOUT", 10*time.Second),
			MaxBatch:     getEnvInt("VERIFY_MAX_BATCH", 500),
			BatchTimeout: getEnvDuration("VERIFY_BATCH_TIMEOUT", 5*time.Minute),
			RateLimit:    getEnvFloat("VERIFY_RATE_LIMIT", 2),
			RateBurst:    getEnvInt("VERIFY_RATE_BURST", 4),
		},
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnv("SMTP_PORT", "1025"),
			From:     getEnv("SMTP_FROM", "wa-bridge@localhost"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 30*24*time.Hour),
	}
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("300ms", "5s").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
