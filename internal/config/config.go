package config

import "time"

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Security      SecurityConfig      `mapstructure:"security"`
	MFA           MFAConfig           `mapstructure:"mfa"`
	TrustedDevice TrustedDeviceConfig `mapstructure:"trusted_device"`
	Email         EmailConfig         `mapstructure:"email"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CookieDomain and CookieSecure control the refresh and trust cookies.
	CookieDomain string `mapstructure:"cookie_domain"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
	// PublicBaseURL is the UI origin used in verification / reset links.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type JWTConfig struct {
	// Secret signs access, refresh and legacy device tokens (HMAC-SHA256).
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`

	// Refresh TTLs are a pure function of (role, remember); admins get the
	// shorter pair. See SessionService.ttlForRole.
	RefreshTTL              time.Duration `mapstructure:"refresh_ttl"`
	RefreshTTLRemember      time.Duration `mapstructure:"refresh_ttl_remember"`
	AdminRefreshTTL         time.Duration `mapstructure:"admin_refresh_ttl"`
	AdminRefreshTTLRemember time.Duration `mapstructure:"admin_refresh_ttl_remember"`

	EmailVerificationTTL time.Duration `mapstructure:"email_verification_ttl"`
	PasswordResetTTL     time.Duration `mapstructure:"password_reset_ttl"`
}

type PasswordHashConfig struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// RateLimitRule is one fixed-window limit.
type RateLimitRule struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	LoginIP       RateLimitRule `mapstructure:"login_ip"`
	RegisterIP    RateLimitRule `mapstructure:"register_ip"`
	RefreshIP     RateLimitRule `mapstructure:"refresh_ip"`
	PasswordReset RateLimitRule `mapstructure:"password_reset"`
	MFAVerify     RateLimitRule `mapstructure:"mfa_verify"`
}

type SecurityConfig struct {
	PasswordHash PasswordHashConfig `mapstructure:"password_hash"`
	RateLimiting RateLimitConfig    `mapstructure:"rate_limiting"`
}

type MFAConfig struct {
	TOTPIssuerName string `mapstructure:"totp_issuer_name"`
	// TOTPEncryptionKey is the hex-encoded 32-byte AES key protecting TOTP
	// secrets at rest.
	TOTPEncryptionKey  string        `mapstructure:"totp_encryption_key"`
	BackupCodeCount    int           `mapstructure:"backup_code_count"`
	EnrollChallengeTTL time.Duration `mapstructure:"enroll_challenge_ttl"`
	LoginChallengeTTL  time.Duration `mapstructure:"login_challenge_ttl"`
}

type TrustedDeviceConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	// EnforceFingerprintDefault seeds the runtime flag store; the live value
	// can be toggled at runtime through the admin flag endpoint.
	EnforceFingerprintDefault bool `mapstructure:"enforce_fingerprint_default"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}
