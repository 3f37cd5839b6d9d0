package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig reads configs/config.<APP_ENV>.yaml (or CONFIG_PATH) and layers
// AUTH_* environment variables on top.
func LoadConfig() (*Config, error) {
	// .env is optional; it only feeds the environment layer.
	_ = godotenv.Load()

	setDefaults()

	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(fmt.Sprintf("config.%s", env))
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/auth-service")
	}

	viper.SetEnvPrefix("AUTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is fine; environment variables alone can carry a
		// full configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "15s")
	viper.SetDefault("server.cookie_secure", true)

	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_conns", 10)
	viper.SetDefault("database.auto_migrate", true)

	viper.SetDefault("redis.port", 6379)

	viper.SetDefault("jwt.issuer", "orbitcart-auth")
	viper.SetDefault("jwt.access_token_ttl", "15m")
	viper.SetDefault("jwt.refresh_ttl", "24h")
	viper.SetDefault("jwt.refresh_ttl_remember", "720h")
	viper.SetDefault("jwt.admin_refresh_ttl", "8h")
	viper.SetDefault("jwt.admin_refresh_ttl_remember", "168h")
	viper.SetDefault("jwt.email_verification_ttl", "24h")
	viper.SetDefault("jwt.password_reset_ttl", "1h")

	viper.SetDefault("security.password_hash.memory", 65536)
	viper.SetDefault("security.password_hash.iterations", 3)
	viper.SetDefault("security.password_hash.parallelism", 2)
	viper.SetDefault("security.password_hash.salt_length", 16)
	viper.SetDefault("security.password_hash.key_length", 32)

	viper.SetDefault("mfa.totp_issuer_name", "OrbitCart")
	viper.SetDefault("mfa.backup_code_count", 10)
	viper.SetDefault("mfa.enroll_challenge_ttl", "10m")
	viper.SetDefault("mfa.login_challenge_ttl", "5m")

	viper.SetDefault("trusted_device.ttl", "720h")
	viper.SetDefault("trusted_device.enforce_fingerprint_default", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.environment", "development")

	viper.SetDefault("telemetry.service_name", "auth-service")
}

func validate(cfg *Config) error {
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret must be configured")
	}
	if cfg.MFA.TOTPEncryptionKey == "" {
		return fmt.Errorf("mfa.totp_encryption_key must be configured")
	}
	return nil
}
