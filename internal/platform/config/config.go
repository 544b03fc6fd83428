// Package config resolves process configuration from the environment, an
// optional .env file and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"vowly/pkg/platform/circuit"
	pstrings "vowly/pkg/platform/strings"
)

// Lane selects how activity records leave the request path.
type Lane string

const (
	LaneChannel Lane = "channel"
	LaneKafka   Lane = "kafka"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
}

type Logging struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// Breaker configures the circuit guarding the activity sink.
type Breaker struct {
	FailureThreshold int
	Cooldown         time.Duration
	MaxCooldown      time.Duration
	Backoff          circuit.Backoff
}

// Activity configures capture and dispatch.
type Activity struct {
	Enabled         bool
	DeleteAllowList []string
	Lane            Lane
	LaneBuffer      int
	Workers         int
	MaxAttempts     int
	AttemptTimeout  time.Duration
	Breaker         Breaker
}

type Config struct {
	Environment string
	Server      Server
	Logging     Logging
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Activity    Activity
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

const devSigningKey = "dev-secret-key-change-in-production"

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("jwt_signing_key", devSigningKey)
	v.SetDefault("jwt_issuer", "vowly")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("activity_topic", "activity-logs")
	v.SetDefault("activity_consumer_group", "vowly-activity-worker")

	v.SetDefault("activity_log_enabled", true)
	v.SetDefault("activity_delete_allowlist", "wedding,order")
	v.SetDefault("activity_lane", string(LaneChannel))
	v.SetDefault("activity_lane_buffer", 1024)
	v.SetDefault("activity_workers", 2)
	v.SetDefault("activity_max_attempts", 3)
	v.SetDefault("activity_attempt_timeout", 2*time.Second)
	v.SetDefault("activity_breaker_threshold", 5)
	v.SetDefault("activity_breaker_cooldown", time.Minute)
	v.SetDefault("activity_breaker_max_cooldown", 10*time.Minute)
	v.SetDefault("activity_breaker_backoff", string(circuit.BackoffExponential))
}

// Load reads .env (when present) and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Environment: strings.ToLower(strings.TrimSpace(v.GetString("environment"))),
		Server: Server{
			Addr:          v.GetString("server_addr"),
			JWTSigningKey: v.GetString("jwt_signing_key"),
			JWTIssuer:     v.GetString("jwt_issuer"),
		},
		Logging: Logging{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		DatabaseURL: strings.TrimSpace(v.GetString("database_url")),
		Redis: RedisConfig{
			URL: strings.TrimSpace(v.GetString("redis_url")),
		},
		Kafka: KafkaConfig{
			Brokers:       splitTrim(v.GetString("kafka_brokers")),
			Topic:         v.GetString("activity_topic"),
			ConsumerGroup: v.GetString("activity_consumer_group"),
		},
		Activity: Activity{
			Enabled:         v.GetBool("activity_log_enabled"),
			DeleteAllowList: pstrings.SplitList(v.GetString("activity_delete_allowlist")),
			Lane:            Lane(strings.ToLower(v.GetString("activity_lane"))),
			LaneBuffer:      v.GetInt("activity_lane_buffer"),
			Workers:         v.GetInt("activity_workers"),
			MaxAttempts:     v.GetInt("activity_max_attempts"),
			AttemptTimeout:  v.GetDuration("activity_attempt_timeout"),
			Breaker: Breaker{
				FailureThreshold: v.GetInt("activity_breaker_threshold"),
				Cooldown:         v.GetDuration("activity_breaker_cooldown"),
				MaxCooldown:      v.GetDuration("activity_breaker_max_cooldown"),
				Backoff:          circuit.ParseBackoff(strings.ToLower(v.GetString("activity_breaker_backoff"))),
			},
		},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.Activity.Lane {
	case LaneChannel:
	case LaneKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka lane"))
		}
	default:
		errs = append(errs, fmt.Errorf("ACTIVITY_LANE %q is not one of channel, kafka", c.Activity.Lane))
	}
	if c.Activity.LaneBuffer <= 0 {
		errs = append(errs, errors.New("ACTIVITY_LANE_BUFFER must be positive"))
	}
	if c.Activity.Workers <= 0 {
		errs = append(errs, errors.New("ACTIVITY_WORKERS must be positive"))
	}
	if c.Activity.MaxAttempts <= 0 {
		errs = append(errs, errors.New("ACTIVITY_MAX_ATTEMPTS must be positive"))
	}
	if c.Activity.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("ACTIVITY_ATTEMPT_TIMEOUT must be positive"))
	}
	if c.Activity.Breaker.FailureThreshold <= 0 {
		errs = append(errs, errors.New("ACTIVITY_BREAKER_THRESHOLD must be positive"))
	}
	if c.Activity.Breaker.Cooldown <= 0 {
		errs = append(errs, errors.New("ACTIVITY_BREAKER_COOLDOWN must be positive"))
	}
	if c.IsProduction() && c.Server.JWTSigningKey == devSigningKey {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	return errors.Join(errs...)
}

func splitTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
