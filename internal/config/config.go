package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config aggregates every tunable the gateway reads from the environment.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Security SecurityConfig
	Kafka    KafkaConfig
	Gateway  GatewayConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

type LoggingConfig struct {
	Directory string `envconfig:"LOG_DIR" default:"./logs"`
	Level     string `envconfig:"LOG_LEVEL" default:"info"`
	Format    string `envconfig:"LOG_FORMAT" default:"text"`
}

type SecurityConfig struct {
	JWTSecret    string `envconfig:"JWT_SECRET"`
	JWTPublicKey string `envconfig:"JWT_PUBLIC_KEY"`
}

type KafkaConfig struct {
	Brokers         []string `envconfig:"KAFKA_BROKERS"`
	GroupID         string   `envconfig:"KAFKA_GROUP_ID" default:"socia-gateway"`
	BridgeTopic     string   `envconfig:"KAFKA_BRIDGE_TOPIC" default:"gateway.bridge"`
	PostEventsTopic string   `envconfig:"KAFKA_POST_EVENTS_TOPIC" default:"social.post-events"`
}

// GatewayConfig: none of these are correctness-critical, they bound how much
// stale state the process holds between sweeps.
type GatewayConfig struct {
	SendBuffer        int           `envconfig:"WS_SEND_BUFFER" default:"16"`
	IdleThreshold     time.Duration `envconfig:"GATEWAY_IDLE_THRESHOLD" default:"10m"`
	AwayThreshold     time.Duration `envconfig:"GATEWAY_AWAY_THRESHOLD" default:"5m"`
	SweepInterval     time.Duration `envconfig:"GATEWAY_SWEEP_INTERVAL" default:"1m"`
	CleanupInterval   time.Duration `envconfig:"GATEWAY_CLEANUP_INTERVAL" default:"5m"`
	PresenceRetention time.Duration `envconfig:"PRESENCE_RETENTION" default:"15m"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if cfg.Gateway.SendBuffer <= 0 {
		cfg.Gateway.SendBuffer = 16
	}
	return &cfg, nil
}
