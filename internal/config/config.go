package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Media    MediaConfig    `envPrefix:"MEDIA_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
	Presence PresenceConfig `envPrefix:"PRESENCE_"`
}

type ServerConfig struct {
	Addr              string `env:"ADDR" envDefault:"0.0.0.0:8080"`
	CORSOriginPattern string `env:"CORS_ORIGIN_PATTERN" envDefault:"^https?://localhost(:\\d+)?$"`
}

type DatabaseConfig struct {
	Hosts    []string `env:"HOSTS" envDefault:"localhost:27017"`
	Database string   `env:"DATABASE" envDefault:"echochat"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	AuthDB   string   `env:"AUTH_DB" envDefault:"admin"`
	Direct   bool     `env:"DIRECT" envDefault:"true"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type KafkaConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"echochat.events"`
}

type MediaConfig struct {
	Region        string `env:"REGION" envDefault:"us-east-1"`
	Bucket        string `env:"BUCKET" envDefault:"echochat-media"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

type PresenceConfig struct {
	TypingIdleTimeout time.Duration `env:"TYPING_IDLE_TIMEOUT" envDefault:"3s"`
	HeartbeatTTL      time.Duration `env:"HEARTBEAT_TTL" envDefault:"30s"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
