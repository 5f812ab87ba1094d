package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/johnrodneybargayo/gabay-rooms/internal/assistant"
	"github.com/johnrodneybargayo/gabay-rooms/internal/store"
	pkgconfig "github.com/johnrodneybargayo/gabay-rooms/pkg/config"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/database"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Redis     store.RedisConfig
	Database  DatabaseConfig
	PubSub    pubsub.Config
	Assistant AssistantConfig
	Room      RoomConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type DatabaseConfig struct {
	Enabled         bool
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string `mapstructure:"db_name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type AssistantConfig struct {
	Strategy string                 `mapstructure:"strategy"` // "rules", "openai"
	OpenAI   assistant.OpenAIConfig `mapstructure:"openai"`
}

type RoomConfig struct {
	SeedDefaults    bool          `mapstructure:"seed_defaults"`
	DefaultCapacity int           `mapstructure:"default_capacity"`
	ReplyDelay      time.Duration `mapstructure:"reply_delay"`
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "./gabay-rooms.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", "gabay_rooms")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("pubsub.driver", "redis")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "roomsync-pubsub")
	v.SetDefault("assistant.strategy", "rules")
	v.SetDefault("assistant.openai.api_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("assistant.openai.model", "gpt-4o")
	v.SetDefault("assistant.openai.timeout", "30s")
	v.SetDefault("room.seed_defaults", true)
	v.SetDefault("room.default_capacity", 8)
	v.SetDefault("room.reply_delay", "1500ms")
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "PUBSUB_REDIS_ADDRESS")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("assistant.strategy", "ASSISTANT_STRATEGY")
	v.BindEnv("assistant.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("assistant.openai.api_url", "OPENAI_API_URL")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Assistant.OpenAI.Timeout = parseDuration(v, "assistant.openai.timeout", 30*time.Second)
	cfg.Room.ReplyDelay = parseDuration(v, "room.reply_delay", 1500*time.Millisecond)

	return &cfg, nil
}

// DatabaseConfig converts to the shared database package config.
func (d *DatabaseConfig) ToDatabaseConfig() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		DBName:          d.DBName,
		SSLMode:         d.SSLMode,
		FilePath:        d.FilePath,
		MaxIdleConns:    d.MaxIdleConns,
		MaxOpenConns:    d.MaxOpenConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
	}
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
