package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"edu-arena/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port     string `yaml:"port"`
		MediaDir string `yaml:"media_dir"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"min=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
	FTP struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Dir      string `yaml:"dir"`
		BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
	} `yaml:"ftp"`
	Storage struct {
		Dir     string `yaml:"dir"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"storage"`
	Chat struct {
		PageSize          int           `yaml:"page_size" validate:"min=0,max=200"`
		RollbackOnFailure bool          `yaml:"rollback_on_failure"`
		Rooms             []domain.Room `yaml:"rooms" validate:"dive"`
	} `yaml:"chat"`
	Quiz struct {
		TTL             string `yaml:"ttl"`
		TimePerQuestion string `yaml:"time_per_question"`
		RevealDelay     string `yaml:"reveal_delay"`
		AdvanceDelay    string `yaml:"advance_delay"`
		DefeatDelay     string `yaml:"defeat_delay"`
	} `yaml:"quiz"`
	Client struct {
		ServerURL string `yaml:"server_url" validate:"omitempty,url"`
		LikesFile string `yaml:"likes_file"`
	} `yaml:"client"`
}

var validate = validator.New()

// Load reads YAML config from path, applies environment overrides (a .env
// file in the working directory is honoured) and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.Server.Port, "PORT")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if db, err := strconv.Atoi(raw); err == nil {
			c.Redis.DB = db
		}
	}
	override(&c.Postgres.URL, "POSTGRES_URL")
	override(&c.AMQP.URL, "AMQP_URL")
	override(&c.FTP.Host, "FTP_HOST")
	override(&c.FTP.Port, "FTP_PORT")
	override(&c.FTP.User, "FTP_USER")
	override(&c.FTP.Password, "FTP_PASSWORD")
	override(&c.FTP.BaseURL, "FTP_BASE_URL")
	override(&c.Client.ServerURL, "ARENA_SERVER_URL")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.MediaDir == "" {
		c.Server.MediaDir = "data/media"
	}
	if c.AMQP.Exchange == "" {
		c.AMQP.Exchange = "arena.events"
	}
	if c.FTP.Port == "" {
		c.FTP.Port = "21"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = c.Server.MediaDir
	}
	if c.Storage.BaseURL == "" {
		c.Storage.BaseURL = "http://localhost:" + c.Server.Port + "/media"
	}
	if len(c.Chat.Rooms) == 0 {
		c.Chat.Rooms = DefaultRooms()
	}
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = "http://localhost:" + c.Server.Port
	}
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DefaultRooms is the subject room catalog used when none is configured.
func DefaultRooms() []domain.Room {
	return []domain.Room{
		{Tag: "math", Name: "Mathematics"},
		{Tag: "physics", Name: "Physics"},
		{Tag: "chemistry", Name: "Chemistry"},
		{Tag: "biology", Name: "Biology"},
		{Tag: "history", Name: "History"},
		{Tag: "geography", Name: "Geography"},
		{Tag: "literature", Name: "Literature"},
		{Tag: "philosophy", Name: "Philosophy"},
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
