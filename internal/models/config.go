package models

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every environment override, e.g. GALLERY_DATABASE_URL.
const EnvPrefix = "GALLERY"

type Config struct {
	ServerAddr  string `yaml:"server_addr" split_words:"true"`
	DatabaseURL string `yaml:"database_url" split_words:"true"`
	RedisURL    string `yaml:"redis_url" split_words:"true"`
	AuthSecret  string `yaml:"auth_secret" split_words:"true"`

	MinIO   MinIOConfig   `yaml:"minio" envconfig:"MINIO"`
	Kafka   KafkaConfig   `yaml:"kafka" envconfig:"KAFKA"`
	SMTP    SMTPConfig    `yaml:"smtp" envconfig:"SMTP"`
	Catalog CatalogConfig `yaml:"catalog" envconfig:"CATALOG"`

	// Aspects overrides the crop aspect per bucket kind ("hero", "portfolio").
	Aspects map[string]Aspect `yaml:"aspects" ignored:"true"`

	// ContactRate is the number of inquiries accepted per minute.
	ContactRate int `yaml:"contact_rate" split_words:"true"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" split_words:"true"`
	AccessKey string `yaml:"access_key" split_words:"true"`
	SecretKey string `yaml:"secret_key" split_words:"true"`
	Bucket    string `yaml:"bucket" split_words:"true"`
	UseSSL    bool   `yaml:"use_ssl" split_words:"true"`
	// PublicURL is the base the stored asset URLs are built from.
	PublicURL string `yaml:"public_url" split_words:"true"`
}

type KafkaConfig struct {
	Broker  string `yaml:"broker" split_words:"true"`
	Topic   string `yaml:"topic" split_words:"true"`
	GroupID string `yaml:"group_id" split_words:"true"`
}

type SMTPConfig struct {
	Addr     string `yaml:"addr" split_words:"true"`
	Username string `yaml:"username" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	From     string `yaml:"from" split_words:"true"`
	To       string `yaml:"to" split_words:"true"`
}

type CatalogConfig struct {
	GroupPath    string `yaml:"group_path" split_words:"true"`
	ListLimit    int    `yaml:"list_limit" split_words:"true"`
	MaxDimension int    `yaml:"max_dimension" split_words:"true"`
	StoreQuality int    `yaml:"store_quality" split_words:"true"`
	CropQuality  int    `yaml:"crop_quality" split_words:"true"`
	MaxPixels    int    `yaml:"max_pixels" split_words:"true"`
}

// DefaultConfig returns the settings used for any key the file and the
// environment leave unset.
func DefaultConfig() *Config {
	return &Config{
		ServerAddr: ":8080",
		Kafka: KafkaConfig{
			Topic:   "gallery-inquiries",
			GroupID: "gallery-relay",
		},
		Catalog: CatalogConfig{
			GroupPath:    "namya-portfolio",
			ListLimit:    30,
			MaxDimension: 1920,
			StoreQuality: 82,
			CropQuality:  90,
			MaxPixels:    50_000_000,
		},
		ContactRate: 5,
	}
}

// LoadConfig reads the YAML file at path on top of the defaults and then
// applies GALLERY_* environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	const op = "models.LoadConfig"

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}
