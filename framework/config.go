package framework

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	defaultStoreDir       = ".mbsync"
	defaultTimeoutSeconds = 10
	defaultConsumerGroup  = "mbsync-events"
)

// MountebankPorts defines the structure for Mountebank ports
type MountebankPorts struct {
	Admin int `koanf:"admin" validate:"gte=1,lte=65535"`
}

// MountebankConfig defines the Mountebank admin API settings in config.yaml
type MountebankConfig struct {
	URL              string          `koanf:"url" validate:"required,url"`
	Ports            MountebankPorts `koanf:"ports"`
	TimeoutInSeconds int             `koanf:"timeoutInSeconds" validate:"gte=0"`
}

// AdminURL joins the base URL and the admin port, e.g. http://127.0.0.1:2525.
func (c MountebankConfig) AdminURL() string {
	return fmt.Sprintf("%s:%d", c.URL, c.Ports.Admin)
}

// Timeout is the per-call timeout for remote calls.
func (c MountebankConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutInSeconds) * time.Second
}

type KafkaProducerConfig struct {
	Topic string `koanf:"topic"`
}

type KafkaConsumerConfig struct {
	Group string `koanf:"group"`
}

// KafkaConfig controls sync event publishing. Servers and topic are only
// required when Enabled is set.
type KafkaConfig struct {
	Enabled          bool                `koanf:"enabled"`
	BootstrapServers []string            `koanf:"bootstrapServers"`
	Producer         KafkaProducerConfig `koanf:"producer"`
	Consumer         KafkaConsumerConfig `koanf:"consumer"`
}

type RedisConfig struct {
	Addr string `koanf:"addr"`
	DB   int    `koanf:"db" validate:"gte=0"`
}

// StoreConfig selects where imposter snapshots are kept.
type StoreConfig struct {
	Driver string      `koanf:"driver" validate:"omitempty,oneof=file redis"`
	Dir    string      `koanf:"dir"`
	Redis  RedisConfig `koanf:"redis"`
}

// ResponseDefinition is a route response as written in config.yaml.
// Missing headers mean an empty header set.
type ResponseDefinition struct {
	StatusCode int               `koanf:"statusCode" validate:"required,gte=100,lte=599"`
	Headers    map[string]string `koanf:"headers"`
	Body       string            `koanf:"body"`
}

type RouteDefinition struct {
	Path     string             `koanf:"path" validate:"required"`
	Method   string             `koanf:"method" validate:"required"`
	Response ResponseDefinition `koanf:"response"`
}

// ImposterDefinition describes one imposter and its routes.
type ImposterDefinition struct {
	Port     int               `koanf:"port" validate:"gte=1,lte=65535"`
	Protocol string            `koanf:"protocol" validate:"required,oneof=http https tcp smtp"`
	Name     string            `koanf:"name"`
	Routes   []RouteDefinition `koanf:"routes" validate:"dive"`
}

// Config defines the overall structure of the config.yaml
type Config struct {
	Mountebank MountebankConfig     `koanf:"mountebank"`
	Kafka      KafkaConfig          `koanf:"kafka"`
	Store      StoreConfig          `koanf:"store"`
	Imposters  []ImposterDefinition `koanf:"imposters" validate:"dive"`
}

// Imposter returns the definition for port.
func (c *Config) Imposter(port int) (ImposterDefinition, bool) {
	for _, def := range c.Imposters {
		if def.Port == port {
			return def, true
		}
	}
	return ImposterDefinition{}, false
}

func newConfigValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		kafka := sl.Current().Interface().(KafkaConfig)
		if !kafka.Enabled {
			return
		}
		if len(kafka.BootstrapServers) == 0 {
			sl.ReportError(kafka.BootstrapServers, "BootstrapServers", "bootstrapServers", "required_when_enabled", "")
		}
		if kafka.Producer.Topic == "" {
			sl.ReportError(kafka.Producer.Topic, "Topic", "topic", "required_when_enabled", "")
		}
	}, KafkaConfig{})
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(Config)
		seen := make(map[int]bool, len(cfg.Imposters))
		for _, def := range cfg.Imposters {
			if seen[def.Port] {
				sl.ReportError(cfg.Imposters, "Imposters", "imposters", "unique_port", fmt.Sprint(def.Port))
			}
			seen[def.Port] = true
		}
	}, Config{})
	return validate
}

func (c *Config) applyDefaults() {
	if c.Mountebank.TimeoutInSeconds == 0 {
		c.Mountebank.TimeoutInSeconds = defaultTimeoutSeconds
	}
	if c.Kafka.Consumer.Group == "" {
		c.Kafka.Consumer.Group = defaultConsumerGroup
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "file"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = defaultStoreDir
	}
}

// LoadConfig reads the config.yaml file and unmarshals it into a Config struct.
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Load YAML config.
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.applyDefaults()
	if err := newConfigValidator().Struct(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}
