package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Athul-Krishna/ProjectTransac/pkg/utils"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Postgres PG     `yaml:"postgres"`
	Redis    Redis  `yaml:"redis"`
	Kafka    Kafka  `yaml:"kafka"`
	Saga     Saga   `yaml:"saga"`
	Relay    Relay  `yaml:"relay"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
}

type Saga struct {
	PaymentDeadline time.Duration `yaml:"payment_deadline" env:"PAYMENT_DEADLINE" env-default:"120s"`
	CommandTimeout  time.Duration `yaml:"command_timeout" env:"COMMAND_TIMEOUT" env-default:"10s"`
}

type Relay struct {
	BatchSize int           `yaml:"batch_size" env:"RELAY_BATCH_SIZE" env-default:"50"`
	Interval  time.Duration `yaml:"interval" env:"RELAY_INTERVAL" env-default:"500ms"`
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
