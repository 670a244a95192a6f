package main

import (
	"encoding/json"
	"os"
	"time"
)

// demoConfig is the small JSON config cmd/bgsvcdemo reads at startup,
// shaped after the teacher's internal/config.Config: a flat struct with
// JSON tags, loaded once, defaulted in code rather than in the struct
// tags themselves.
type demoConfig struct {
	LogLevel      string `json:"LogLevel"`
	LogFile       string `json:"LogFile"`
	LogConsole    bool   `json:"LogConsole"`
	LogFixedWidth bool   `json:"LogFixedWidth"`

	ServiceName string `json:"ServiceName"`

	EnableKafkaReporter bool        `json:"EnableKafkaReporter"`
	Kafka               kafkaConfig `json:"Kafka"`

	EnableRedisReporter bool        `json:"EnableRedisReporter"`
	Redis               redisConfig `json:"Redis"`
}

type kafkaConfig struct {
	Brokers      []string      `json:"Brokers"`
	Topic        string        `json:"Topic"`
	Compression  string        `json:"Compression"`
	RequiredAcks int           `json:"RequiredAcks"`
	MaxRetries   int           `json:"MaxRetries"`
	RetryBackoff time.Duration `json:"RetryBackoff"`
}

type redisConfig struct {
	Addr     string `json:"Addr"`
	Password string `json:"Password"`
	DB       int    `json:"DB"`
}

func defaultDemoConfig() demoConfig {
	return demoConfig{
		LogLevel:    "info",
		LogConsole:  true,
		ServiceName: "bgsvcdemo",
		Kafka: kafkaConfig{
			Compression:  "snappy",
			RequiredAcks: 1,
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
		},
		Redis: redisConfig{DB: 0},
	}
}

// loadDemoConfig reads path if it exists, overlaying it onto the
// defaults; a missing file is not an error, matching the teacher's
// tolerance for a demo running with no config file at all.
func loadDemoConfig(path string) (demoConfig, error) {
	cfg := defaultDemoConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
