package config

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr         string `json:"listenAddr"`
	DatabasePath       string `json:"databasePath"`
	WorkerConcurrency  int    `json:"workerConcurrency"`
	MaxJobAttempts     int    `json:"maxJobAttempts"`
	BackoffBaseSeconds int    `json:"backoffBaseSeconds"`
	ReminderDays       int    `json:"reminderDays"`
	ExpiryWarningDays  int    `json:"expiryWarningDays"`
	ReminderCron       string `json:"reminderCron"`
	LateFeeCron        string `json:"lateFeeCron"`
	ExpiryCron         string `json:"expiryCron"`

	// Loaded from the environment, never from the JSON file.
	WebhookSecret string `json:"-"`
}

var (
	cfg Config
	mu  sync.RWMutex
)

const configFilePath = "./rentify_config.json"

func applyDefaults(c *Config) {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8090"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "./rentify.db"
	}
	if c.WorkerConcurrency == 0 {
		c.WorkerConcurrency = 4
	}
	if c.MaxJobAttempts == 0 {
		c.MaxJobAttempts = 3
	}
	if c.BackoffBaseSeconds == 0 {
		c.BackoffBaseSeconds = 5
	}
	if c.ReminderDays == 0 {
		c.ReminderDays = 3
	}
	if c.ExpiryWarningDays == 0 {
		c.ExpiryWarningDays = 30
	}
	// Clock times are a deployment parameter, not a contract.
	if c.ReminderCron == "" {
		c.ReminderCron = "0 8 * * *"
	}
	if c.LateFeeCron == "" {
		c.LateFeeCron = "30 9 * * *"
	}
	if c.ExpiryCron == "" {
		c.ExpiryCron = "0 0 * * *"
	}
}

// LoadConfig reads the JSON config file and overlays secrets from the
// environment (.env is loaded if present). Missing file means defaults.
func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	_ = godotenv.Load()

	var tempCfg Config
	file, err := os.ReadFile(configFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		if err := json.Unmarshal(file, &tempCfg); err != nil {
			return Config{}, err
		}
	}

	applyDefaults(&tempCfg)
	tempCfg.WebhookSecret = os.Getenv("PAYMENT_WEBHOOK_SECRET")
	cfg = tempCfg

	return cfg, nil
}

func SaveConfig(newCfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	applyDefaults(&newCfg)

	secret := cfg.WebhookSecret
	file, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(configFilePath, file, 0644); err != nil {
		return err
	}
	newCfg.WebhookSecret = secret
	cfg = newCfg
	return nil
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}
