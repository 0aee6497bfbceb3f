// Package config loads service settings from the environment with viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Configs holds the settings of the workflow backend and the example client.
type Configs struct {
	AppName              string `mapstructure:"app_name"`
	AppLogLevel          string `mapstructure:"app_log_level"`
	AppPort              int    `mapstructure:"app_port"`
	DatabaseURL          string `mapstructure:"database_url"`
	RedisAddr            string `mapstructure:"redis_addr"`
	AuthJWTSecret        string `mapstructure:"auth_jwt_secret"`
	WorkflowRejectCycles bool   `mapstructure:"workflow_reject_cycles"`
	BackendURL           string `mapstructure:"backend_url"`
}

// Load reads Configs from the environment of v. Pass nil to use a fresh viper instance.
func Load(v *viper.Viper) (*Configs, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}
	cfg := &Configs{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.AppPort <= 0 || cfg.AppPort > 65535 {
		return nil, fmt.Errorf("config: invalid APP_PORT %d", cfg.AppPort)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "workflow-builder")
	v.SetDefault("app_log_level", "INFO")
	v.SetDefault("app_port", 3000)
	v.SetDefault("workflow_reject_cycles", false)
	v.SetDefault("backend_url", "http://localhost:3000")
}

func bindEnvVars(v *viper.Viper) error {
	for key, env := range map[string]string{
		"app_name":               "APP_NAME",
		"app_log_level":          "APP_LOG_LEVEL",
		"app_port":               "APP_PORT",
		"database_url":           "DATABASE_URL",
		"redis_addr":             "REDIS_ADDR",
		"auth_jwt_secret":        "AUTH_JWT_SECRET",
		"workflow_reject_cycles": "WORKFLOW_REJECT_CYCLES",
		"backend_url":            "BACKEND_URL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("config: bind %s: %w", env, err)
		}
	}
	return nil
}
