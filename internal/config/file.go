package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML overlay shape. Pointer fields distinguish
// "absent" from zero so the file only overrides what it names.
type fileConfig struct {
	Service *struct {
		Name *string `yaml:"name"`
	} `yaml:"service"`
	HTTP *struct {
		Address      *string        `yaml:"address"`
		ReadTimeout  *time.Duration `yaml:"read_timeout"`
		WriteTimeout *time.Duration `yaml:"write_timeout"`
		IdleTimeout  *time.Duration `yaml:"idle_timeout"`
	} `yaml:"http"`
	Store *struct {
		Driver          *string        `yaml:"driver"`
		DSN             *string        `yaml:"dsn"`
		MaxOpenConns    *int           `yaml:"max_open_conns"`
		MaxIdleConns    *int           `yaml:"max_idle_conns"`
		ConnMaxIdleTime *time.Duration `yaml:"conn_max_idle_time"`
		ConnMaxLifetime *time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"store"`
	Sampling *struct {
		SampleLimit *int `yaml:"sample_limit"`
		PreviewRows *int `yaml:"preview_rows"`
	} `yaml:"sampling"`
	AI *struct {
		TranslateEnabled *bool          `yaml:"translate_enabled"`
		BaseURL          *string        `yaml:"base_url"`
		APIKey           *string        `yaml:"api_key"`
		Model            *string        `yaml:"model"`
		Temperature      *float64       `yaml:"temperature"`
		Timeout          *time.Duration `yaml:"timeout"`
	} `yaml:"ai"`
	Auth *struct {
		Required   *bool   `yaml:"required"`
		StaticKeys *string `yaml:"static_keys"`
	} `yaml:"auth"`
}

func applyFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if file.Service != nil {
		overrideString(file.Service.Name, &cfg.Service.Name)
	}
	if file.HTTP != nil {
		overrideString(file.HTTP.Address, &cfg.HTTP.Address)
		overrideDuration(file.HTTP.ReadTimeout, &cfg.HTTP.ReadTimeout)
		overrideDuration(file.HTTP.WriteTimeout, &cfg.HTTP.WriteTimeout)
		overrideDuration(file.HTTP.IdleTimeout, &cfg.HTTP.IdleTimeout)
	}
	if file.Store != nil {
		overrideString(file.Store.Driver, &cfg.Store.Driver)
		overrideString(file.Store.DSN, &cfg.Store.DSN)
		overrideInt(file.Store.MaxOpenConns, &cfg.Store.MaxOpenConns)
		overrideInt(file.Store.MaxIdleConns, &cfg.Store.MaxIdleConns)
		overrideDuration(file.Store.ConnMaxIdleTime, &cfg.Store.ConnMaxIdleTime)
		overrideDuration(file.Store.ConnMaxLifetime, &cfg.Store.ConnMaxLifetime)
	}
	if file.Sampling != nil {
		overrideInt(file.Sampling.SampleLimit, &cfg.Sampling.SampleLimit)
		overrideInt(file.Sampling.PreviewRows, &cfg.Sampling.PreviewRows)
	}
	if file.AI != nil {
		overrideBool(file.AI.TranslateEnabled, &cfg.AI.TranslateEnabled)
		overrideString(file.AI.BaseURL, &cfg.AI.BaseURL)
		overrideString(file.AI.APIKey, &cfg.AI.APIKey)
		overrideString(file.AI.Model, &cfg.AI.Model)
		overrideFloat(file.AI.Temperature, &cfg.AI.Temperature)
		overrideDuration(file.AI.Timeout, &cfg.AI.Timeout)
	}
	if file.Auth != nil {
		overrideBool(file.Auth.Required, &cfg.Auth.Required)
		overrideString(file.Auth.StaticKeys, &cfg.Auth.StaticKeys)
	}
	return nil
}

func overrideString(src *string, dst *string) {
	if src != nil {
		*dst = *src
	}
}

func overrideInt(src *int, dst *int) {
	if src != nil {
		*dst = *src
	}
}

func overrideBool(src *bool, dst *bool) {
	if src != nil {
		*dst = *src
	}
}

func overrideFloat(src *float64, dst *float64) {
	if src != nil {
		*dst = *src
	}
}

func overrideDuration(src *time.Duration, dst *time.Duration) {
	if src != nil {
		*dst = *src
	}
}
