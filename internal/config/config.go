// Package config carga la configuración del servicio: YAML opcional con
// overrides por variables de entorno. La password maestra y el tope de keys
// activas son inmutables durante la vida del proceso.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Nombres de env heredados del despliegue original; se mantienen para no
// romper los entornos existentes.
const (
	envMasterPassword = "MASTER_ENCRYPTION_PASSWORD"
	envDatabasePath   = "DATABASE_PATH"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		Driver   string `yaml:"driver"` // fs | postgres
		Path     string `yaml:"path"`   // driver fs
		DSN      string `yaml:"dsn"`    // driver postgres
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Keys struct {
		// Máximo de keys activas (Active + Pending Deactivation) por cliente.
		MaxActivePerClient int `yaml:"max_active_per_client"`
	} `yaml:"keys"`

	Security struct {
		// MasterPassword normalmente viene del env MASTER_ENCRYPTION_PASSWORD;
		// el campo YAML existe sólo para entornos de dev.
		MasterPassword string `yaml:"master_password"`
	} `yaml:"security"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		// límite para POST /keys/validate (freno a fuerza bruta)
		Validate struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"validate"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"rate"`
}

// Load lee el YAML (si path no está vacío), aplica overrides de env y
// defaults. Con path vacío arranca sólo con env + defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// env overrides
	if v := envStr(envMasterPassword); v != "" {
		c.Security.MasterPassword = v
	}
	if v := envStr(envDatabasePath); v != "" {
		c.Storage.Path = v
	}
	if v := envStr("KEYWARDEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := envStr("KEYWARDEN_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := envStr("KEYWARDEN_STORAGE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := envStr("APP_ENV"); v != "" {
		c.App.Env = v
	}
	if v := envStr("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := envStr("MAX_ACTIVE_KEYS_PER_CLIENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Keys.MaxActivePerClient = n
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "fs"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/keys.json"
	}
	if c.Keys.MaxActivePerClient == 0 {
		c.Keys.MaxActivePerClient = 2
	}
	if c.Rate.Validate.Limit == 0 {
		c.Rate.Validate.Limit = 30
	}
	if c.Rate.Validate.Window == "" {
		c.Rate.Validate.Window = "1m"
	}
	if c.Rate.Redis.Prefix == "" {
		c.Rate.Redis.Prefix = "kw:rl:"
	}

	if strings.TrimSpace(c.Security.MasterPassword) == "" {
		return nil, fmt.Errorf("config: falta la password maestra (env %s)", envMasterPassword)
	}
	return &c, nil
}

func envStr(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
