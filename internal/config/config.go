package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rwakeham/wattbox-controller/internal/wattbox"
)

// Built-in defaults, used when neither flags nor environment provide a value.
const (
	DefaultURL      = "http://172.16.19.184"
	DefaultUsername = "wattbox"
	DefaultPassword = "wattbox"
	DefaultAction   = string(wattbox.ACTION_OFF)
)

// Config is the resolved per-invocation configuration record. It is
// assembled once from flags, the .env file, the environment, and the
// defaults above, and never mutated afterwards.
type Config struct {
	URL      string
	Username string
	Password string
	Outlet   int
	Action   wattbox.Action
	Verbose  bool
	Timeout  time.Duration
}

// SetDefaults resets all of the viper properties back to their
// default values.
func SetDefaults() {
	viper.SetDefault("url", DefaultURL)
	viper.SetDefault("username", DefaultUsername)
	viper.SetDefault("password", DefaultPassword)
	viper.SetDefault("outlet", 0)
	viper.SetDefault("action", DefaultAction)
	viper.SetDefault("verbose", false)
	viper.SetDefault("timeout", 10)
}

// BindEnvironment binds each viper key to its WATTBOX_* environment
// variable. Flags bound by the cmd package keep precedence over these.
func BindEnvironment() error {
	bindings := map[string]string{
		"url":      "WATTBOX_URL",
		"username": "WATTBOX_USERNAME",
		"password": "WATTBOX_PASSWORD",
		"outlet":   "WATTBOX_OUTLET",
		"action":   "WATTBOX_ACTION",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// LoadDotEnv reads a .env file into the process environment. The file
// overrides variables already set, so its values sit between CLI flags
// and the ambient environment in precedence. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if err := godotenv.Overload(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load pulls the resolved values out of viper and validates them.
func Load() (*Config, error) {
	action, err := wattbox.ParseAction(viper.GetString("action"))
	if err != nil {
		return nil, err
	}
	outlet := viper.GetInt("outlet")
	if outlet < 1 {
		return nil, fmt.Errorf("outlet is required (use --outlet or WATTBOX_OUTLET)")
	}
	return &Config{
		URL:      viper.GetString("url"),
		Username: viper.GetString("username"),
		Password: viper.GetString("password"),
		Outlet:   outlet,
		Action:   action,
		Verbose:  viper.GetBool("verbose"),
		Timeout:  time.Duration(viper.GetInt("timeout")) * time.Second,
	}, nil
}
