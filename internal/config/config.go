// Package config loads go-floor settings from defaults, an optional YAML
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teslashibe/go-floor/pkg/gandalf"
)

// Defaults.
const (
	DefaultVariant         = "multi"
	DefaultTickMS          = 50
	DefaultActionCeilingMS = 2000
	DefaultWebPort         = 8181
	DefaultLogLevel        = "info"
)

// Config holds runtime settings for cmd/floor.
type Config struct {
	Variant       gandalf.Variant
	Tick          time.Duration
	ActionCeiling time.Duration

	// Partner is the partner index the single-party variant watches.
	Partner int

	// Scenario is a YAML perception script; empty means an idle source.
	Scenario string

	Web struct {
		Enabled bool
		Port    int
	}

	LogLevel string
}

// Load reads configuration. path may be empty.
//
// Environment overrides: FLOOR_VARIANT, FLOOR_TICK_MS,
// FLOOR_ACTION_CEILING_MS, FLOOR_PARTNER, FLOOR_SCENARIO, FLOOR_WEB_PORT,
// FLOOR_WEB_ENABLED and LOG_LEVEL.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("variant", DefaultVariant)
	v.SetDefault("tick_ms", DefaultTickMS)
	v.SetDefault("action_ceiling_ms", DefaultActionCeilingMS)
	v.SetDefault("partner", 0)
	v.SetDefault("scenario", "")
	v.SetDefault("web.enabled", true)
	v.SetDefault("web.port", DefaultWebPort)
	v.SetDefault("log_level", DefaultLogLevel)

	_ = v.BindEnv("variant", "FLOOR_VARIANT")
	_ = v.BindEnv("tick_ms", "FLOOR_TICK_MS")
	_ = v.BindEnv("action_ceiling_ms", "FLOOR_ACTION_CEILING_MS")
	_ = v.BindEnv("partner", "FLOOR_PARTNER")
	_ = v.BindEnv("scenario", "FLOOR_SCENARIO")
	_ = v.BindEnv("web.enabled", "FLOOR_WEB_ENABLED")
	_ = v.BindEnv("web.port", "FLOOR_WEB_PORT")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var c Config
	variant, err := gandalf.ParseVariant(v.GetString("variant"))
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.Variant = variant
	c.Tick = time.Duration(v.GetInt("tick_ms")) * time.Millisecond
	c.ActionCeiling = time.Duration(v.GetInt("action_ceiling_ms")) * time.Millisecond
	c.Partner = v.GetInt("partner")
	c.Scenario = v.GetString("scenario")
	c.Web.Enabled = v.GetBool("web.enabled")
	c.Web.Port = v.GetInt("web.port")
	c.LogLevel = v.GetString("log_level")

	return c, c.Validate()
}

// Validate checks ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Variant != gandalf.SingleParty && c.Variant != gandalf.MultiParty {
		errs = append(errs, fmt.Errorf("unknown variant %q", c.Variant))
	}
	if c.Tick <= 0 {
		errs = append(errs, errors.New("tick must be positive"))
	}
	if c.ActionCeiling <= 0 {
		errs = append(errs, errors.New("action ceiling must be positive"))
	}
	if c.Partner < 0 {
		errs = append(errs, errors.New("partner must not be negative"))
	}
	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		errs = append(errs, fmt.Errorf("web port %d out of range", c.Web.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
