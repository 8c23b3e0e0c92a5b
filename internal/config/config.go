// Package config loads go-vrrig configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/teslashibe/go-vrrig/pkg/turning"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "VRRIG_"

// Turn provider names accepted by Rig.TurnProvider.
const (
	TurnNone   = "none"
	TurnSnap   = "snap"
	TurnSmooth = "smooth"
)

var (
	// ErrInvalidScale is returned when the avatar scale factor is not positive.
	ErrInvalidScale = errors.New("scale factor must be positive")

	// ErrInvalidCooldown is returned when the sprint stop cooldown is negative.
	ErrInvalidCooldown = errors.New("sprint stop cooldown must not be negative")

	// ErrInvalidTurnProvider is returned for an unknown turn provider name.
	ErrInvalidTurnProvider = errors.New("unknown turn provider")

	// ErrInvalidFrameRate is returned when the frame rate is not positive.
	ErrInvalidFrameRate = errors.New("frame rate must be positive")
)

// Rig holds the avatar locomotion settings consumed by the core.
type Rig struct {
	// ScaleFactor maps play-space meters to avatar units.
	ScaleFactor float64 `env:"SCALE_FACTOR" envDefault:"1.5"`

	// TargetHeight is the avatar eye height the floor offset calibrates towards.
	TargetHeight float64 `env:"TARGET_HEIGHT" envDefault:"2.3"`

	// TurnProvider is one of "none", "snap" or "smooth", in any case.
	TurnProvider    string  `env:"TURN_PROVIDER" envDefault:"smooth"`
	SnapTurnStep    float64 `env:"SNAP_TURN_STEP" envDefault:"45"`
	SmoothTurnSpeed float64 `env:"SMOOTH_TURN_SPEED" envDefault:"180"`

	ToggleSprint       bool          `env:"TOGGLE_SPRINT" envDefault:"false"`
	SprintStopCooldown time.Duration `env:"SPRINT_STOP_COOLDOWN" envDefault:"1s"`

	// CrouchBlocksSprint disables sprinting while roomscale crouching.
	CrouchBlocksSprint bool `env:"CROUCH_BLOCKS_SPRINT" envDefault:"true"`

	// FrameRate is the update rate of the frame runner in Hz.
	FrameRate float64 `env:"FRAME_RATE" envDefault:"90"`
}

// FrameInterval returns the duration of one frame at FrameRate.
func (r Rig) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / r.FrameRate)
}

// Validate checks the rig settings for values the core cannot work with.
func (r Rig) Validate() error {
	if r.ScaleFactor <= 0 {
		return ErrInvalidScale
	}
	if r.SprintStopCooldown < 0 {
		return ErrInvalidCooldown
	}
	if r.FrameRate <= 0 {
		return ErrInvalidFrameRate
	}
	if _, err := turning.ParseKind(r.TurnProvider); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTurnProvider, r.TurnProvider)
	}
	return nil
}

// Server holds network settings for the relay and the publishing client.
type Server struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	RelayURL string `env:"RELAY_URL"`
	RTCURL   string `env:"RTC_URL"`
}

// Log holds logging settings.
type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Recording holds pose stream recording settings.
type Recording struct {
	// Path is the SQLite file frames are written to. Empty disables recording.
	Path string `env:"PATH"`
}

// Config is the full go-vrrig configuration.
type Config struct {
	Rig       Rig       `envPrefix:"RIG_"`
	Server    Server    `envPrefix:"SERVER_"`
	Log       Log       `envPrefix:"LOG_"`
	Recording Recording `envPrefix:"RECORDING_"`
}

// Default returns the configuration with every default applied and no
// environment overrides.
func Default() Config {
	var cfg Config
	// Defaults only: an empty environment cannot fail to parse.
	_ = env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: map[string]string{},
	})
	return cfg
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Rig.Validate(); err != nil {
		return Config{}, fmt.Errorf("rig config: %w", err)
	}
	return cfg, nil
}

// LoadFrom reads the configuration from the given environment map.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Rig.Validate(); err != nil {
		return Config{}, fmt.Errorf("rig config: %w", err)
	}
	return cfg, nil
}
