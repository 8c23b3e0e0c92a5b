package player

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/teslashibe/go-vrrig/internal/config"
	"github.com/teslashibe/go-vrrig/internal/log"
	"github.com/teslashibe/go-vrrig/pkg/ik"
	"github.com/teslashibe/go-vrrig/pkg/locomotion"
)

// Config holds player construction settings.
// Use functional options (WithXxx) to set these values.
type Config struct {
	Rig config.Rig

	// IK
	Offsets   ik.Offsets
	Holders   ik.HolderOffsets
	BonePaths ik.Paths
	Bones     ik.BoneLookup // Optional; skeleton is resolved when set

	Orientation locomotion.Orientation

	// Identity
	PlayerID uuid.UUID

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring a Player.
type Option func(*Config)

// WithRig sets the rig settings.
func WithRig(rig config.Rig) Option {
	return func(c *Config) {
		c.Rig = rig
	}
}

// WithOffsets overrides the IK target offsets.
func WithOffsets(o ik.Offsets) Option {
	return func(c *Config) {
		c.Offsets = o
	}
}

// WithSkeleton resolves the avatar skeleton through lookup at construction.
func WithSkeleton(lookup ik.BoneLookup, paths ik.Paths) Option {
	return func(c *Config) {
		c.Bones = lookup
		c.BonePaths = paths
	}
}

// WithOrientation overrides the body turning weights.
func WithOrientation(o locomotion.Orientation) Option {
	return func(c *Config) {
		c.Orientation = o
	}
}

// WithPlayerID sets the identity stamped on snapshots.
func WithPlayerID(id uuid.UUID) Option {
	return func(c *Config) {
		c.PlayerID = id
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns the default player configuration with a fresh ID.
func DefaultConfig() *Config {
	return &Config{
		Rig:         config.Default().Rig,
		Offsets:     ik.DefaultOffsets(),
		Holders:     ik.DefaultHolderOffsets(),
		BonePaths:   ik.DefaultPaths(),
		Orientation: locomotion.DefaultOrientation(),
		PlayerID:    uuid.New(),
		Logger:      log.For("player"),
	}
}
