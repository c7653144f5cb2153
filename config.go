// SPDX-FileCopyrightText : © 2022 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package mmdrt

import (
	"os"

	"gopkg.in/yaml.v3"
)

// config.go reduces the pipeline construction API footprint using
// functional options, and layers a YAML tunables file underneath them.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis

// Config holds the tunable knobs a host may adjust without touching model
// or animation data.
type Config struct {
	GravityY             float64 `yaml:"gravity_y"`
	PhysicsFPS           float64 `yaml:"physics_fps"`
	MaxSubsteps          int     `yaml:"max_substeps"`
	SolverIterations     int     `yaml:"solver_iterations"`
	SpringStiffnessScale float64 `yaml:"spring_stiffness_scale"`
	LinearDampingScale   float64 `yaml:"linear_damping_scale"`
	AngularDampingScale  float64 `yaml:"angular_damping_scale"`
	MassScale            float64 `yaml:"mass_scale"`
	JointsEnabled        bool    `yaml:"joints_enabled"`
	DebugLog             bool    `yaml:"debug_log"`
}

// configDefaults holds the default tunables. The default gravity is the
// real-world -9.8, not rescaled to MMD units (1 unit ≈ 8cm).
var configDefaults = Config{
	GravityY:             -9.8,
	PhysicsFPS:           60,
	MaxSubsteps:          5,
	SolverIterations:     4,
	SpringStiffnessScale: 1,
	LinearDampingScale:   1,
	AngularDampingScale:  1,
	MassScale:            1,
	JointsEnabled:        true,
	DebugLog:             false,
}

// Option overrides one or more Config attributes. For use with NewConfig.
type Option func(*Config)

// NewConfig builds a Config starting from configDefaults and applying opts
// in order.
func NewConfig(opts ...Option) Config {
	c := configDefaults
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Gravity sets the world's vertical gravity acceleration.
func Gravity(y float64) Option { return func(c *Config) { c.GravityY = y } }

// PhysicsRate sets the fixed substep rate (Hz) and the maximum number of
// substeps run per Step call.
func PhysicsRate(fps float64, maxSubsteps int) Option {
	return func(c *Config) {
		if fps > 0 {
			c.PhysicsFPS = fps
		}
		if maxSubsteps > 0 {
			c.MaxSubsteps = maxSubsteps
		}
	}
}

// SolverIterations sets the number of constraint-solving passes per substep.
func SolverIterations(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SolverIterations = n
		}
	}
}

// ScaleSprings, ScaleDamping and ScaleMass apply global multipliers on top
// of per-body/per-joint authored values, useful for tuning a model imported
// at an unexpected scale without re-authoring it.
func ScaleSprings(s float64) Option  { return func(c *Config) { c.SpringStiffnessScale = s } }
func ScaleDamping(lin, ang float64) Option {
	return func(c *Config) { c.LinearDampingScale, c.AngularDampingScale = lin, ang }
}
func ScaleMass(s float64) Option { return func(c *Config) { c.MassScale = s } }

// DisableJoints turns off all constraints, useful when isolating whether a
// simulation artifact comes from the joints or the bodies alone.
func DisableJoints() Option { return func(c *Config) { c.JointsEnabled = false } }

// DebugLog enables verbose per-tick diagnostic logging.
func DebugLog() Option { return func(c *Config) { c.DebugLog = true } }

// LoadConfigFile reads a YAML tunables file and returns the Config it
// describes, seeded with configDefaults for any field the file omits.
func LoadConfigFile(path string) (Config, error) {
	c := configDefaults
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c, nil
}
