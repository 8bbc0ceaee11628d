// Package fleet loads servo-fleet configuration and orchestrates a
// simulated fleet of CAN boards.
package fleet

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Masterminds/semver"
	"github.com/caarlos0/env/v6"
)

// SupportedSchemaConstraint bounds the fleet config schema versions this
// build understands.
const SupportedSchemaConstraint = "^1.0.0"

// ServoConfig holds the per-servo recognized configuration options, each
// defaulted by DefaultServoConfig.
type ServoConfig struct {
	Name                     string  `json:"name"`
	MaxVelocityRPM           float64 `json:"maxVelocityRPM"`
	MaxControlSignal         int32   `json:"maxControlSignal"`
	TimeConstant             float64 `json:"timeConstant"`
	EncoderBitResolution     uint    `json:"encoderBitResolution"`
	EncoderDirectionInverted bool    `json:"encoderDirectionInverted"`
	CanID                    uint32  `json:"canId"`
	CanInterface             string  `json:"canInterface"`
}

// DefaultServoConfig returns the factory-default servo configuration.
func DefaultServoConfig() ServoConfig {
	return ServoConfig{
		Name:                     "servo",
		MaxVelocityRPM:           60,
		MaxControlSignal:         100,
		TimeConstant:             0.15,
		EncoderBitResolution:     18,
		EncoderDirectionInverted: false,
		CanID:                    0x10,
		CanInterface:             "vcan0",
	}
}

// FleetConfig is the top-level JSON document the orchestrator loads:
// a schema version gate plus the list of servo definitions.
type FleetConfig struct {
	SchemaVersion string        `json:"schemaVersion"`
	Servos        []ServoConfig `json:"servos"`

	// Env overrides process/ambient knobs outside the JSON document,
	// layered in after the document is parsed.
	Env EnvOverrides `json:"-"`
}

// EnvOverrides are process-ambient knobs read from the environment,
// separate from the per-fleet JSON document: log verbosity, the default
// CAN interface, and a stepper frequency override for test rigs.
type EnvOverrides struct {
	LogVerbose          bool    `env:"SIMFLEET_VERBOSE" envDefault:"false"`
	DefaultCanInterface string  `env:"SIMFLEET_CAN_INTERFACE" envDefault:"vcan0"`
	StepperFrequencyHz  float64 `env:"SIMFLEET_STEPPER_HZ" envDefault:"0"`
}

// SchemaVersionError is returned by LoadConfig when a fleet document's
// schemaVersion does not satisfy SupportedSchemaConstraint.
type SchemaVersionError struct {
	Found      string
	Constraint string
	Cause      error
}

func (e SchemaVersionError) Error() string {
	return fmt.Sprintf("fleet: schema version %q does not satisfy %q: %v", e.Found, e.Constraint, e.Cause)
}

func (e SchemaVersionError) Unwrap() error { return e.Cause }

// servoConfigDoc mirrors ServoConfig with every field as a pointer, so
// unmarshaling can tell "key absent from the document" (nil) apart from
// "key present and explicitly set to its zero value" (non-nil, pointing
// at the zero value). A plain ServoConfig can't make that distinction.
type servoConfigDoc struct {
	Name                     *string  `json:"name"`
	MaxVelocityRPM           *float64 `json:"maxVelocityRPM"`
	MaxControlSignal         *int32   `json:"maxControlSignal"`
	TimeConstant             *float64 `json:"timeConstant"`
	EncoderBitResolution     *uint    `json:"encoderBitResolution"`
	EncoderDirectionInverted *bool    `json:"encoderDirectionInverted"`
	CanID                    *uint32  `json:"canId"`
	CanInterface             *string  `json:"canInterface"`
}

// fleetConfigDoc is the wire shape LoadConfig unmarshals into before
// resolving each servo against its defaults.
type fleetConfigDoc struct {
	SchemaVersion string           `json:"schemaVersion"`
	Servos        []servoConfigDoc `json:"servos"`
}

// resolve fills every field absent from the document with its default,
// leaving explicitly-set fields (including explicit zero values) intact.
func (d servoConfigDoc) resolve() ServoConfig {
	s := DefaultServoConfig()
	if d.Name != nil {
		s.Name = *d.Name
	}
	if d.MaxVelocityRPM != nil {
		s.MaxVelocityRPM = *d.MaxVelocityRPM
	}
	if d.MaxControlSignal != nil {
		s.MaxControlSignal = *d.MaxControlSignal
	}
	if d.TimeConstant != nil {
		s.TimeConstant = *d.TimeConstant
	}
	if d.EncoderBitResolution != nil {
		s.EncoderBitResolution = *d.EncoderBitResolution
	}
	if d.EncoderDirectionInverted != nil {
		s.EncoderDirectionInverted = *d.EncoderDirectionInverted
	}
	if d.CanID != nil {
		s.CanID = *d.CanID
	}
	if d.CanInterface != nil {
		s.CanInterface = *d.CanInterface
	}
	return s
}

// LoadConfig reads a fleet config document from path, validates its
// schema version, fills per-servo defaults for fields absent from the
// document, and overlays process environment variables.
func LoadConfig(path string) (FleetConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FleetConfig{}, fmt.Errorf("fleet: reading config %q: %w", path, err)
	}

	var doc fleetConfigDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return FleetConfig{}, fmt.Errorf("fleet: parsing config %q: %w", path, err)
	}

	if err := validateSchemaVersion(doc.SchemaVersion); err != nil {
		return FleetConfig{}, err
	}

	cfg := FleetConfig{
		SchemaVersion: doc.SchemaVersion,
		Servos:        make([]ServoConfig, len(doc.Servos)),
	}
	for i, sd := range doc.Servos {
		cfg.Servos[i] = sd.resolve()
	}

	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return FleetConfig{}, fmt.Errorf("fleet: parsing environment overrides: %w", err)
	}
	cfg.Env = overrides

	return cfg, nil
}

func validateSchemaVersion(version string) error {
	if version == "" {
		return SchemaVersionError{Found: version, Constraint: SupportedSchemaConstraint, Cause: fmt.Errorf("empty schemaVersion")}
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return SchemaVersionError{Found: version, Constraint: SupportedSchemaConstraint, Cause: err}
	}

	c, err := semver.NewConstraint(SupportedSchemaConstraint)
	if err != nil {
		return err
	}

	if !c.Check(v) {
		return SchemaVersionError{Found: version, Constraint: SupportedSchemaConstraint, Cause: fmt.Errorf("version out of range")}
	}
	return nil
}

// SaveConfig writes cfg back out as indented JSON, the round-trip
// supplemental feature grounded on ConfigLoader::saveToFile in the
// original source.
func SaveConfig(cfg FleetConfig, path string) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("fleet: marshaling config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("fleet: writing config %q: %w", path, err)
	}
	return nil
}
