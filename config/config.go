// Package config loads simulation settings from YAML or TOML files.
//
// Keys (both formats):
//
//	k, v                              clusters and dimension
//	average_overlap, maximum_overlap  targets; an average alone drops the default maximum
//	spherical, homogeneous            covariance structure
//	max_eccentricity, min_proportion  draw shape
//	lower, upper                      centroid hypercube
//	max_resamplings, tolerance, evaluator_limit
//	seed                              random seed (0 selects the default stream)
//
// Keys left out keep the calibrate.DefaultOptions value.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/mixsim/calibrate"
)

// ErrUnknownFormat indicates a file extension other than .yaml, .yml or .toml.
var ErrUnknownFormat = errors.New("config: unknown config format")

// Format of a configuration document.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	default:
		return "", fmt.Errorf("FormatOf %q: %w", path, ErrUnknownFormat)
	}
}

// File mirrors the document; nil fields were not set.
type File struct {
	K              *int     `yaml:"k" toml:"k"`
	V              *int     `yaml:"v" toml:"v"`
	AverageOverlap *float64 `yaml:"average_overlap" toml:"average_overlap"`
	MaximumOverlap *float64 `yaml:"maximum_overlap" toml:"maximum_overlap"`
	Spherical      *bool    `yaml:"spherical" toml:"spherical"`
	Homogeneous    *bool    `yaml:"homogeneous" toml:"homogeneous"`
	MaxEcc         *float64 `yaml:"max_eccentricity" toml:"max_eccentricity"`
	MinProportion  *float64 `yaml:"min_proportion" toml:"min_proportion"`
	Lower          *float64 `yaml:"lower" toml:"lower"`
	Upper          *float64 `yaml:"upper" toml:"upper"`
	MaxResamplings *int     `yaml:"max_resamplings" toml:"max_resamplings"`
	Tolerance      *float64 `yaml:"tolerance" toml:"tolerance"`
	EvaluatorLimit *int     `yaml:"evaluator_limit" toml:"evaluator_limit"`
	Seed           *uint64  `yaml:"seed" toml:"seed"`
}

// Config is a decoded run configuration.
type Config struct {
	Options calibrate.Options
	Seed    uint64
	// MaximumSet reports an explicit maximum_overlap key, so command line
	// overrides of the average keep the file's maximum.
	MaximumSet bool
}

// Load reads and decodes path, choosing the decoder by extension.
// The returned options are not validated; calibrate.NewSimulator does that.
func Load(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return Decode(bytes.NewReader(data), format)
}

// Decode parses a document of the given format.
func Decode(r io.Reader, format Format) (*Config, error) {
	var f File
	switch format {
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml config: %w", err)
		}
	case TOML:
		meta, err := toml.NewDecoder(r).Decode(&f)
		if err != nil {
			return nil, fmt.Errorf("decode toml config: %w", err)
		}
		if undec := meta.Undecoded(); len(undec) > 0 {
			return nil, fmt.Errorf("decode toml config: unknown key %q", undec[0].String())
		}
	default:
		return nil, fmt.Errorf("Decode %q: %w", format, ErrUnknownFormat)
	}

	return f.Config(), nil
}

// Config converts the document into options on top of the defaults.
func (f File) Config() *Config {
	var k, v int
	if f.K != nil {
		k = *f.K
	}
	if f.V != nil {
		v = *f.V
	}
	o := calibrate.DefaultOptions(k, v)
	f.Apply(&o)

	cfg := &Config{Options: o, MaximumSet: f.MaximumOverlap != nil}
	if f.Seed != nil {
		cfg.Seed = *f.Seed
	}

	return cfg
}

// Apply overwrites the fields of o that the document sets.
func (f File) Apply(o *calibrate.Options) {
	setInt(&o.K, f.K)
	setInt(&o.V, f.V)
	if f.AverageOverlap != nil {
		o.AverageOverlap = *f.AverageOverlap
		if f.MaximumOverlap == nil {
			o.MaximumOverlap = 0
		}
	}
	setFloat(&o.MaximumOverlap, f.MaximumOverlap)
	setBool(&o.Spherical, f.Spherical)
	setBool(&o.Homogeneous, f.Homogeneous)
	setFloat(&o.MaxEccentricity, f.MaxEcc)
	setFloat(&o.MinProportion, f.MinProportion)
	setFloat(&o.Lower, f.Lower)
	setFloat(&o.Upper, f.Upper)
	setInt(&o.MaxResamplings, f.MaxResamplings)
	setFloat(&o.Tolerance, f.Tolerance)
	setInt(&o.EvaluatorLimit, f.EvaluatorLimit)
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
