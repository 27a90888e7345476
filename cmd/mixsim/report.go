package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/mixsim/calibrate"
)

var errUnknownFormat = errors.New("unknown output format")

type outputFormat string

const (
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
	formatTOML outputFormat = "toml"
)

// report is the serialized outcome of one run.
type report struct {
	RunID string `json:"run_id" yaml:"run_id" toml:"run_id"`
	Seed  uint64 `json:"seed" yaml:"seed" toml:"seed"`
	K     int    `json:"k" yaml:"k" toml:"k"`
	V     int    `json:"v" yaml:"v" toml:"v"`

	TargetAverage float64 `json:"target_average_overlap,omitempty" yaml:"target_average_overlap,omitempty" toml:"target_average_overlap,omitempty"`
	TargetMaximum float64 `json:"target_maximum_overlap,omitempty" yaml:"target_maximum_overlap,omitempty" toml:"target_maximum_overlap,omitempty"`

	Proportions []float64     `json:"proportions" yaml:"proportions" toml:"proportions,omitempty"`
	Centroids   [][]float64   `json:"centroids" yaml:"centroids" toml:"centroids,omitempty"`
	Covariances [][][]float64 `json:"covariances" yaml:"covariances" toml:"covariances,omitempty"`
	Omega       [][]float64   `json:"omega,omitempty" yaml:"omega,omitempty" toml:"omega,omitempty"`

	AverageOverlap float64 `json:"average_overlap" yaml:"average_overlap" toml:"average_overlap"`
	MaximumOverlap float64 `json:"maximum_overlap" yaml:"maximum_overlap" toml:"maximum_overlap"`
	Pair           [2]int  `json:"pair" yaml:"pair" toml:"pair"`

	Scale              float64 `json:"scale" yaml:"scale" toml:"scale"`
	Scale2             float64 `json:"scale2" yaml:"scale2" toml:"scale2"`
	Attempts           int     `json:"attempts" yaml:"attempts" toml:"attempts"`
	Fail               bool    `json:"fail" yaml:"fail" toml:"fail"`
	Message            string  `json:"message,omitempty" yaml:"message,omitempty" toml:"message,omitempty"`
	UniformProportions bool    `json:"uniform_proportions" yaml:"uniform_proportions" toml:"uniform_proportions"`
}

func newReport(opts calibrate.Options, seed uint64, res *calibrate.Result) *report {
	r := &report{
		RunID:              uuid.NewString(),
		Seed:               seed,
		K:                  opts.K,
		V:                  opts.V,
		TargetAverage:      opts.AverageOverlap,
		TargetMaximum:      opts.MaximumOverlap,
		AverageOverlap:     res.AverageOverlap,
		MaximumOverlap:     res.MaximumOverlap,
		Pair:               res.Pair,
		Scale:              res.Scale,
		Scale2:             res.Scale2,
		Attempts:           res.Attempts,
		Fail:               res.Fail,
		Message:            res.Message,
		UniformProportions: res.UniformProportions,
	}
	if m := res.Mixture; m != nil {
		r.Proportions = m.Proportions
		r.Centroids = m.Centroids.Values()
		for _, s := range m.Covariances {
			r.Covariances = append(r.Covariances, s.Values())
		}
	}
	if res.Map != nil {
		r.Omega = res.Map.Omega.Values()
	}

	return r
}

type encoder func(io.Writer, *report) error

func encoderFor(name string) (encoder, error) {
	switch outputFormat(strings.ToLower(name)) {
	case formatJSON:
		return func(w io.Writer, r *report) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}, nil
	case formatYAML:
		return func(w io.Writer, r *report) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(r); err != nil {
				return err
			}
			return enc.Close()
		}, nil
	case formatTOML:
		return func(w io.Writer, r *report) error {
			return toml.NewEncoder(w).Encode(r)
		}, nil
	default:
		return nil, fmt.Errorf("%q: %w", name, errUnknownFormat)
	}
}
