// Command mixsim generates a Gaussian mixture calibrated to a pairwise
// overlap target and writes its parameters as JSON, YAML or TOML.
//
// Usage:
//
//	mixsim -k 4 -v 3 -max 0.15 -bar 0.05 -seed 42 -format yaml
//	mixsim -config run.toml -out mixture.json
//
// Flags given on the command line override the config file. Exit status is 1
// for invalid settings or I/O errors and 2 when no mixture reached the target.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/katalvlaran/mixsim/calibrate"
	"github.com/katalvlaran/mixsim/config"
	"github.com/katalvlaran/mixsim/mixture"
)

const (
	exitOK     = 0
	exitConfig = 1
	exitFail   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mixsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		k        = fs.Int("k", 3, "number of clusters")
		v        = fs.Int("v", 2, "dimension")
		barT     = fs.Float64("bar", 0, "target average pairwise overlap (0 = unset)")
		maxT     = fs.Float64("max", calibrate.DefaultMaximumOverlap, "target maximum pairwise overlap (0 = unset)")
		sph      = fs.Bool("sph", false, "spherical covariances")
		hom      = fs.Bool("hom", false, "one covariance for every cluster")
		ecc      = fs.Float64("ecc", calibrate.DefaultMaxEccentricity, "maximum eccentricity of general covariances")
		pilow    = fs.Float64("pilow", 0, "lower bound of mixing proportions")
		lower    = fs.Float64("lower", 0, "lower bound of the centroid hypercube")
		upper    = fs.Float64("upper", calibrate.DefaultUpper, "upper bound of the centroid hypercube")
		resn     = fs.Int("resn", calibrate.DefaultMaxResamplings, "maximum number of resamplings")
		tol      = fs.Float64("tol", calibrate.DefaultTolerance, "overlap tolerance")
		lim      = fs.Int("lim", calibrate.DefaultEvaluatorLimit, "integration term limit per probability")
		seed     = fs.Uint64("seed", 0, "random seed (0 = default stream)")
		cfgPath  = fs.String("config", "", "YAML or TOML config file")
		format   = fs.String("format", string(formatJSON), "output format: json, yaml or toml")
		out      = fs.String("out", "", "output file (default stdout)")
		logLevel = fs.String("log-level", "info", "log level (env "+envLogLevel+")")
		logJSON  = fs.Bool("log-json", false, "emit JSON logs instead of console output")
	)
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logger, err := newLogger(stderr, *logLevel, set["log-level"], *logJSON)
	if err != nil {
		fmt.Fprintln(stderr, "mixsim:", err)
		return exitConfig
	}

	opts := calibrate.DefaultOptions(*k, *v)
	runSeed := *seed
	fileMax := false
	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			logger.Error().Err(err).Str("path", *cfgPath).Msg("load config")
			return exitConfig
		}
		opts, fileMax = cfg.Options, cfg.MaximumSet
		if !set["seed"] {
			runSeed = cfg.Seed
		}
		logger.Debug().Str("path", *cfgPath).Msg("loaded config")
	}

	overrides := map[string]func(){
		"k":     func() { opts.K = *k },
		"v":     func() { opts.V = *v },
		"bar":   func() { opts.AverageOverlap = *barT },
		"max":   func() { opts.MaximumOverlap = *maxT },
		"sph":   func() { opts.Spherical = *sph },
		"hom":   func() { opts.Homogeneous = *hom },
		"ecc":   func() { opts.MaxEccentricity = *ecc },
		"pilow": func() { opts.MinProportion = *pilow },
		"lower": func() { opts.Lower = *lower },
		"upper": func() { opts.Upper = *upper },
		"resn":  func() { opts.MaxResamplings = *resn },
		"tol":   func() { opts.Tolerance = *tol },
		"lim":   func() { opts.EvaluatorLimit = *lim },
	}
	for name, apply := range overrides {
		if set[name] {
			apply()
		}
	}
	if set["bar"] && !set["max"] && !fileMax {
		opts.MaximumOverlap = 0
	}
	opts.Logger = &logger

	enc, err := encoderFor(*format)
	if err != nil {
		logger.Error().Err(err).Msg("output format")
		return exitConfig
	}

	res, err := calibrate.Simulate(mixture.NewSource(runSeed), opts)
	if err != nil {
		logger.Error().Err(err).Msg("simulate")
		return exitConfig
	}

	rep := newReport(opts, runSeed, res)
	logger.Info().Str("run_id", rep.RunID).Int("attempts", res.Attempts).
		Float64("bar", res.AverageOverlap).Float64("max", res.MaximumOverlap).Bool("fail", res.Fail).
		Msg("simulation finished")

	if err = writeReport(stdout, *out, enc, rep); err != nil {
		logger.Error().Err(err).Msg("write report")
		return exitConfig
	}
	if res.Fail {
		logger.Warn().Str("reason", res.Message).Msg("target not reached")
		return exitFail
	}

	return exitOK
}

func writeReport(stdout io.Writer, path string, enc encoder, rep *report) error {
	if path == "" {
		return enc(stdout, rep)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = enc(f, rep); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
