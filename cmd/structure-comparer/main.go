// Package main implements the structure-comparer CLI tool.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/config"
	"github.com/gematik/structure-comparer/engine"
	"github.com/gematik/structure-comparer/loader"
	"github.com/gematik/structure-comparer/manual"
	"github.com/gematik/structure-comparer/pkg/logger"
	"github.com/gematik/structure-comparer/profile"
)

const (
	version = "0.1.0"
	usage   = `structure-comparer - decide how a target FHIR profile is populated

Usage:
  structure-comparer [options] --target <profile> [--source <profile>]...

A profile is a StructureDefinition file or the canonical URL of a profile
loaded with --profiles. Without sources a creation is computed.

Examples:
  structure-comparer --target target.json --source source.json \
      --classification classes.yaml --manual manual.yaml --mapping-id obs
  structure-comparer --profiles ./package --target http://example.org/StructureDefinition/org
  structure-comparer --output json --target target.json --source a.json --source b.json

Options:
`
)

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Exit codes.
const (
	exitOK     = 0
	exitIssues = 1
	exitUsage  = 2
)

// Options holds CLI configuration
type Options struct {
	Profiles       []string
	Target         string
	Sources        []string
	Manual         string
	MappingID      string
	Classification string
	Variant        string
	Output         OutputFormat
	ConfigFile     string
	Dump           bool
	Quiet          bool
	Verbose        bool
	ShowVersion    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if opts.ShowVersion {
		fmt.Fprintf(stdout, "structure-comparer v%s\n", version)
		return exitOK
	}
	if opts.Target == "" {
		fmt.Fprintln(stderr, "Error: --target is required")
		return exitUsage
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	configureLogging(cfg, opts, stderr)

	in, err := buildInput(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitIssues
	}

	comparerOpts := cfg.Options()
	if opts.Verbose {
		comparerOpts = append(comparerOpts, sc.WithDebug(true))
	}
	comparer, err := engine.New(comparerOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize comparer: %v\n", err)
		return exitIssues
	}

	result, err := comparer.Compute(context.Background(), in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: computation failed: %v\n", err)
		return exitIssues
	}

	if opts.Dump {
		spew.Fdump(stderr, result)
	}

	switch opts.Output {
	case OutputJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to encode result: %v\n", err)
			return exitIssues
		}
		fmt.Fprintln(stdout, string(data))
	default:
		printTextResult(stdout, result, opts)
	}

	if result.HasErrors() {
		return exitIssues
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (*Options, error) {
	opts := &Options{}
	var output string

	fs := pflag.NewFlagSet("structure-comparer", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringSliceVarP(&opts.Profiles, "profiles", "p", nil, "StructureDefinition files or directories to load (comma-separated)")
	fs.StringVarP(&opts.Target, "target", "t", "", "Target profile (file or canonical URL)")
	fs.StringArrayVarP(&opts.Sources, "source", "s", nil, "Source profile (file or canonical URL); repeatable")
	fs.StringVarP(&opts.Manual, "manual", "m", "", "Manual entries document (.yaml, .json, .jsonc)")
	fs.StringVar(&opts.MappingID, "mapping-id", "", "Mapping id to look up in the manual entries document")
	fs.StringVarP(&opts.Classification, "classification", "c", "", "Field classification file (.yaml, .json, .jsonc)")
	fs.StringVar(&opts.Variant, "variant", "", "Force the variant: mapping, creation")
	fs.StringVarP(&output, "output", "o", "text", "Output format: text, json")
	fs.StringVar(&opts.ConfigFile, "config", os.Getenv(config.EnvPrefix+"CONFIG"), "Configuration file (YAML)")
	fs.BoolVar(&opts.Dump, "dump", false, "Dump the raw result to stderr")
	fs.BoolVarP(&opts.Quiet, "quiet", "q", false, "Only show fields that need attention")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVarP(&opts.ShowVersion, "version", "v", false, "Show version")

	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	switch strings.ToLower(output) {
	case "json":
		opts.Output = OutputJSON
	case "text":
		opts.Output = OutputText
	default:
		return nil, fmt.Errorf("unknown output format %q", output)
	}

	switch sc.Variant(opts.Variant) {
	case "", sc.VariantMapping, sc.VariantCreation:
	default:
		return nil, fmt.Errorf("unknown variant %q", opts.Variant)
	}

	return opts, nil
}

func configureLogging(cfg *config.Config, opts *Options, stderr io.Writer) {
	logger.SetOutput(stderr)
	level, _ := cfg.LogLevel()
	switch {
	case opts.Verbose:
		level = logger.LevelDebug
	case opts.Quiet:
		level = logger.LevelError
	}
	logger.SetLevel(level)
}

// buildInput loads the profiles, manual entries and classification.
func buildInput(opts *Options) (*engine.Input, error) {
	store := loader.NewStore()
	for _, p := range opts.Profiles {
		if err := loadProfiles(store, p); err != nil {
			return nil, err
		}
	}

	target, err := resolveProfile(store, opts.Target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	in := &engine.Input{
		ID:      opts.MappingID,
		Target:  target,
		Variant: sc.Variant(opts.Variant),
	}
	for _, ref := range opts.Sources {
		source, err := resolveProfile(store, ref)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		in.Sources = append(in.Sources, source)
	}

	if opts.Manual != "" {
		doc, err := manual.Read(opts.Manual)
		if err != nil {
			return nil, err
		}
		if in.Manual, err = doc.Lookup(opts.MappingID); err != nil {
			return nil, err
		}
	}

	if opts.Classification != "" {
		if in.Classification, err = readClassification(opts.Classification); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func loadProfiles(store *loader.Store, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	if info.IsDir() {
		_, err = store.LoadFromDirectory(path)
	} else {
		_, err = store.LoadFromFile(path)
	}
	return err
}

// resolveProfile treats ref as a file when it exists, else as a URL in store.
func resolveProfile(store *loader.Store, ref string) (*profile.Profile, error) {
	if _, err := os.Stat(ref); err == nil {
		return loader.ReadStructureDefinition(ref)
	}
	return store.Get(ref)
}

// readClassification reads a map of field path to classification.
// Unrecognized values become unknown.
func readClassification(path string) (map[string]sc.Classification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classification %s: %w", path, err)
	}

	raw := map[string]string{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &raw)
	default:
		return nil, fmt.Errorf("unsupported classification file: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse classification %s: %w", path, err)
	}

	out := make(map[string]sc.Classification, len(raw))
	for field, value := range raw {
		out[field] = sc.ParseClassification(strings.ToLower(strings.TrimSpace(value)))
	}
	return out, nil
}
