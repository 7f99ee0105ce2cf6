package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"csvgen/pkg/config"
	"csvgen/pkg/generator"
	"csvgen/pkg/log"
	"csvgen/pkg/manifest"
)

//go:embed VERSION
var Version string

type cliFlags struct {
	opts     config.Options
	config   string
	manifest string
	debug    bool
	version  bool
}

// flagAliases maps short flag names to their long form.
var flagAliases = map[string]string{
	"n": "num_of_files",
	"b": "num_of_buckets",
	"p": "destination_path",
	"d": "delimiter",
	"c": "compress",
}

func parseFlags(args []string, output io.Writer) (*cliFlags, map[string]bool, error) {
	fs := flag.NewFlagSet("csvgen", flag.ContinueOnError)
	fs.SetOutput(output)

	f := &cliFlags{opts: config.DefaultOptions()}

	fs.IntVar(&f.opts.Files, "num_of_files", config.DefaultFiles, "Number of files per bucket (or in total without buckets)")
	fs.IntVar(&f.opts.Files, "n", config.DefaultFiles, "Shorthand for -num_of_files")
	fs.IntVar(&f.opts.Buckets, "num_of_buckets", config.DefaultBuckets, "Number of bucket subdirectories, clamped to the file count")
	fs.IntVar(&f.opts.Buckets, "b", config.DefaultBuckets, "Shorthand for -num_of_buckets")
	fs.StringVar(&f.opts.Destination, "destination_path", config.DefaultDestination, "Destination directory; trailing separators are trimmed, a leading / keeps it absolute")
	fs.StringVar(&f.opts.Destination, "p", config.DefaultDestination, "Shorthand for -destination_path")
	fs.StringVar(&f.opts.Delimiter, "delimiter", string(config.DefaultDelimiter), "Field delimiter")
	fs.StringVar(&f.opts.Delimiter, "d", string(config.DefaultDelimiter), "Shorthand for -delimiter")
	fs.BoolVar(&f.opts.Compress, "compress", false, "Zip each file, or each bucket when buckets are used")
	fs.BoolVar(&f.opts.Compress, "c", false, "Shorthand for -compress")
	fs.Int64Var(&f.opts.Seed, "seed", 0, "Random seed (0 picks one)")
	fs.StringVar(&f.config, "config", "", "YAML configuration file; explicit flags override it")
	fs.StringVar(&f.manifest, "manifest", "", "SQLite manifest to record the run in")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %v (boolean flags take -c or -c=true)", fs.Args())
	}

	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) {
		name := fl.Name
		if long, ok := flagAliases[name]; ok {
			name = long
		}
		set[name] = true
	})

	return f, set, nil
}

// resolveOptions layers explicitly set flags on top of the YAML file, if any.
func resolveOptions(f *cliFlags, set map[string]bool) (config.Options, error) {
	if f.config == "" {
		return f.opts, nil
	}

	opts, err := config.LoadOptions(f.config)
	if err != nil {
		return opts, err
	}

	if set["num_of_files"] {
		opts.Files = f.opts.Files
	}
	if set["num_of_buckets"] {
		opts.Buckets = f.opts.Buckets
	}
	if set["destination_path"] {
		opts.Destination = f.opts.Destination
	}
	if set["delimiter"] {
		opts.Delimiter = f.opts.Delimiter
	}
	if set["compress"] {
		opts.Compress = f.opts.Compress
	}
	if set["seed"] {
		opts.Seed = f.opts.Seed
	}

	return opts, nil
}

func run(ctx context.Context, args []string, output io.Writer) error {
	f, set, err := parseFlags(args, output)
	if err != nil {
		return err
	}

	if f.version {
		_, err := fmt.Fprintln(output, strings.TrimSpace(Version))
		return err
	}

	if f.debug {
		log.SetDebugMode()
	}

	opts, err := resolveOptions(f, set)
	if err != nil {
		return err
	}

	cfg := opts.Config()
	if err := cfg.Validate(); err != nil {
		return err
	}

	var store *manifest.Store
	if f.manifest != "" {
		store, err = manifest.NewStore(f.manifest)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close manifest")
			}
		}()
	}

	record := manifest.NewRun(cfg)
	result, genErr := generator.New(cfg).Generate(ctx)
	manifest.Finish(record, result, genErr)

	if store != nil {
		if err := store.SaveRun(record); err != nil {
			return errors.Join(genErr, err)
		}
		log.Info().Str("run_id", record.ID).Str("manifest", f.manifest).Msg("Run recorded")
	}

	return genErr
}

func main() {
	// Initialize logger first
	_ = log.Logger

	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal().Err(err).Msg("Generation failed")
	}

	os.Exit(0)
}
