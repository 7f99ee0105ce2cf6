// Package config holds the normalized generator configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFiles       = 1
	DefaultBuckets     = 0
	DefaultDestination = "."
	DefaultDelimiter   = ','
)

// ErrInvalidDelimiter is returned by Validate when the delimiter cannot separate CSV fields.
var ErrInvalidDelimiter = errors.New("invalid delimiter")

// Config is an immutable, normalized generator configuration.
type Config struct {
	files       int
	buckets     int
	destination string
	delimiter   rune
	compress    bool
	seed        int64
}

// Options is the raw, unnormalized form read from flags, YAML or JSON request bodies.
type Options struct {
	Files       int    `yaml:"num_of_files" json:"num_of_files"`
	Buckets     int    `yaml:"num_of_buckets" json:"num_of_buckets"`
	Destination string `yaml:"destination_path" json:"destination_path"`
	Delimiter   string `yaml:"delimiter" json:"delimiter"`
	Compress    bool   `yaml:"compress" json:"compress"`
	Seed        int64  `yaml:"seed" json:"seed"`
}

// DefaultOptions returns the option values used when nothing is specified.
func DefaultOptions() Options {
	return Options{
		Files:       DefaultFiles,
		Buckets:     DefaultBuckets,
		Destination: DefaultDestination,
		Delimiter:   string(DefaultDelimiter),
	}
}

// New builds a Config, coercing out-of-range values instead of failing.
func New(files, buckets int, destination, delimiter string, compress bool) Config {
	return Options{
		Files:       files,
		Buckets:     buckets,
		Destination: destination,
		Delimiter:   delimiter,
		Compress:    compress,
	}.Config()
}

// Config normalizes the options.
func (o Options) Config() Config {
	files := max(1, o.Files)
	buckets := max(0, min(o.Buckets, files))

	delimiter := DefaultDelimiter
	if r, size := utf8.DecodeRuneInString(o.Delimiter); size > 0 {
		delimiter = r
	}

	return Config{
		files:       files,
		buckets:     buckets,
		destination: NormalizeDestination(o.Destination),
		delimiter:   delimiter,
		compress:    o.Compress,
		seed:        o.Seed,
	}
}

// NormalizeDestination trims whitespace and trailing separators and appends exactly one separator.
// An empty path means the working directory; a leading separator is kept.
func NormalizeDestination(path string) string {
	path = strings.TrimSpace(path)
	trimmed := strings.TrimRight(path, `/`+string(filepath.Separator))
	trimmed = strings.TrimSpace(trimmed)

	if trimmed == "" {
		if path != "" && (path[0] == '/' || path[0] == filepath.Separator) {
			return string(filepath.Separator)
		}
		trimmed = DefaultDestination
	}

	return trimmed + string(filepath.Separator)
}

// WithDestination returns a copy of c writing under destination.
func (c Config) WithDestination(destination string) Config {
	c.destination = NormalizeDestination(destination)
	return c
}

// Files is the number of files per bucket, or in total when bucketing is off.
func (c Config) Files() int { return c.files }

// Buckets is the number of bucket subdirectories; zero disables bucketing.
func (c Config) Buckets() int { return c.buckets }

// Destination is the output root, always ending in exactly one separator.
func (c Config) Destination() string { return c.destination }

// Delimiter is the field separator.
func (c Config) Delimiter() rune { return c.delimiter }

// Compress reports whether output is zipped.
func (c Config) Compress() bool { return c.compress }

// Seed seeds the random sources; zero picks a random seed.
func (c Config) Seed() int64 { return c.seed }

// Options returns the normalized values in raw form.
func (c Config) Options() Options {
	return Options{
		Files:       c.files,
		Buckets:     c.buckets,
		Destination: c.destination,
		Delimiter:   string(c.delimiter),
		Compress:    c.compress,
		Seed:        c.seed,
	}
}

// Validate reports settings that New accepts but a CSV writer cannot honor.
func (c Config) Validate() error {
	switch c.delimiter {
	case 0, '"', '\r', '\n', utf8.RuneError:
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, c.delimiter)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("{files: %d, buckets: %d, destination: %s, delimiter: %q, compress: %t, seed: %d}",
		c.files, c.buckets, c.destination, c.delimiter, c.compress, c.seed)
}

// LoadOptions reads a YAML file on top of the default options.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return opts, nil
}

// Load reads a YAML file and returns the normalized configuration.
func Load(path string) (Config, error) {
	opts, err := LoadOptions(path)
	if err != nil {
		return Config{}, err
	}
	return opts.Config(), nil
}
