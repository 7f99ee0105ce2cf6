// Package generator writes sets of fake CSV files, optionally grouped into buckets and zipped.
package generator

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"csvgen/pkg/archive"
	"csvgen/pkg/config"
	"csvgen/pkg/log"
	"csvgen/pkg/models"
	"csvgen/pkg/record"
)

const (
	dirPerm  = 0750
	filePerm = 0644
)

// Generator produces the file set described by its configuration.
type Generator struct {
	cfg      config.Config
	producer record.Producer
	rows     IntSource
	remove   func(string) error
}

// Option customizes a Generator.
type Option func(*Generator)

// WithProducer replaces the fake-record producer.
func WithProducer(producer record.Producer) Option {
	return func(g *Generator) {
		g.producer = producer
	}
}

// WithRowSource replaces the random source used for row counts.
func WithRowSource(src IntSource) Option {
	return func(g *Generator) {
		g.rows = src
	}
}

// New creates a Generator. Without options, records come from gofakeit and row counts
// from math/rand, both seeded with cfg.Seed() (a random seed when it is zero).
func New(cfg config.Config, opts ...Option) *Generator {
	seed := cfg.Seed()
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Generator{
		cfg:      cfg,
		producer: record.NewFaker(seed),
		rows:     rand.New(rand.NewSource(seed)), //nolint:gosec
		remove:   os.Remove,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the generator's configuration.
func (g *Generator) Config() config.Config {
	return g.cfg
}

// BucketName returns the directory name of the 1-based bucket index.
func BucketName(index int) string {
	return fmt.Sprintf("B%03d", index)
}

// FileName returns the file name of the 1-based file index.
func FileName(index int) string {
	return fmt.Sprintf("F%03d.csv", index)
}

// Buckets returns the ordered bucket directories. Without bucketing the destination itself
// is the only bucket; otherwise each numbered bucket is removed first so it starts empty.
func (g *Generator) Buckets() ([]string, error) {
	destination := g.cfg.Destination()
	if g.cfg.Buckets() == 0 {
		return []string{destination}, nil
	}

	buckets := make([]string, 0, g.cfg.Buckets())
	for index := 1; index <= g.cfg.Buckets(); index++ {
		bucketPath := filepath.Join(destination, BucketName(index))
		if err := os.RemoveAll(bucketPath); err != nil {
			log.Error().Err(err).Str("bucket", bucketPath).Msg("Failed to remove existing bucket")
			return nil, DirectoryError{Path: bucketPath, Op: "remove", Err: err}
		}
		log.Debug().Str("bucket", bucketPath).Msg("Bucket ready")
		buckets = append(buckets, bucketPath)
	}

	return buckets, nil
}

// WriteFile writes a header and a random number of fake rows to path, creating parent
// directories as needed, and returns the number of data rows.
func (g *Generator) WriteFile(path string) (int, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return 0, DirectoryError{Path: dir, Op: "create", Err: err}
		}
	}

	rows, err := g.writeRows(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to write file")
		return 0, FileWriteError{Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, FileWriteError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return 0, FileWriteError{Path: path, Err: fmt.Errorf("not a regular file")}
	}

	log.Debug().Str("path", path).Int("rows", rows).Msg("File written")
	return rows, nil
}

func (g *Generator) writeRows(path string) (rows int, err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	writer := csv.NewWriter(file)
	writer.Comma = g.cfg.Delimiter()

	if err := writer.Write(record.Columns); err != nil {
		return 0, err
	}

	count := RowCount(g.rows)
	for i := 0; i < count; i++ {
		if err := writer.Write(g.producer.Record().Fields()); err != nil {
			return i, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return count, err
	}
	return count, nil
}

// compressFile zips a single generated file and removes the original once the archive exists.
// When only the removal fails, the artifact is still returned alongside the error.
func (g *Generator) compressFile(path string) (*models.Artifact, error) {
	zipPath, entries, err := archive.File(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to compress file, keeping original")
		return nil, err
	}

	artifact := &models.Artifact{Path: zipPath, Source: path, Kind: models.ArtifactFile, Entries: entries}
	if err := g.remove(path); err != nil {
		log.Error().Err(err).Str("path", path).Str("archive", zipPath).Msg("Failed to remove compressed file")
		return artifact, FileWriteError{Path: path, Err: err}
	}

	return artifact, nil
}

// compressBucket zips a bucket directory next to it. The directory is kept.
func (g *Generator) compressBucket(bucket string) (models.Artifact, error) {
	zipPath, entries, err := archive.Dir(bucket)
	if err != nil {
		log.Error().Err(err).Str("bucket", bucket).Msg("Failed to compress bucket")
		return models.Artifact{}, err
	}

	return models.Artifact{Path: zipPath, Source: bucket, Kind: models.ArtifactBucket, Entries: entries}, nil
}

// Generate builds the buckets and writes every file in order, compressing per file or per
// bucket when configured. It stops at the first failure; the returned Result always holds
// what was produced up to that point.
func (g *Generator) Generate(ctx context.Context) (*models.Result, error) {
	result := &models.Result{}

	log.Info().Stringer("config", g.cfg).Msg("Generating files")

	buckets, err := g.Buckets()
	if err != nil {
		return result, err
	}
	result.Buckets = buckets

	perFile := g.cfg.Compress() && g.cfg.Buckets() == 0
	perBucket := g.cfg.Compress() && g.cfg.Buckets() > 0

	for _, bucket := range buckets {
		for index := 1; index <= g.cfg.Files(); index++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			path := filepath.Join(bucket, FileName(index))
			rows, err := g.WriteFile(path)
			if err != nil {
				return result, err
			}

			generated := models.GeneratedFile{Path: path, Bucket: bucket, Rows: rows}
			if perFile {
				artifact, err := g.compressFile(path)
				if artifact != nil {
					generated.Compressed = true
					result.Artifacts = append(result.Artifacts, *artifact)
				}
				if err != nil {
					result.Files = append(result.Files, generated)
					return result, err
				}
			}
			result.Files = append(result.Files, generated)
		}

		if perBucket {
			artifact, err := g.compressBucket(bucket)
			if err != nil {
				return result, err
			}
			result.Artifacts = append(result.Artifacts, artifact)
		}
	}

	log.Info().
		Int("buckets", len(result.Buckets)).
		Int("files", len(result.Files)).
		Int("archives", len(result.Artifacts)).
		Int("rows", result.TotalRows()).
		Msg("Generation complete")

	return result, nil
}
