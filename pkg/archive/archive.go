// Package archive writes zip archives of generated files and bucket directories.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"csvgen/pkg/log"
)

const Ext = ".zip"

// ErrArchiveMissing is wrapped when an archive was written but cannot be found afterwards.
var ErrArchiveMissing = errors.New("archive not found after writing")

// CompressionError is returned when an archive could not be produced.
type CompressionError struct {
	Path string
	Err  error
}

func (e CompressionError) Error() string {
	return fmt.Sprintf("failed to compress %s: %v", e.Path, e.Err)
}

func (e CompressionError) Unwrap() error {
	return e.Err
}

// FilePath returns the archive path for a file: its extension replaced by .zip.
func FilePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + Ext
}

// DirPath returns the archive path for a directory: .zip appended to its name.
func DirPath(path string) string {
	return strings.TrimRight(path, `/`+string(filepath.Separator)) + Ext
}

// File writes a single-entry archive next to path and returns the archive path.
// The original file is left untouched.
func File(path string) (string, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, CompressionError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", nil, CompressionError{Path: path, Err: fmt.Errorf("not a regular file")}
	}

	zipPath := FilePath(path)
	entry := filepath.Base(path)

	err = writeArchive(zipPath, func(zw *zip.Writer) error {
		return addFile(zw, path, entry, info)
	})
	if err != nil {
		return "", nil, CompressionError{Path: path, Err: err}
	}

	if err := verify(zipPath); err != nil {
		return "", nil, CompressionError{Path: path, Err: err}
	}

	log.Debug().Str("source", path).Str("archive", zipPath).Msg("File compressed")
	return zipPath, []string{entry}, nil
}

// Dir writes an archive of every regular file under dir and returns the archive path
// and its entry names. Entry names are relative to the parent of dir, so extracting the
// archive recreates the directory itself.
func Dir(dir string) (string, []string, error) {
	dir = strings.TrimRight(dir, `/`+string(filepath.Separator))

	info, err := os.Stat(dir)
	if err != nil {
		return "", nil, CompressionError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return "", nil, CompressionError{Path: dir, Err: fmt.Errorf("not a directory")}
	}

	zipPath := DirPath(dir)
	parent := filepath.Dir(dir)
	var entries []string

	err = writeArchive(zipPath, func(zw *zip.Writer) error {
		return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(parent, path)
			if err != nil {
				return err
			}
			fileInfo, err := d.Info()
			if err != nil {
				return err
			}

			entry := filepath.ToSlash(rel)
			if err := addFile(zw, path, entry, fileInfo); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return "", nil, CompressionError{Path: dir, Err: err}
	}

	if err := verify(zipPath); err != nil {
		return "", nil, CompressionError{Path: dir, Err: err}
	}

	log.Debug().Str("source", dir).Str("archive", zipPath).Int("entries", len(entries)).Msg("Directory compressed")
	return zipPath, entries, nil
}

// Entries lists the names stored in an archive.
func Entries(zipPath string) ([]string, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	names := make([]string, 0, len(reader.File))
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	return names, nil
}

// writeArchive creates zipPath and lets fill add entries; a failed archive is removed.
func writeArchive(zipPath string, fill func(zw *zip.Writer) error) (err error) {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(zipPath)
		}
	}()

	zw := zip.NewWriter(out)
	if err := fill(zw); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, path, entry string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = entry
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	_, err = io.Copy(writer, src)
	return err
}

func verify(zipPath string) error {
	info, err := os.Stat(zipPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArchiveMissing, zipPath)
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrArchiveMissing, zipPath)
	}
	return nil
}
