package generator

import "fmt"

// DirectoryError is returned when a bucket or parent directory cannot be created or removed.
type DirectoryError struct {
	Path string
	Op   string
	Err  error
}

func (e DirectoryError) Error() string {
	return fmt.Sprintf("failed to %s directory %s: %v", e.Op, e.Path, e.Err)
}

func (e DirectoryError) Unwrap() error {
	return e.Err
}

// FileWriteError is returned when a generated file cannot be opened or written.
type FileWriteError struct {
	Path string
	Err  error
}

func (e FileWriteError) Error() string {
	return fmt.Sprintf("failed to write file %s: %v", e.Path, e.Err)
}

func (e FileWriteError) Unwrap() error {
	return e.Err
}
