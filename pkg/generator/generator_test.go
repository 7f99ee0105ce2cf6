package generator

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"csvgen/pkg/archive"
	"csvgen/pkg/config"
	"csvgen/pkg/models"
	"csvgen/pkg/record"
)

// sequenceSource replays fixed draws, cycling when exhausted.
type sequenceSource struct {
	draws []int
	calls []int
	next  int
}

func (s *sequenceSource) Intn(n int) int {
	s.calls = append(s.calls, n)
	value := s.draws[s.next%len(s.draws)]
	s.next++
	return value
}

var stubRecord = record.Static{
	Name:    "Grace Hopper",
	Phone:   "(555) 010-0199",
	Address: "1 Compiler Rd",
	City:    "Arlington",
	State:   "VA",
	Zip:     "22201",
	Notes:   "said, \"it's easier to ask forgiveness\"",
}

// GeneratorTestSuite tests bucket layout, file content and compression
type GeneratorTestSuite struct {
	suite.Suite
	tempDir string
	rows    *sequenceSource
}

// SetupTest runs before each test
func (s *GeneratorTestSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "generator-test-*")
	s.Require().NoError(err)
	s.rows = &sequenceSource{draws: []int{3, 0, 10}}
}

// TearDownTest runs after each test
func (s *GeneratorTestSuite) TearDownTest() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func (s *GeneratorTestSuite) out() string {
	return filepath.Join(s.tempDir, "out")
}

func (s *GeneratorTestSuite) newGenerator(files, buckets int, delimiter string, compress bool) *Generator {
	cfg := config.New(files, buckets, s.out(), delimiter, compress)
	return New(cfg, WithProducer(stubRecord), WithRowSource(s.rows))
}

// globFiles returns the matches of pattern relative to the output directory, sorted.
func (s *GeneratorTestSuite) globFiles(pattern string) []string {
	matches, err := filepath.Glob(filepath.Join(s.out(), pattern))
	s.Require().NoError(err)
	rel := make([]string, 0, len(matches))
	for _, match := range matches {
		r, err := filepath.Rel(s.out(), match)
		s.Require().NoError(err)
		rel = append(rel, filepath.ToSlash(r))
	}
	sort.Strings(rel)
	return rel
}

func (s *GeneratorTestSuite) readLines(path string) []string {
	file, err := os.Open(path)
	s.Require().NoError(err)
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	s.Require().NoError(scanner.Err())
	return lines
}

// TestNames tests bucket and file naming
func (s *GeneratorTestSuite) TestNames() {
	s.Equal("B001", BucketName(1))
	s.Equal("B042", BucketName(42))
	s.Equal("F001.csv", FileName(1))
	s.Equal("F123.csv", FileName(123))
}

// TestRowCount tests the two-step draw against its bounds
func (s *GeneratorTestSuite) TestRowCount() {
	testCases := []struct {
		name     string
		draw     int
		expected int
	}{
		{"lowest_bound", 0, 0},
		{"one_row", 1, 1},
		{"middle", 500, 500},
		{"highest_bound", RowStop - RowStart - 1, MaxRows},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			src := &sequenceSource{draws: []int{tc.draw}}
			s.Equal(tc.expected, RowCount(src))
			s.Equal([]int{RowStop - RowStart}, src.calls, "bound drawn from [5, 1001)")
		})
	}

	s.Equal(995, MaxRows)
}

// TestBucketsWithoutBucketing tests that the destination is the only bucket
func (s *GeneratorTestSuite) TestBucketsWithoutBucketing() {
	buckets, err := s.newGenerator(3, 0, ",", false).Buckets()
	s.Require().NoError(err)
	s.Equal([]string{s.out() + string(filepath.Separator)}, buckets)
}

// TestBucketsRemovesExisting tests that stale bucket content is deleted
func (s *GeneratorTestSuite) TestBucketsRemovesExisting() {
	stale := filepath.Join(s.out(), "B002", "old.csv")
	s.Require().NoError(os.MkdirAll(filepath.Dir(stale), 0750))
	s.Require().NoError(os.WriteFile(stale, []byte("stale"), 0600))

	buckets, err := s.newGenerator(3, 2, ",", false).Buckets()
	s.Require().NoError(err)

	s.Equal([]string{filepath.Join(s.out(), "B001"), filepath.Join(s.out(), "B002")}, buckets)
	s.NoFileExists(stale)
	s.NoDirExists(filepath.Join(s.out(), "B002"))
}

// TestWriteFileContent tests header, delimiter and row count
func (s *GeneratorTestSuite) TestWriteFileContent() {
	s.rows.draws = []int{4}
	g := s.newGenerator(1, 0, "|", false)
	path := filepath.Join(s.out(), "nested", "F001.csv")

	rows, err := g.WriteFile(path)
	s.Require().NoError(err)
	s.Equal(4, rows)

	lines := s.readLines(path)
	s.Require().Len(lines, 5)
	s.Equal("name|phone|address|city|state|zip|notes", lines[0])
	s.Equal(`Grace Hopper|(555) 010-0199|1 Compiler Rd|Arlington|VA|22201|"said, ""it's easier to ask forgiveness"""`, lines[1])
}

// TestWriteFileNoRows tests that a zero draw leaves only the header
func (s *GeneratorTestSuite) TestWriteFileNoRows() {
	s.rows.draws = []int{0}
	path := filepath.Join(s.out(), "F001.csv")

	rows, err := s.newGenerator(1, 0, ",", false).WriteFile(path)
	s.Require().NoError(err)
	s.Equal(0, rows)
	s.Equal([]string{"name,phone,address,city,state,zip,notes"}, s.readLines(path))
}

// TestWriteFileUsesNewlines tests that rows end in a bare newline
func (s *GeneratorTestSuite) TestWriteFileUsesNewlines() {
	s.rows.draws = []int{2}
	path := filepath.Join(s.out(), "F001.csv")

	_, err := s.newGenerator(1, 0, ",", false).WriteFile(path)
	s.Require().NoError(err)

	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.NotContains(string(data), "\r")
	s.NotContains(string(data), "\n\n")
	s.Equal(3, strings.Count(string(data), "\n"))
}

// TestWriteFileParentIsFile tests the directory failure path
func (s *GeneratorTestSuite) TestWriteFileParentIsFile() {
	blocker := filepath.Join(s.tempDir, "blocker")
	s.Require().NoError(os.WriteFile(blocker, []byte("x"), 0600))

	_, err := s.newGenerator(1, 0, ",", false).WriteFile(filepath.Join(blocker, "F001.csv"))
	s.Error(err)

	var dirErr DirectoryError
	s.Require().True(errors.As(err, &dirErr))
	s.Equal("create", dirErr.Op)
	s.Equal(blocker, dirErr.Path)
}

// TestWriteFileTargetIsDirectory tests the write failure path
func (s *GeneratorTestSuite) TestWriteFileTargetIsDirectory() {
	target := filepath.Join(s.out(), "F001.csv")
	s.Require().NoError(os.MkdirAll(target, 0750))

	_, err := s.newGenerator(1, 0, ",", false).WriteFile(target)
	s.Error(err)
	s.IsType(FileWriteError{}, err)
}

// TestGenerateFlat tests three files directly under the destination
func (s *GeneratorTestSuite) TestGenerateFlat() {
	result, err := s.newGenerator(3, 0, ",", false).Generate(context.Background())
	s.Require().NoError(err)

	s.Equal([]string{"F001.csv", "F002.csv", "F003.csv"}, s.globFiles("*"))
	s.Empty(s.globFiles("B*"), "no bucket directory without bucketing")

	s.Require().Len(result.Files, 3)
	s.Equal([]int{3, 0, 10}, []int{result.Files[0].Rows, result.Files[1].Rows, result.Files[2].Rows})
	s.Equal(13, result.TotalRows())
	s.Empty(result.Artifacts)

	for _, file := range result.Files {
		lines := s.readLines(file.Path)
		s.Equal("name,phone,address,city,state,zip,notes", lines[0])
		s.Len(lines, file.Rows+1)
		s.False(file.Compressed)
	}
}

// TestGenerateFileCount tests files = fileCount x max(1, bucketCount)
func (s *GeneratorTestSuite) TestGenerateFileCount() {
	testCases := []struct {
		name    string
		files   int
		buckets int
	}{
		{"single", 1, 0},
		{"flat", 4, 0},
		{"one_bucket", 2, 1},
		{"full_buckets", 3, 3},
		{"clamped_buckets", 2, 7},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Require().NoError(os.RemoveAll(s.out()))
			g := s.newGenerator(tc.files, tc.buckets, ",", false)

			result, err := g.Generate(context.Background())
			s.Require().NoError(err)

			expected := g.Config().Files() * max(1, g.Config().Buckets())
			s.Len(result.Files, expected)
			s.Len(append(s.globFiles("*.csv"), s.globFiles("B*/*.csv")...), expected)
		})
	}
}

// TestGenerateBucketsTwice tests that regeneration leaves no duplicates or leftovers
func (s *GeneratorTestSuite) TestGenerateBucketsTwice() {
	_, err := s.newGenerator(3, 2, ",", false).Generate(context.Background())
	s.Require().NoError(err)

	leftover := filepath.Join(s.out(), "B001", "F999.csv")
	s.Require().NoError(os.WriteFile(leftover, []byte("x"), 0600))

	_, err = s.newGenerator(3, 2, ",", false).Generate(context.Background())
	s.Require().NoError(err)

	s.Equal([]string{"B001", "B002"}, s.globFiles("B*"))
	s.Equal([]string{
		"B001/F001.csv", "B001/F002.csv", "B001/F003.csv",
		"B002/F001.csv", "B002/F002.csv", "B002/F003.csv",
	}, s.globFiles("B*/*"))
}

// TestGenerateCompressFlat tests per-file compression
func (s *GeneratorTestSuite) TestGenerateCompressFlat() {
	result, err := s.newGenerator(2, 0, ",", true).Generate(context.Background())
	s.Require().NoError(err)

	s.Empty(s.globFiles("*.csv"))
	s.Equal([]string{"F001.zip", "F002.zip"}, s.globFiles("*.zip"))

	s.Require().Len(result.Artifacts, 2)
	for i, artifact := range result.Artifacts {
		s.Equal(models.ArtifactFile, artifact.Kind)
		s.Equal([]string{FileName(i + 1)}, artifact.Entries)
		s.True(result.Files[i].Compressed)
	}
}

// TestGenerateCompressBuckets tests per-bucket compression
func (s *GeneratorTestSuite) TestGenerateCompressBuckets() {
	result, err := s.newGenerator(2, 2, ",", true).Generate(context.Background())
	s.Require().NoError(err)

	s.Equal([]string{"B001.zip", "B002.zip"}, s.globFiles("*.zip"))
	s.Equal([]string{"B001/F001.csv", "B001/F002.csv", "B002/F001.csv", "B002/F002.csv"}, s.globFiles("B*/*.csv"))

	for _, bucket := range []string{"B001", "B002"} {
		entries, err := archive.Entries(filepath.Join(s.out(), bucket+".zip"))
		s.Require().NoError(err)
		s.Equal([]string{bucket + "/F001.csv", bucket + "/F002.csv"}, entries)
	}

	s.Require().Len(result.Artifacts, 2)
	s.Equal(models.ArtifactBucket, result.Artifacts[0].Kind)
	for _, file := range result.Files {
		s.False(file.Compressed)
	}
}

// TestGenerateStopsOnFailure tests that a failed write is reported with partial results
func (s *GeneratorTestSuite) TestGenerateStopsOnFailure() {
	s.Require().NoError(os.MkdirAll(filepath.Join(s.out(), "F002.csv"), 0750))

	result, err := s.newGenerator(3, 0, ",", false).Generate(context.Background())
	s.Error(err)
	s.IsType(FileWriteError{}, err)

	s.Require().Len(result.Files, 1)
	s.Equal(filepath.Join(s.out(), "F001.csv"), result.Files[0].Path)
	s.NoFileExists(filepath.Join(s.out(), "F003.csv"))
}

// TestGenerateCompressionFailureKeepsOriginal tests the per-file fallback
func (s *GeneratorTestSuite) TestGenerateCompressionFailureKeepsOriginal() {
	s.Require().NoError(os.MkdirAll(filepath.Join(s.out(), "F001.zip"), 0750))

	result, err := s.newGenerator(2, 0, ",", true).Generate(context.Background())
	s.Error(err)

	var compressionErr archive.CompressionError
	s.True(errors.As(err, &compressionErr))
	s.FileExists(filepath.Join(s.out(), "F001.csv"))
	s.Require().Len(result.Files, 1)
	s.False(result.Files[0].Compressed)
	s.Empty(result.Artifacts)
}

// TestGenerateRemoveFailureReportsArchive tests that an archive is recorded even when the csv cannot be removed
func (s *GeneratorTestSuite) TestGenerateRemoveFailureReportsArchive() {
	gen := s.newGenerator(2, 0, ",", true)
	removeErr := errors.New("permission denied")
	gen.remove = func(string) error { return removeErr }

	result, err := gen.Generate(context.Background())
	s.Error(err)
	s.ErrorIs(err, removeErr)
	s.IsType(FileWriteError{}, err)

	s.FileExists(filepath.Join(s.out(), "F001.csv"))
	s.FileExists(filepath.Join(s.out(), "F001.zip"))
	s.NoFileExists(filepath.Join(s.out(), "F002.csv"))

	s.Require().Len(result.Files, 1)
	s.True(result.Files[0].Compressed)
	s.Require().Len(result.Artifacts, 1)
	s.Equal(filepath.Join(s.out(), "F001.zip"), result.Artifacts[0].Path)
	s.Equal([]string{"F001.csv"}, result.Artifacts[0].Entries)
}

// TestGenerateCanceled tests that a canceled context halts before writing
func (s *GeneratorTestSuite) TestGenerateCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.newGenerator(2, 0, ",", false).Generate(ctx)
	s.ErrorIs(err, context.Canceled)
	s.Empty(result.Files)
}

// TestNewDefaultsAreSeeded tests that the default sources honor the seed
func (s *GeneratorTestSuite) TestNewDefaultsAreSeeded() {
	opts := config.Options{Files: 2, Destination: s.out(), Delimiter: ",", Seed: 1234}

	first, err := New(opts.Config()).Generate(context.Background())
	s.Require().NoError(err)
	firstData, err := os.ReadFile(first.Files[1].Path)
	s.Require().NoError(err)

	second, err := New(opts.Config()).Generate(context.Background())
	s.Require().NoError(err)
	secondData, err := os.ReadFile(second.Files[1].Path)
	s.Require().NoError(err)

	s.Equal(first.Files[0].Rows, second.Files[0].Rows)
	s.Equal(string(firstData), string(secondData))
}

// TestErrors tests typed error formatting and unwrapping
func (s *GeneratorTestSuite) TestErrors() {
	inner := os.ErrPermission

	dirErr := DirectoryError{Path: "out/B001", Op: "remove", Err: inner}
	s.Equal("failed to remove directory out/B001: permission denied", dirErr.Error())
	s.ErrorIs(dirErr, os.ErrPermission)

	writeErr := FileWriteError{Path: "out/F001.csv", Err: inner}
	s.Equal("failed to write file out/F001.csv: permission denied", writeErr.Error())
	s.ErrorIs(writeErr, os.ErrPermission)
}

// TestGeneratorSuite runs the generator test suite
func TestGeneratorSuite(t *testing.T) {
	suite.Run(t, new(GeneratorTestSuite))
}
