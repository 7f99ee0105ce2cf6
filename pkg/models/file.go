package models

// ArtifactKind tells whether an archive holds a single file or a whole bucket.
type ArtifactKind string

const (
	ArtifactFile   ArtifactKind = "file"
	ArtifactBucket ArtifactKind = "bucket"
)

// GeneratedFile represents one delimited-text file written by a run.
type GeneratedFile struct {
	Path       string `json:"path"`
	Bucket     string `json:"bucket"`
	Rows       int    `json:"rows"`
	Compressed bool   `json:"compressed"`
}

// Artifact represents a zip archive produced by a run.
type Artifact struct {
	Path    string       `json:"path"`
	Source  string       `json:"source"`
	Kind    ArtifactKind `json:"kind"`
	Entries []string     `json:"entries"`
}

// Result is what a run produced, filled in as the run progresses.
type Result struct {
	Buckets   []string        `json:"buckets"`
	Files     []GeneratedFile `json:"files"`
	Artifacts []Artifact      `json:"artifacts"`
}

// TotalRows sums the data rows across all generated files.
func (r *Result) TotalRows() int {
	total := 0
	for _, file := range r.Files {
		total += file.Rows
	}
	return total
}
