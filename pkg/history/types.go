package history

// ChangeType is the lossy classification of a file change.
type ChangeType string

// Change types. They serialise in upper case.
const (
	ChangeAdded    ChangeType = "ADDED"
	ChangeModified ChangeType = "MODIFIED"
	ChangeDeleted  ChangeType = "DELETED"
	ChangeRenamed  ChangeType = "RENAMED"
)

// CommitRecord is the normalised view of a commit.
type CommitRecord struct {
	SHA       string `json:"sha"       yaml:"sha"`
	Message   string `json:"message"   yaml:"message"`
	Author    string `json:"author"    yaml:"author"`
	Email     string `json:"email"     yaml:"email"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// FileChange is one file of a diff with its synthesized unified text.
type FileChange struct {
	Path       string     `json:"path"        yaml:"path"`
	ChangeType ChangeType `json:"change_type" yaml:"change_type"`
	Diff       *string    `json:"diff"        yaml:"diff"`
	Additions  int        `json:"additions"   yaml:"additions"`
	Deletions  int        `json:"deletions"   yaml:"deletions"`
}

// DiffText returns the synthesized diff or "" when absent.
func (c FileChange) DiffText() string {
	if c.Diff == nil {
		return ""
	}

	return *c.Diff
}

// BlameLine attributes one line of the live file.
type BlameLine struct {
	LineNumber int          `json:"line_number" yaml:"line_number"`
	Content    string       `json:"content"     yaml:"content"`
	Commit     CommitRecord `json:"commit"      yaml:"commit"`
}

// BlameResult is the answer to Blame.
type BlameResult struct {
	File  string      `json:"file"  yaml:"file"`
	Lines []BlameLine `json:"lines" yaml:"lines"`
}

// CommitDiff is the answer to CommitDiff.
type CommitDiff struct {
	Commit  CommitRecord `json:"commit"  yaml:"commit"`
	Changes []FileChange `json:"changes" yaml:"changes"`
}

// DiffStats aggregates a diff as reported by the repository.
type DiffStats struct {
	FilesChanged int `json:"files_changed" yaml:"files_changed"`
	Insertions   int `json:"insertions"    yaml:"insertions"`
	Deletions    int `json:"deletions"     yaml:"deletions"`
}

// DiffSummary is the answer to SummarizeDiff.
type DiffSummary struct {
	BaseCommit CommitRecord `json:"base_commit" yaml:"base_commit"`
	HeadCommit CommitRecord `json:"head_commit" yaml:"head_commit"`
	Summary    string       `json:"summary"     yaml:"summary"`
	Changes    []FileChange `json:"changes"     yaml:"changes"`
	Stats      DiffStats    `json:"stats"       yaml:"stats"`
}

// CommitsAffectingResult is the answer to CommitsAffecting.
type CommitsAffectingResult struct {
	File    string         `json:"file"    yaml:"file"`
	Commits []CommitRecord `json:"commits" yaml:"commits"`
}

// FileAtCommitResult is the answer to FileAtCommit.
type FileAtCommitResult struct {
	File     string       `json:"file"               yaml:"file"`
	Commit   CommitRecord `json:"commit"             yaml:"commit"`
	Content  string       `json:"content"            yaml:"content"`
	Language string       `json:"language,omitempty" yaml:"language,omitempty"`
	Size     int          `json:"size"               yaml:"size"`
}
