package main

import "time"

// Category is the problem type assigned by the classifier.
type Category string

const (
	CategoryEquation     Category = "equation"
	CategoryDerivative   Category = "derivative"
	CategoryIntegral     Category = "integral"
	CategoryLimit        Category = "limit"
	CategoryMatrix       Category = "matrix"
	CategorySimplify     Category = "simplify"
	CategoryGraph        Category = "graph"
	CategoryOptimization Category = "optimization"
	CategoryGeneral      Category = "general"
)

// WorkItem is a newly discovered submission in the content repository.
// It is built from commit history during discovery and discarded after
// the item has been processed.
type WorkItem struct {
	Path        string // repo path, e.g. "problems/quadratic.txt"
	Name        string // base name of the file
	CommitSHA   string // commit that added or modified the file
	CommittedAt time.Time
	Size        int // change size in lines (additions+deletions); the commit API exposes no blob byte size
	DownloadURL string
}

// ValidationVerdict is the validator's decision for one piece of content.
type ValidationVerdict struct {
	Valid  bool
	Reason string
	Score  float64 // relevance score in [0,1]
}

// Classification is the classifier's output: a category plus the
// candidate expressions, deduplicated in first-seen order.
type Classification struct {
	Category    Category
	Expressions []string
}

// SolutionResult is what the solve capability returns. Solver failures
// are encoded here (Success=false plus ErrorMessage), never raised.
type SolutionResult struct {
	Success      bool
	Category     Category
	OriginalText string
	Expressions  []string
	Solution     string
	Steps        []string
	Numeric      []float64 // numeric payload, when the solution has one
	ErrorMessage string
	Elapsed      time.Duration
	CompletedAt  time.Time
	FileName     string
}

// ItemResult is the per-item outcome within one run.
type ItemResult struct {
	Item    WorkItem
	Success bool
	Err     string // failure reason, empty on success

	// Solution is retained when solving succeeded, including the
	// "solved but not delivered" case where publish or notify failed,
	// so a retry can skip re-solving.
	Solution     *SolutionResult
	SolutionPath string // repo path of the published solution file
}

// RunSummary describes one discover-and-process cycle.
type RunSummary struct {
	Success   bool
	NewItems  int
	Processed int // items fully processed and delivered
	Errors    int // items that failed at any pipeline stage
	Elapsed   time.Duration
	Message   string
	Results   []ItemResult
}
