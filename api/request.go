package api

// Cache mode constants accepted by the backend.
const (
	CacheAll        = "all"
	CacheGeneration = "generation"
	CacheNothing    = "nothing"
)

// Score mode constants for subtask aggregation.
const (
	ScoreModeMin = "min"
	ScoreModeMax = "max"
	ScoreModeSum = "sum"
)

// EvaluateReq is the plan submission request sent to the backend.
type EvaluateReq struct {
	Task      Task         `json:"task"`
	Solutions []SourceFile `json:"solutions"`

	CacheMode     string   `json:"cache_mode"`
	NumCores      int      `json:"num_cores,omitempty"`
	OnlySolutions []string `json:"only_solutions,omitempty"`
	DryRun        bool     `json:"dry_run,omitempty"`

	// Where the backend should materialize generated test data and the
	// compiled checker, keyed by global testcase number.
	WriteInputsTo  map[int]string `json:"write_inputs_to,omitempty"`
	WriteOutputsTo map[int]string `json:"write_outputs_to,omitempty"`
	WriteCheckerTo string         `json:"write_checker_to,omitempty"`
}

// SubmitRes is the backend's reply to a plan submission.
type SubmitRes struct {
	EvalUuid string `json:"eval_uuid"`
}

// StopReq asks the backend to stop an evaluation. Best effort: work that
// has already been issued may still finish.
type StopReq struct {
	EvalUuid string `json:"eval_uuid"`
}

// Task is the wire form of a compiled evaluation plan.
type Task struct {
	Name  string `json:"name"`
	Title string `json:"title"`

	TimeLimSec float64 `json:"time_lim_sec"`
	MemLimKiB  int64   `json:"mem_lim_kib"`

	// Empty string means stdin/stdout.
	InputFile  string `json:"input_file"`
	OutputFile string `json:"output_file"`

	Subtasks []Subtask `json:"subtasks"`

	Generator        *SourceFile `json:"generator,omitempty"`
	Validator        *SourceFile `json:"validator,omitempty"`
	OfficialSolution *SourceFile `json:"official_solution,omitempty"`
	Checker          *SourceFile `json:"checker,omitempty"`
	Graders          []Grader    `json:"graders,omitempty"`
}

// Subtask groups testcases under one aggregation policy. Testcases are
// keyed by their global testcase number.
type Subtask struct {
	ScoreMode string           `json:"score_mode"`
	MaxScore  float64          `json:"max_score"`
	Testcases map[int]TestCase `json:"testcases"`
}

// TestCase is either a fixed input/output pair, a verbatim copy of an
// existing input file, or a generation recipe. Which variant is in use is
// uniform across the whole plan (copy counts as the recipe path).
type TestCase struct {
	InputPath  string `json:"input_path,omitempty"`
	OutputPath string `json:"output_path,omitempty"`

	CopyFrom  string   `json:"copy_from,omitempty"`
	Args      []string `json:"args,omitempty"`
	ExtraDeps []string `json:"extra_deps,omitempty"`
}

// SourceFile references an executable or source file the backend needs.
type SourceFile struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Language     string `json:"language"`
	NeedsCompile bool   `json:"needs_compile"`
	// Optional path where the backend should write the compiled binary.
	WriteBinTo string `json:"write_bin_to,omitempty"`
}

// Grader is a language-specific entry point linked with every solution of
// that language.
type Grader struct {
	Language string       `json:"language"`
	Files    []Dependency `json:"files"`
}

// Dependency is an extra file an execution depends on.
type Dependency struct {
	Name string `json:"name"`
	Path string `json:"path"`
}
