// Package taskfs compiles a conventional task directory (gen/, sol/, cor/,
// input/, output/) into an evaluation plan that can be submitted to the
// evaluation backend. Compilation is pure filesystem inspection: no network,
// no subprocesses, and a plan is either complete or an error.
package taskfs

import "sort"

// ScoreMode is the policy combining per-testcase scores into a subtask score.
type ScoreMode int

const (
	// Min scores the subtask by its worst testcase.
	Min ScoreMode = iota
	// Max scores the subtask by its best testcase.
	Max
	// Sum averages the testcase scores. The name is kept for compatibility
	// with existing task corpora where "sum" has always meant the average.
	Sum
)

func (m ScoreMode) String() string {
	switch m {
	case Min:
		return "min"
	case Max:
		return "max"
	case Sum:
		return "sum"
	}
	return "unknown"
}

// Role distinguishes candidate solutions from task infrastructure.
type Role int

const (
	// RoleNonSolution marks generators, validators, checkers and graders.
	RoleNonSolution Role = iota
	// RoleSolution marks candidate solutions under evaluation.
	RoleSolution
)

// SourceFile is a source or executable file referenced by the plan.
type SourceFile struct {
	// Name is the base file name, e.g. "solution.cpp".
	Name string
	// Path is relative to the task directory, e.g. "sol/solution.cpp".
	Path string
	Role Role

	Language     string
	NeedsCompile bool

	// WriteBinTo asks the backend to write the compiled binary back into
	// the task directory (bin/ cache). Empty means keep it internal.
	WriteBinTo string
}

// Dependency is an extra file an execution depends on.
type Dependency struct {
	Name string
	Path string
}

// Grader is a language-specific entry point compiled together with every
// solution of its language.
type Grader struct {
	Language string
	Files    []Dependency
}

// TestCase is one testcase of a subtask. Exactly one of the three variants
// is populated: a fixed input/output pair, a verbatim input copy, or a
// generator invocation. Which of fixed/generated is in use is plan-wide.
type TestCase struct {
	InputPath  string
	OutputPath string

	CopyFrom  string
	Args      []string
	ExtraDeps []string
}

// Subtask is a scored group of testcases. Testcases are keyed by their
// global testcase number: numbering is a single counter spanning the whole
// plan, so ids are contiguous within a subtask and sequential across plan
// order.
type Subtask struct {
	ScoreMode ScoreMode
	MaxScore  float64
	Testcases map[int]TestCase
}

// TestcaseIDs returns the subtask's testcase numbers in ascending order.
func (s Subtask) TestcaseIDs() []int {
	ids := make([]int, 0, len(s.Testcases))
	for id := range s.Testcases {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// TaskPlan is the compiled evaluation plan. It is built once by Compile and
// read-only afterwards; it is safe to share across goroutines.
type TaskPlan struct {
	// Dir is the absolute path of the task directory.
	Dir string

	Name  string
	Title string

	TimeLimSec float64
	MemLimKiB  int64

	// Empty string means stdin/stdout.
	InputFile  string
	OutputFile string

	Subtasks []Subtask

	Generator        *SourceFile
	Validator        *SourceFile
	OfficialSolution *SourceFile
	Checker          *SourceFile
	Graders          []Grader

	Solutions []SourceFile
}

// Generated reports whether test data comes from the generation DSL rather
// than pre-supplied files.
func (p *TaskPlan) Generated() bool { return p.Generator != nil }

// TestcaseCount returns the total number of testcases across all subtasks.
func (p *TaskPlan) TestcaseCount() int {
	n := 0
	for _, st := range p.Subtasks {
		n += len(st.Testcases)
	}
	return n
}

// MaxScore returns the sum of all subtask point values.
func (p *TaskPlan) MaxScore() float64 {
	total := 0.0
	for _, st := range p.Subtasks {
		total += st.MaxScore
	}
	return total
}

// Shape returns subtask index -> sorted global testcase ids.
func (p *TaskPlan) Shape() map[int][]int {
	shape := make(map[int][]int, len(p.Subtasks))
	for i, st := range p.Subtasks {
		shape[i] = st.TestcaseIDs()
	}
	return shape
}

// NonSolutions lists every infrastructure file of the plan: generator,
// validator, official solution, checker and grader files.
func (p *TaskPlan) NonSolutions() []SourceFile {
	var files []SourceFile
	for _, f := range []*SourceFile{p.Generator, p.Validator, p.OfficialSolution, p.Checker} {
		if f != nil {
			files = append(files, *f)
		}
	}
	for _, g := range p.Graders {
		for _, dep := range g.Files {
			if lang, ok := languageForPath(dep.Path); ok {
				files = append(files, SourceFile{
					Name:         dep.Name,
					Path:         dep.Path,
					Role:         RoleNonSolution,
					Language:     lang.ID,
					NeedsCompile: lang.NeedsCompile,
				})
			}
		}
	}
	return files
}
