// Package tracker folds the backend's event stream into queryable evaluation
// state: per-file compile states, per-testcase generation states, per-solution
// verdicts and scores. One tracker follows one evaluation.
package tracker

import "github.com/programme-lv/taskeval/api"

// CompileState is the lifecycle of one source file's compilation.
type CompileState int

const (
	CompileWaiting CompileState = iota
	Compiling
	CompileDone
	CompileFailed
)

func (s CompileState) String() string {
	switch s {
	case CompileWaiting:
		return "waiting"
	case Compiling:
		return "compiling"
	case CompileDone:
		return "done"
	case CompileFailed:
		return "failed"
	}
	return "unknown"
}

// GenState is the test data pipeline state of one testcase: generation,
// validation, then the reference solution producing the expected output.
type GenState int

const (
	GenWaiting GenState = iota
	Generating
	Generated
	Validating
	Validated
	Solving
	GenDone
	GenFailed
)

func (s GenState) String() string {
	switch s {
	case GenWaiting:
		return "waiting"
	case Generating:
		return "generating"
	case Generated:
		return "generated"
	case Validating:
		return "validating"
	case Validated:
		return "validated"
	case Solving:
		return "solving"
	case GenDone:
		return "done"
	case GenFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the pipeline finished, either way.
func (s GenState) Terminal() bool { return s == GenDone || s == GenFailed }

// Verdict is the state of one (solution, testcase) pair. Everything from
// VerdictAccepted on is terminal.
type Verdict int

const (
	VerdictWaiting Verdict = iota
	VerdictSolving
	VerdictSolved
	VerdictChecking

	VerdictAccepted
	VerdictPartial
	VerdictWrongAnswer
	VerdictReturnCode
	VerdictSignal
	VerdictTimeLimit
	VerdictWallLimit
	VerdictMemoryLimit
	VerdictMissingFiles
	VerdictInternalError
	VerdictSkipped
)

func (v Verdict) String() string {
	switch v {
	case VerdictWaiting:
		return "waiting"
	case VerdictSolving:
		return "solving"
	case VerdictSolved:
		return "solved"
	case VerdictChecking:
		return "checking"
	case VerdictAccepted:
		return "accepted"
	case VerdictPartial:
		return "partial"
	case VerdictWrongAnswer:
		return "wrong answer"
	case VerdictReturnCode:
		return "nonzero return code"
	case VerdictSignal:
		return "killed by signal"
	case VerdictTimeLimit:
		return "time limit exceeded"
	case VerdictWallLimit:
		return "wall time limit exceeded"
	case VerdictMemoryLimit:
		return "memory limit exceeded"
	case VerdictMissingFiles:
		return "missing files"
	case VerdictInternalError:
		return "internal error"
	case VerdictSkipped:
		return "skipped"
	}
	return "unknown"
}

// Terminal reports whether the verdict is final for its testcase.
func (v Verdict) Terminal() bool { return v >= VerdictAccepted }

// failureVerdict maps an execution failure status to its verdict.
func failureVerdict(status api.ResultStatus) Verdict {
	switch status {
	case api.StatusReturnCode:
		return VerdictReturnCode
	case api.StatusSignal:
		return VerdictSignal
	case api.StatusTimeLimit:
		return VerdictTimeLimit
	case api.StatusWallLimit:
		return VerdictWallLimit
	case api.StatusMemoryLimit:
		return VerdictMemoryLimit
	case api.StatusMissingFiles:
		return VerdictMissingFiles
	default:
		return VerdictInternalError
	}
}

// SubtaskVerdict is the aggregate outcome of one subtask for one solution.
type SubtaskVerdict int

const (
	SubtaskWaiting SubtaskVerdict = iota
	SubtaskAccepted
	SubtaskPartial
	SubtaskRejected
)

func (v SubtaskVerdict) String() string {
	switch v {
	case SubtaskWaiting:
		return "waiting"
	case SubtaskAccepted:
		return "accepted"
	case SubtaskPartial:
		return "partial"
	case SubtaskRejected:
		return "rejected"
	}
	return "unknown"
}
