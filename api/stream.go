package api

import (
	"encoding/json"
	"fmt"
)

// MsgType tags every message on the event stream.
type MsgType string

const (
	CompileStartMsg  MsgType = "compile_start"
	CompileFinishMsg MsgType = "compile_finish"

	GenerateStartMsg  MsgType = "generate_start"
	GenerateFinishMsg MsgType = "generate_finish"
	GenerateSkipMsg   MsgType = "generate_skip"

	ValidateStartMsg  MsgType = "validate_start"
	ValidateFinishMsg MsgType = "validate_finish"
	ValidateSkipMsg   MsgType = "validate_skip"

	SolveStartMsg  MsgType = "solve_start"
	SolveFinishMsg MsgType = "solve_finish"
	SolveSkipMsg   MsgType = "solve_skip"

	EvaluateStartMsg  MsgType = "evaluate_start"
	EvaluateFinishMsg MsgType = "evaluate_finish"
	EvaluateSkipMsg   MsgType = "evaluate_skip"

	CheckStartMsg  MsgType = "check_start"
	CheckFinishMsg MsgType = "check_finish"
	CheckSkipMsg   MsgType = "check_skip"

	FatalErrorMsg MsgType = "fatal_error"
	JobFinishMsg  MsgType = "job_finish"
)

// Header is the common part of every streamed message.
type Header struct {
	EvalUuid string  `json:"eval_uuid"`
	MsgType  MsgType `json:"msg_type"`
}

// EventType implements Event for every message embedding Header.
func (h Header) EventType() MsgType { return h.MsgType }

// Event is one tagged lifecycle message from the backend.
type Event interface {
	EventType() MsgType
}

// TestcaseRef locates a testcase inside the plan.
type TestcaseRef struct {
	Subtask  int `json:"subtask"`
	Testcase int `json:"testcase"`
}

// SolutionRef locates a (solution, testcase) pair.
type SolutionRef struct {
	TestcaseRef
	Solution string `json:"solution"`
}

// CompileStarted reports that compilation of a source file began.
type CompileStarted struct {
	Header
	Filename string `json:"filename"`
}

// CompileFinished reports the terminal result of a compilation.
type CompileFinished struct {
	Header
	Filename string `json:"filename"`
	Result   Result `json:"result"`
}

type GenerateStarted struct {
	Header
	TestcaseRef
}

type GenerateFinished struct {
	Header
	TestcaseRef
	Result Result `json:"result"`
}

type GenerateSkipped struct {
	Header
	TestcaseRef
}

type ValidateStarted struct {
	Header
	TestcaseRef
}

type ValidateFinished struct {
	Header
	TestcaseRef
	Result Result `json:"result"`
}

type ValidateSkipped struct {
	Header
	TestcaseRef
}

// SolveStarted reports that the reference solution started on a testcase.
type SolveStarted struct {
	Header
	TestcaseRef
}

type SolveFinished struct {
	Header
	TestcaseRef
	Result Result `json:"result"`
}

type SolveSkipped struct {
	Header
	TestcaseRef
}

type EvaluateStarted struct {
	Header
	SolutionRef
}

type EvaluateFinished struct {
	Header
	SolutionRef
	Result Result `json:"result"`
}

type EvaluateSkipped struct {
	Header
	SolutionRef
}

type CheckStarted struct {
	Header
	SolutionRef
}

// CheckFinished carries the checker outcome for one (solution, testcase).
// Score is set when a custom checker produced a fractional score; with the
// default checker the score is implied by the result status.
type CheckFinished struct {
	Header
	SolutionRef
	Result Result   `json:"result"`
	Score  *float64 `json:"score,omitempty"`
}

type CheckSkipped struct {
	Header
	SolutionRef
}

// FatalError reports a run-level failure inside the backend.
type FatalError struct {
	Header
	Message string `json:"message"`
}

// JobFinished is the last message of a stream.
type JobFinished struct {
	Header
	ErrorMessage *string `json:"error_message,omitempty"`
}

// NewHeader builds the common message header.
func NewHeader(evalUuid string, msgType MsgType) Header {
	return Header{EvalUuid: evalUuid, MsgType: msgType}
}

// ParseEvent decodes a raw stream message into its concrete event type.
func ParseEvent(data []byte) (Event, error) {
	var head Header
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse event header: %w", err)
	}

	var ev Event
	switch head.MsgType {
	case CompileStartMsg:
		ev = &CompileStarted{}
	case CompileFinishMsg:
		ev = &CompileFinished{}
	case GenerateStartMsg:
		ev = &GenerateStarted{}
	case GenerateFinishMsg:
		ev = &GenerateFinished{}
	case GenerateSkipMsg:
		ev = &GenerateSkipped{}
	case ValidateStartMsg:
		ev = &ValidateStarted{}
	case ValidateFinishMsg:
		ev = &ValidateFinished{}
	case ValidateSkipMsg:
		ev = &ValidateSkipped{}
	case SolveStartMsg:
		ev = &SolveStarted{}
	case SolveFinishMsg:
		ev = &SolveFinished{}
	case SolveSkipMsg:
		ev = &SolveSkipped{}
	case EvaluateStartMsg:
		ev = &EvaluateStarted{}
	case EvaluateFinishMsg:
		ev = &EvaluateFinished{}
	case EvaluateSkipMsg:
		ev = &EvaluateSkipped{}
	case CheckStartMsg:
		ev = &CheckStarted{}
	case CheckFinishMsg:
		ev = &CheckFinished{}
	case CheckSkipMsg:
		ev = &CheckSkipped{}
	case FatalErrorMsg:
		ev = &FatalError{}
	case JobFinishMsg:
		ev = &JobFinished{}
	default:
		return nil, fmt.Errorf("unknown event type: %q", head.MsgType)
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("failed to parse %s event: %w", head.MsgType, err)
	}
	return ev, nil
}
