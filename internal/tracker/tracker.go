package tracker

import (
	"fmt"
	"sync"

	"github.com/programme-lv/taskeval/api"
	"github.com/programme-lv/taskeval/internal/taskfs"
	"github.com/puzpuzpuz/xsync/v3"
)

// Listener observes tracker activity as it happens. Callbacks run while the
// tracker lock is held and must not call back into the tracker.
type Listener interface {
	OnEvent(ev api.Event)
	OnWarning(msg string)
	OnError(msg string)
	OnFatal(msg string)
}

// NopListener ignores everything.
type NopListener struct{}

func (NopListener) OnEvent(api.Event) {}
func (NopListener) OnWarning(string)  {}
func (NopListener) OnError(string)    {}
func (NopListener) OnFatal(string)    {}

// TestcaseResult is the tracked state of one (solution, testcase) pair.
type TestcaseResult struct {
	Verdict Verdict
	// Score is in [0, 1] once the verdict is terminal.
	Score  float64
	Result *api.Result

	done bool
}

type solutionState struct {
	// subtask index -> testcase id -> result
	testcases map[int]map[int]*TestcaseResult
	// remaining open testcases per subtask; a subtask's score is computed
	// exactly once, when its counter reaches zero, and never changes after.
	remaining       []int
	subtaskScores   []float64
	subtaskVerdicts []SubtaskVerdict
	score           float64
}

// Tracker folds lifecycle events into evaluation state. All mutation goes
// through Apply under one lock; Snapshot returns deep copies.
type Tracker struct {
	mu   sync.Mutex
	plan *taskfs.TaskPlan
	// subtask index -> sorted testcase ids
	shape map[int][]int

	// compile states keyed by file name; read lock-free by the dashboard
	compile *xsync.MapOf[string, CompileState]
	roles   map[string]taskfs.Role

	gen       map[int]map[int]GenState
	solutions map[string]*solutionState

	warnings []string
	errs     []string

	fatal    string
	aborted  bool
	finished bool

	listener Listener
}

// New builds a tracker over a compiled plan. Solutions and non-solution
// files are registered separately so only submitted files are tracked.
func New(plan *taskfs.TaskPlan) *Tracker {
	t := &Tracker{
		plan:      plan,
		shape:     plan.Shape(),
		compile:   xsync.NewMapOf[string, CompileState](),
		roles:     map[string]taskfs.Role{},
		gen:       map[int]map[int]GenState{},
		solutions: map[string]*solutionState{},
		listener:  NopListener{},
	}
	if plan.Generated() {
		for st, ids := range t.shape {
			t.gen[st] = make(map[int]GenState, len(ids))
			for _, id := range ids {
				t.gen[st][id] = GenWaiting
			}
		}
	}
	return t
}

// SetListener installs the observer. Call before events start flowing.
func (t *Tracker) SetListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l == nil {
		l = NopListener{}
	}
	t.listener = l
}

// RegisterNonSolution tracks compilation of an infrastructure file.
// Files that need no compilation start out done.
func (t *Tracker) RegisterNonSolution(f taskfs.SourceFile) {
	t.register(f.Name, taskfs.RoleNonSolution, f.NeedsCompile)
}

// RegisterSolution tracks compilation and verdicts of a candidate solution.
func (t *Tracker) RegisterSolution(f taskfs.SourceFile) {
	t.register(f.Name, taskfs.RoleSolution, f.NeedsCompile)

	t.mu.Lock()
	defer t.mu.Unlock()
	sol := &solutionState{
		testcases:       map[int]map[int]*TestcaseResult{},
		remaining:       make([]int, len(t.plan.Subtasks)),
		subtaskScores:   make([]float64, len(t.plan.Subtasks)),
		subtaskVerdicts: make([]SubtaskVerdict, len(t.plan.Subtasks)),
	}
	for st, ids := range t.shape {
		sol.testcases[st] = make(map[int]*TestcaseResult, len(ids))
		for _, id := range ids {
			sol.testcases[st][id] = &TestcaseResult{}
		}
		sol.remaining[st] = len(ids)
	}
	t.solutions[f.Name] = sol
}

func (t *Tracker) register(name string, role taskfs.Role, needsCompile bool) {
	t.mu.Lock()
	t.roles[name] = role
	t.mu.Unlock()

	state := CompileDone
	if needsCompile {
		state = CompileWaiting
	}
	t.compile.Store(name, state)
}

// Apply folds one event into the state. A non-nil error means the event
// referenced an unknown file, testcase or solution; such streams cannot be
// trusted and the caller should abort the run.
func (t *Tracker) Apply(ev api.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	switch e := ev.(type) {
	case *api.CompileStarted:
		err = t.setCompile(e.Filename, Compiling)
	case *api.CompileFinished:
		err = t.compileFinished(e)

	case *api.GenerateStarted:
		err = t.setGen(e.TestcaseRef, Generating)
	case *api.GenerateFinished:
		err = t.genFinished(e.TestcaseRef, e.Result, Generated, "generate")
	case *api.GenerateSkipped:
		err = t.setGen(e.TestcaseRef, GenFailed)
	case *api.ValidateStarted:
		err = t.setGen(e.TestcaseRef, Validating)
	case *api.ValidateFinished:
		err = t.genFinished(e.TestcaseRef, e.Result, Validated, "validate")
	case *api.ValidateSkipped:
		err = t.setGen(e.TestcaseRef, GenFailed)
	case *api.SolveStarted:
		err = t.setGen(e.TestcaseRef, Solving)
	case *api.SolveFinished:
		err = t.genFinished(e.TestcaseRef, e.Result, GenDone, "solve")
	case *api.SolveSkipped:
		err = t.setGen(e.TestcaseRef, GenFailed)

	case *api.EvaluateStarted:
		err = t.onTestcase(e.SolutionRef, func(tcr *TestcaseResult) {
			tcr.Verdict = VerdictSolving
		})
	case *api.EvaluateFinished:
		err = t.evaluateFinished(e)
	case *api.EvaluateSkipped:
		err = t.onTestcase(e.SolutionRef, func(tcr *TestcaseResult) {
			t.finalize(e.SolutionRef, tcr, VerdictSkipped, 0, nil)
		})
	case *api.CheckStarted:
		err = t.onTestcase(e.SolutionRef, func(tcr *TestcaseResult) {
			tcr.Verdict = VerdictChecking
		})
	case *api.CheckFinished:
		err = t.checkFinished(e)
	case *api.CheckSkipped:
		err = t.onTestcase(e.SolutionRef, func(tcr *TestcaseResult) {
			t.finalize(e.SolutionRef, tcr, VerdictSkipped, 0, nil)
		})

	case *api.FatalError:
		t.aborted = true
		t.fatal = e.Message
		t.listener.OnFatal(e.Message)
	case *api.JobFinished:
		t.finished = true
		if e.ErrorMessage != nil {
			t.addError(fmt.Sprintf("evaluation finished with error: %s", *e.ErrorMessage))
		}
	}

	if err != nil {
		return err
	}
	t.listener.OnEvent(ev)
	return nil
}

func (t *Tracker) setCompile(name string, state CompileState) error {
	if _, ok := t.roles[name]; !ok {
		return fmt.Errorf("compile event for unknown file %q", name)
	}
	t.compile.Store(name, state)
	return nil
}

func (t *Tracker) compileFinished(e *api.CompileFinished) error {
	role, ok := t.roles[e.Filename]
	if !ok {
		return fmt.Errorf("compile event for unknown file %q", e.Filename)
	}
	if e.Result.Ok() {
		t.compile.Store(e.Filename, CompileDone)
		return nil
	}
	t.compile.Store(e.Filename, CompileFailed)
	msg := fmt.Sprintf("failed to compile %s", e.Filename)
	if e.Result.Error != "" {
		msg += ": " + e.Result.Error
	}
	if role == taskfs.RoleSolution {
		t.addWarning(msg)
	} else {
		t.addError(msg)
	}
	return nil
}

func (t *Tracker) setGen(ref api.TestcaseRef, state GenState) error {
	states, ok := t.gen[ref.Subtask]
	if !ok {
		return fmt.Errorf("unknown subtask %d", ref.Subtask)
	}
	cur, ok := states[ref.Testcase]
	if !ok {
		return fmt.Errorf("unknown testcase %d of subtask %d", ref.Testcase, ref.Subtask)
	}
	if cur.Terminal() {
		return nil
	}
	states[ref.Testcase] = state
	return nil
}

func (t *Tracker) genFinished(ref api.TestcaseRef, res api.Result, next GenState, phase string) error {
	if res.Ok() {
		return t.setGen(ref, next)
	}
	if err := t.setGen(ref, GenFailed); err != nil {
		return err
	}
	msg := fmt.Sprintf("failed to %s testcase #%d of subtask %d", phase, ref.Testcase, ref.Subtask)
	if res.Error != "" {
		msg += ": " + res.Error
	}
	t.addError(msg)
	return nil
}

// onTestcase locates the pair and runs fn on it unless already settled.
func (t *Tracker) onTestcase(ref api.SolutionRef, fn func(*TestcaseResult)) error {
	sol, ok := t.solutions[ref.Solution]
	if !ok {
		return fmt.Errorf("unknown solution %q", ref.Solution)
	}
	st, ok := sol.testcases[ref.Subtask]
	if !ok {
		return fmt.Errorf("unknown subtask %d", ref.Subtask)
	}
	tcr, ok := st[ref.Testcase]
	if !ok {
		return fmt.Errorf("unknown testcase %d of subtask %d", ref.Testcase, ref.Subtask)
	}
	if !tcr.done {
		fn(tcr)
	}
	return nil
}

func (t *Tracker) evaluateFinished(e *api.EvaluateFinished) error {
	return t.onTestcase(e.SolutionRef, func(tcr *TestcaseResult) {
		if e.Result.Ok() {
			tcr.Verdict = VerdictSolved
			tcr.Result = &e.Result
			return
		}
		if e.Result.Status == api.StatusInternalError || e.Result.Status == api.StatusInvalidRequest {
			t.addError(fmt.Sprintf("internal error evaluating %s on testcase #%d: %s",
				e.Solution, e.Testcase, e.Result.Error))
		}
		t.finalize(e.SolutionRef, tcr, failureVerdict(e.Result.Status), 0, &e.Result)
	})
}

func (t *Tracker) checkFinished(e *api.CheckFinished) error {
	return t.onTestcase(e.SolutionRef, func(tcr *TestcaseResult) {
		switch e.Result.Status {
		case api.StatusSuccess:
			score := 1.0
			if e.Score != nil {
				score = *e.Score
			}
			if score < 0 || score > 1 {
				t.addError(fmt.Sprintf("checker returned invalid score %v on testcase #%d for %s",
					score, e.Testcase, e.Solution))
				t.finalize(e.SolutionRef, tcr, VerdictInternalError, 0, &e.Result)
				return
			}
			verdict := VerdictPartial
			switch score {
			case 1:
				verdict = VerdictAccepted
			case 0:
				verdict = VerdictWrongAnswer
			}
			t.finalize(e.SolutionRef, tcr, verdict, score, &e.Result)
		case api.StatusReturnCode:
			t.finalize(e.SolutionRef, tcr, VerdictWrongAnswer, 0, &e.Result)
		default:
			msg := fmt.Sprintf("checker failed on testcase #%d for %s", e.Testcase, e.Solution)
			if e.Result.Error != "" {
				msg += ": " + e.Result.Error
			}
			t.addError(msg)
			t.finalize(e.SolutionRef, tcr, VerdictInternalError, 0, &e.Result)
		}
	})
}

// finalize settles a (solution, testcase) pair. Each pair decrements its
// subtask's remaining counter at most once; the zeroth decrement triggers
// subtask scoring.
func (t *Tracker) finalize(ref api.SolutionRef, tcr *TestcaseResult, verdict Verdict, score float64, res *api.Result) {
	tcr.done = true
	tcr.Verdict = verdict
	tcr.Score = score
	if res != nil {
		tcr.Result = res
	}

	sol := t.solutions[ref.Solution]
	sol.remaining[ref.Subtask]--
	if sol.remaining[ref.Subtask] == 0 && sol.subtaskVerdicts[ref.Subtask] == SubtaskWaiting {
		t.finalizeSubtask(sol, ref.Subtask)
	}
}

func (t *Tracker) finalizeSubtask(sol *solutionState, st int) {
	mode := t.plan.Subtasks[st].ScoreMode
	maxScore := t.plan.Subtasks[st].MaxScore

	agg := 0.0
	min := 1.0
	for i, id := range t.shape[st] {
		s := sol.testcases[st][id].Score
		if s < min {
			min = s
		}
		switch mode {
		case taskfs.Min:
			if i == 0 || s < agg {
				agg = s
			}
		case taskfs.Max:
			if s > agg {
				agg = s
			}
		case taskfs.Sum:
			agg += s
		}
	}
	if mode == taskfs.Sum && len(t.shape[st]) > 0 {
		agg /= float64(len(t.shape[st]))
	}

	score := agg * maxScore
	sol.subtaskScores[st] = score
	sol.score += score

	switch {
	case min == 1.0:
		sol.subtaskVerdicts[st] = SubtaskAccepted
	case score == 0:
		sol.subtaskVerdicts[st] = SubtaskRejected
	default:
		sol.subtaskVerdicts[st] = SubtaskPartial
	}
}

func (t *Tracker) addWarning(msg string) {
	t.warnings = append(t.warnings, msg)
	t.listener.OnWarning(msg)
}

func (t *Tracker) addError(msg string) {
	t.errs = append(t.errs, msg)
	t.listener.OnError(msg)
}

// Fatal marks the run aborted with a message. Used by the connection layer
// when the stream dies or the run is cancelled.
func (t *Tracker) Fatal(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.aborted {
		return
	}
	t.aborted = true
	t.fatal = msg
	t.listener.OnFatal(msg)
}

// Aborted reports whether the run ended abnormally.
func (t *Tracker) Aborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}

// Finished reports whether the terminal stream message arrived.
func (t *Tracker) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

// Warnings returns a copy of the accumulated run warnings.
func (t *Tracker) Warnings() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.warnings...)
}

// Errors returns a copy of the accumulated run errors.
func (t *Tracker) Errors() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.errs...)
}
