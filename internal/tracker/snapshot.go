package tracker

// Snapshot is a point-in-time deep copy of the tracked state. It shares
// nothing with the tracker and is safe to read while events keep flowing.
type Snapshot struct {
	Compile map[string]CompileState
	// subtask index -> testcase id -> pipeline state; nil for fixed-data plans
	Gen       map[int]map[int]GenState
	Solutions map[string]SolutionSnapshot

	Warnings []string
	Errors   []string

	Fatal    string
	Aborted  bool
	Finished bool
}

// SolutionSnapshot is one solution's progress and scores.
type SolutionSnapshot struct {
	Score           float64
	SubtaskScores   []float64
	SubtaskVerdicts []SubtaskVerdict
	// subtask index -> testcase id -> result
	Testcases map[int]map[int]TestcaseResult
	Remaining []int
}

// Done reports whether every testcase of the solution is settled.
func (s SolutionSnapshot) Done() bool {
	for _, n := range s.Remaining {
		if n > 0 {
			return false
		}
	}
	return true
}

// Snapshot copies the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Compile:   make(map[string]CompileState),
		Solutions: make(map[string]SolutionSnapshot, len(t.solutions)),
		Warnings:  append([]string(nil), t.warnings...),
		Errors:    append([]string(nil), t.errs...),
		Fatal:     t.fatal,
		Aborted:   t.aborted,
		Finished:  t.finished,
	}
	t.compile.Range(func(name string, state CompileState) bool {
		snap.Compile[name] = state
		return true
	})
	if len(t.gen) > 0 {
		snap.Gen = make(map[int]map[int]GenState, len(t.gen))
		for st, states := range t.gen {
			inner := make(map[int]GenState, len(states))
			for id, s := range states {
				inner[id] = s
			}
			snap.Gen[st] = inner
		}
	}
	for name, sol := range t.solutions {
		ss := SolutionSnapshot{
			Score:           sol.score,
			SubtaskScores:   append([]float64(nil), sol.subtaskScores...),
			SubtaskVerdicts: append([]SubtaskVerdict(nil), sol.subtaskVerdicts...),
			Testcases:       make(map[int]map[int]TestcaseResult, len(sol.testcases)),
			Remaining:       append([]int(nil), sol.remaining...),
		}
		for st, tcs := range sol.testcases {
			inner := make(map[int]TestcaseResult, len(tcs))
			for id, tcr := range tcs {
				inner[id] = *tcr
			}
			ss.Testcases[st] = inner
		}
		snap.Solutions[name] = ss
	}
	return snap
}
