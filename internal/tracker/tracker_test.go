package tracker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/programme-lv/taskeval/api"
	"github.com/programme-lv/taskeval/internal/taskfs"
)

const solName = "sol.cpp"

// singleSubtaskPlan has one generated subtask with the given testcase count.
func singleSubtaskPlan(mode taskfs.ScoreMode, maxScore float64, numTc int) *taskfs.TaskPlan {
	tcs := map[int]taskfs.TestCase{}
	for i := 0; i < numTc; i++ {
		tcs[i] = taskfs.TestCase{Args: []string{"1"}}
	}
	return &taskfs.TaskPlan{
		Name: "t", Title: "T", TimeLimSec: 1, MemLimKiB: 1024,
		Subtasks:  []taskfs.Subtask{{ScoreMode: mode, MaxScore: maxScore, Testcases: tcs}},
		Generator: &taskfs.SourceFile{Name: "generator.py", Path: "gen/generator.py"},
		Validator: &taskfs.SourceFile{Name: "validator.py", Path: "gen/validator.py"},
	}
}

func newSolutionTracker(plan *taskfs.TaskPlan) *Tracker {
	trk := New(plan)
	trk.RegisterSolution(taskfs.SourceFile{Name: solName, Path: "sol/" + solName, NeedsCompile: true})
	return trk
}

func ref(st, tc int) api.SolutionRef {
	return api.SolutionRef{
		TestcaseRef: api.TestcaseRef{Subtask: st, Testcase: tc},
		Solution:    solName,
	}
}

func okResult() api.Result { return api.Result{Status: api.StatusSuccess} }

// applyCheck drives one testcase through evaluate and check with the score.
func applyCheck(t *testing.T, trk *Tracker, st, tc int, score float64) {
	t.Helper()
	require.NoError(t, trk.Apply(&api.EvaluateStarted{SolutionRef: ref(st, tc)}))
	require.NoError(t, trk.Apply(&api.EvaluateFinished{SolutionRef: ref(st, tc), Result: okResult()}))
	require.NoError(t, trk.Apply(&api.CheckStarted{SolutionRef: ref(st, tc)}))
	require.NoError(t, trk.Apply(&api.CheckFinished{SolutionRef: ref(st, tc), Result: okResult(), Score: &score}))
}

func TestScoreModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     taskfs.ScoreMode
		maxScore float64
		scores   []float64
		want     float64
		verdict  SubtaskVerdict
	}{
		{"min all full", taskfs.Min, 100, []float64{1, 1, 1}, 100, SubtaskAccepted},
		{"min one zero", taskfs.Min, 100, []float64{1, 1, 0}, 0, SubtaskRejected},
		{"max one zero", taskfs.Max, 100, []float64{1, 1, 0}, 100, SubtaskPartial},
		{"sum two thirds", taskfs.Sum, 60, []float64{1, 0, 1}, 40, SubtaskPartial},
		{"sum all zero", taskfs.Sum, 60, []float64{0, 0, 0}, 0, SubtaskRejected},
		{"min partial credit", taskfs.Min, 50, []float64{1, 0.5, 1}, 25, SubtaskPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trk := newSolutionTracker(singleSubtaskPlan(tt.mode, tt.maxScore, len(tt.scores)))
			for i, s := range tt.scores {
				applyCheck(t, trk, 0, i, s)
			}
			snap := trk.Snapshot()
			sol := snap.Solutions[solName]
			assert.InDelta(t, tt.want, sol.Score, 1e-9)
			assert.InDelta(t, tt.want, sol.SubtaskScores[0], 1e-9)
			assert.Equal(t, tt.verdict, sol.SubtaskVerdicts[0])
		})
	}
}

func TestScoreIndependentOfArrivalOrder(t *testing.T) {
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {0, 2, 1}}
	scores := []float64{1, 0.5, 0}

	for _, order := range orders {
		trk := newSolutionTracker(singleSubtaskPlan(taskfs.Sum, 90, 3))
		for _, tc := range order {
			applyCheck(t, trk, 0, tc, scores[tc])
		}
		sol := trk.Snapshot().Solutions[solName]
		assert.InDelta(t, 45.0, sol.Score, 1e-9, "order %v", order)
	}
}

func TestSubtaskScoredExactlyOnce(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 2))
	applyCheck(t, trk, 0, 0, 1)
	applyCheck(t, trk, 0, 1, 1)

	before := trk.Snapshot().Solutions[solName]
	require.Equal(t, 100.0, before.Score)
	require.Equal(t, SubtaskAccepted, before.SubtaskVerdicts[0])

	// a straggler for an already settled testcase changes nothing
	zero := 0.0
	require.NoError(t, trk.Apply(&api.CheckFinished{SolutionRef: ref(0, 1), Result: okResult(), Score: &zero}))

	after := trk.Snapshot().Solutions[solName]
	assert.Equal(t, 100.0, after.Score)
	assert.Equal(t, SubtaskAccepted, after.SubtaskVerdicts[0])
	assert.Equal(t, VerdictAccepted, after.Testcases[0][1].Verdict)
}

func TestEvaluationFailureThenSkipDecrementsOnce(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 2))

	require.NoError(t, trk.Apply(&api.EvaluateStarted{SolutionRef: ref(0, 0)}))
	require.NoError(t, trk.Apply(&api.EvaluateFinished{
		SolutionRef: ref(0, 0),
		Result:      api.Result{Status: api.StatusTimeLimit},
	}))
	// the backend still announces the skipped check stage
	require.NoError(t, trk.Apply(&api.CheckSkipped{SolutionRef: ref(0, 0)}))

	sol := trk.Snapshot().Solutions[solName]
	assert.Equal(t, VerdictTimeLimit, sol.Testcases[0][0].Verdict)
	assert.Equal(t, 1, sol.Remaining[0])

	applyCheck(t, trk, 0, 1, 1)
	sol = trk.Snapshot().Solutions[solName]
	assert.Equal(t, 0, sol.Remaining[0])
	assert.Equal(t, SubtaskRejected, sol.SubtaskVerdicts[0])
	assert.Equal(t, 0.0, sol.Score)
}

func TestSkippedTestcasesSettleSubtask(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 2))
	require.NoError(t, trk.Apply(&api.EvaluateSkipped{SolutionRef: ref(0, 0)}))
	require.NoError(t, trk.Apply(&api.EvaluateSkipped{SolutionRef: ref(0, 1)}))

	sol := trk.Snapshot().Solutions[solName]
	assert.True(t, sol.Done())
	assert.Equal(t, VerdictSkipped, sol.Testcases[0][0].Verdict)
	assert.Equal(t, SubtaskRejected, sol.SubtaskVerdicts[0])
	assert.Equal(t, 0.0, sol.Score)
}

func TestOverallScoreSumsSubtasks(t *testing.T) {
	plan := singleSubtaskPlan(taskfs.Min, 30, 1)
	plan.Subtasks = append(plan.Subtasks, taskfs.Subtask{
		ScoreMode: taskfs.Min,
		MaxScore:  70,
		Testcases: map[int]taskfs.TestCase{1: {Args: []string{"2"}}},
	})
	trk := newSolutionTracker(plan)

	applyCheck(t, trk, 0, 0, 1)
	applyCheck(t, trk, 1, 1, 0.5)

	sol := trk.Snapshot().Solutions[solName]
	assert.InDelta(t, 30.0, sol.SubtaskScores[0], 1e-9)
	assert.InDelta(t, 35.0, sol.SubtaskScores[1], 1e-9)
	assert.InDelta(t, 65.0, sol.Score, 1e-9)
}

func TestCompileFailureSeverity(t *testing.T) {
	trk := New(singleSubtaskPlan(taskfs.Min, 100, 1))
	trk.RegisterSolution(taskfs.SourceFile{Name: solName, NeedsCompile: true})
	trk.RegisterNonSolution(taskfs.SourceFile{Name: "validator.cpp", NeedsCompile: true})

	fail := api.Result{Status: api.StatusReturnCode, Error: "syntax error"}
	require.NoError(t, trk.Apply(&api.CompileFinished{Filename: solName, Result: fail}))
	require.NoError(t, trk.Apply(&api.CompileFinished{Filename: "validator.cpp", Result: fail}))

	warnings := trk.Warnings()
	errs := trk.Errors()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], solName)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "validator.cpp")

	snap := trk.Snapshot()
	assert.Equal(t, CompileFailed, snap.Compile[solName])
	assert.Equal(t, CompileFailed, snap.Compile["validator.cpp"])
}

func TestNoCompilationNeededStartsDone(t *testing.T) {
	trk := New(singleSubtaskPlan(taskfs.Min, 100, 1))
	trk.RegisterSolution(taskfs.SourceFile{Name: "sol.py", NeedsCompile: false})

	assert.Equal(t, CompileDone, trk.Snapshot().Compile["sol.py"])
}

func TestStructuralErrors(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 1))

	err := trk.Apply(&api.EvaluateStarted{SolutionRef: api.SolutionRef{
		TestcaseRef: api.TestcaseRef{Subtask: 0, Testcase: 0},
		Solution:    "ghost.cpp",
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown solution")

	err = trk.Apply(&api.EvaluateStarted{SolutionRef: ref(0, 7)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown testcase")

	err = trk.Apply(&api.GenerateStarted{TestcaseRef: api.TestcaseRef{Subtask: 4, Testcase: 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown subtask")

	err = trk.Apply(&api.CompileStarted{Filename: "ghost.cpp"})
	require.Error(t, err)
}

func TestCheckerScoreOutOfRange(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 1))

	bad := 1.5
	require.NoError(t, trk.Apply(&api.CheckFinished{SolutionRef: ref(0, 0), Result: okResult(), Score: &bad}))

	sol := trk.Snapshot().Solutions[solName]
	assert.Equal(t, VerdictInternalError, sol.Testcases[0][0].Verdict)
	assert.Equal(t, 0.0, sol.Score)
	require.Len(t, trk.Errors(), 1)
	assert.Contains(t, trk.Errors()[0], "invalid score")
}

func TestCheckerCrashIsInternalError(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 1))

	require.NoError(t, trk.Apply(&api.CheckFinished{
		SolutionRef: ref(0, 0),
		Result:      api.Result{Status: api.StatusSignal, Error: "SIGSEGV"},
	}))

	sol := trk.Snapshot().Solutions[solName]
	assert.Equal(t, VerdictInternalError, sol.Testcases[0][0].Verdict)
	require.Len(t, trk.Errors(), 1)
	assert.Contains(t, trk.Errors()[0], "checker failed")
}

func TestGenerationPipeline(t *testing.T) {
	trk := New(singleSubtaskPlan(taskfs.Min, 100, 2))
	tc := func(n int) api.TestcaseRef { return api.TestcaseRef{Subtask: 0, Testcase: n} }

	require.NoError(t, trk.Apply(&api.GenerateStarted{TestcaseRef: tc(0)}))
	assert.Equal(t, Generating, trk.Snapshot().Gen[0][0])
	require.NoError(t, trk.Apply(&api.GenerateFinished{TestcaseRef: tc(0), Result: okResult()}))
	require.NoError(t, trk.Apply(&api.ValidateStarted{TestcaseRef: tc(0)}))
	require.NoError(t, trk.Apply(&api.ValidateFinished{TestcaseRef: tc(0), Result: okResult()}))
	require.NoError(t, trk.Apply(&api.SolveStarted{TestcaseRef: tc(0)}))
	require.NoError(t, trk.Apply(&api.SolveFinished{TestcaseRef: tc(0), Result: okResult()}))
	assert.Equal(t, GenDone, trk.Snapshot().Gen[0][0])

	require.NoError(t, trk.Apply(&api.GenerateFinished{
		TestcaseRef: tc(1),
		Result:      api.Result{Status: api.StatusReturnCode, Error: "exit 1"},
	}))
	assert.Equal(t, GenFailed, trk.Snapshot().Gen[0][1])
	require.Len(t, trk.Errors(), 1)
	assert.Contains(t, trk.Errors()[0], "failed to generate testcase #1")

	// downstream skips do not resurrect a failed testcase
	require.NoError(t, trk.Apply(&api.ValidateSkipped{TestcaseRef: tc(1)}))
	require.NoError(t, trk.Apply(&api.SolveSkipped{TestcaseRef: tc(1)}))
	assert.Equal(t, GenFailed, trk.Snapshot().Gen[0][1])
	assert.Len(t, trk.Errors(), 1)
}

func TestFatalMarksAborted(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 2))
	applyCheck(t, trk, 0, 0, 1)

	require.NoError(t, trk.Apply(&api.FatalError{Message: "backend died"}))

	snap := trk.Snapshot()
	assert.True(t, snap.Aborted)
	assert.Equal(t, "backend died", snap.Fatal)
	// partial results stay queryable
	assert.Equal(t, VerdictAccepted, snap.Solutions[solName].Testcases[0][0].Verdict)
}

func TestJobFinished(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 1))
	require.NoError(t, trk.Apply(&api.JobFinished{}))
	assert.True(t, trk.Finished())
	assert.False(t, trk.Aborted())

	trk2 := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 1))
	msg := "out of disk"
	require.NoError(t, trk2.Apply(&api.JobFinished{ErrorMessage: &msg}))
	require.Len(t, trk2.Errors(), 1)
	assert.Contains(t, trk2.Errors()[0], "out of disk")
}

type recordingListener struct {
	events   []api.MsgType
	warnings []string
	errs     []string
	fatals   []string
}

func (l *recordingListener) OnEvent(ev api.Event) { l.events = append(l.events, ev.EventType()) }
func (l *recordingListener) OnWarning(msg string) { l.warnings = append(l.warnings, msg) }
func (l *recordingListener) OnError(msg string)   { l.errs = append(l.errs, msg) }
func (l *recordingListener) OnFatal(msg string)   { l.fatals = append(l.fatals, msg) }

func TestListenerNotifications(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 1))
	rec := &recordingListener{}
	trk.SetListener(rec)

	require.NoError(t, trk.Apply(&api.CompileStarted{Filename: solName}))
	require.NoError(t, trk.Apply(&api.CompileFinished{
		Filename: solName,
		Result:   api.Result{Status: api.StatusReturnCode},
	}))
	require.NoError(t, trk.Apply(&api.FatalError{Message: "boom"}))

	assert.Equal(t, []api.MsgType{api.CompileStartMsg, api.CompileFinishMsg, api.FatalErrorMsg}, rec.events)
	require.Len(t, rec.warnings, 1)
	assert.Empty(t, rec.errs)
	assert.Equal(t, []string{"boom"}, rec.fatals)
}

func TestSnapshotIsDetached(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Sum, 100, 2))
	applyCheck(t, trk, 0, 0, 1)

	snap := trk.Snapshot()
	applyCheck(t, trk, 0, 1, 1)

	assert.Equal(t, 1, snap.Solutions[solName].Remaining[0])
	assert.Equal(t, VerdictWaiting, snap.Solutions[solName].Testcases[0][1].Verdict)
	assert.Equal(t, 0, trk.Snapshot().Solutions[solName].Remaining[0])
}

func TestVerdictFromPartialScore(t *testing.T) {
	trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 1))
	applyCheck(t, trk, 0, 0, 0.25)

	sol := trk.Snapshot().Solutions[solName]
	assert.Equal(t, VerdictPartial, sol.Testcases[0][0].Verdict)
	assert.InDelta(t, 25.0, sol.Score, 1e-9)
}

func TestEvaluationFailureVerdicts(t *testing.T) {
	cases := []struct {
		status api.ResultStatus
		want   Verdict
	}{
		{api.StatusReturnCode, VerdictReturnCode},
		{api.StatusSignal, VerdictSignal},
		{api.StatusTimeLimit, VerdictTimeLimit},
		{api.StatusWallLimit, VerdictWallLimit},
		{api.StatusMemoryLimit, VerdictMemoryLimit},
		{api.StatusMissingFiles, VerdictMissingFiles},
		{api.StatusInternalError, VerdictInternalError},
	}
	for _, c := range cases {
		t.Run(string(c.status), func(t *testing.T) {
			trk := newSolutionTracker(singleSubtaskPlan(taskfs.Min, 100, 1))
			require.NoError(t, trk.Apply(&api.EvaluateFinished{
				SolutionRef: ref(0, 0),
				Result:      api.Result{Status: c.status},
			}))
			sol := trk.Snapshot().Solutions[solName]
			assert.Equal(t, c.want, sol.Testcases[0][0].Verdict,
				fmt.Sprintf("status %s", c.status))
		})
	}
}
