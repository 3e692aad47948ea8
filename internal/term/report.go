package term

import (
	"fmt"
	"io"
	"sort"

	"github.com/programme-lv/taskeval/internal/taskfs"
	"github.com/programme-lv/taskeval/internal/tracker"
)

// FinalReport prints per-solution subtask scores, totals and the run's
// accumulated warnings and errors. It is printed even after an abort, over
// whatever state the run reached.
func FinalReport(w io.Writer, plan *taskfs.TaskPlan, snap tracker.Snapshot) {
	fmt.Fprintln(w)
	bold.Fprintf(w, "%s (%s)\n", plan.Title, plan.Name)

	names := make([]string, 0, len(snap.Solutions))
	for name := range snap.Solutions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sol := snap.Solutions[name]
		fmt.Fprintf(w, "  %-24s", name)
		for st := range plan.Subtasks {
			fmt.Fprintf(w, "  %s", subtaskCell(plan.Subtasks[st], sol, st))
		}
		fmt.Fprintf(w, "  = %s\n", totalCell(plan, sol))
	}

	if len(snap.Warnings) > 0 {
		fmt.Fprintln(w)
		yellow.Fprintf(w, "warnings (%d):\n", len(snap.Warnings))
		for _, msg := range snap.Warnings {
			fmt.Fprintf(w, "  %s\n", trimToRect(msg, 5, 160))
		}
	}
	if len(snap.Errors) > 0 {
		fmt.Fprintln(w)
		red.Fprintf(w, "errors (%d):\n", len(snap.Errors))
		for _, msg := range snap.Errors {
			fmt.Fprintf(w, "  %s\n", trimToRect(msg, 5, 160))
		}
	}
	if snap.Fatal != "" {
		fmt.Fprintln(w)
		red.Fprintf(w, "fatal: %s\n", snap.Fatal)
	}
}

func subtaskCell(st taskfs.Subtask, sol tracker.SolutionSnapshot, idx int) string {
	cell := fmt.Sprintf("%5.1f/%.0f", sol.SubtaskScores[idx], st.MaxScore)
	switch sol.SubtaskVerdicts[idx] {
	case tracker.SubtaskAccepted:
		return green.Sprint(cell)
	case tracker.SubtaskRejected:
		return red.Sprint(cell)
	case tracker.SubtaskPartial:
		return yellow.Sprint(cell)
	default:
		return faint.Sprint(cell)
	}
}

func totalCell(plan *taskfs.TaskPlan, sol tracker.SolutionSnapshot) string {
	cell := fmt.Sprintf("%.1f/%.0f", sol.Score, plan.MaxScore())
	if !sol.Done() {
		return faint.Sprint(cell)
	}
	switch {
	case sol.Score == plan.MaxScore():
		return green.Sprint(cell)
	case sol.Score == 0:
		return red.Sprint(cell)
	default:
		return yellow.Sprint(cell)
	}
}
