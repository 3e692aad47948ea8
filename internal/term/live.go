package term

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/programme-lv/taskeval/internal/taskfs"
	"github.com/programme-lv/taskeval/internal/tracker"
)

const framesPerSecond = 30

// Dashboard redraws a compact progress view at a fixed frame rate, reading
// tracker snapshots. It never blocks the event flow.
type Dashboard struct {
	trk  *tracker.Tracker
	plan *taskfs.TaskPlan
	out  io.Writer
}

func NewDashboard(trk *tracker.Tracker, plan *taskfs.TaskPlan, out io.Writer) *Dashboard {
	return &Dashboard{trk: trk, plan: plan, out: out}
}

// Run redraws until ctx is cancelled, then draws one last frame.
func (d *Dashboard) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / framesPerSecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.render()
			return
		case <-ticker.C:
			d.render()
		}
	}
}

func (d *Dashboard) render() {
	snap := d.trk.Snapshot()
	var b strings.Builder

	// home the cursor and clear below instead of wiping scrollback
	b.WriteString("\033[H\033[J")
	b.WriteString(bold.Sprintf("%s (%s)\n", d.plan.Title, d.plan.Name))

	compiled, failed := 0, 0
	for _, st := range snap.Compile {
		switch st {
		case tracker.CompileDone:
			compiled++
		case tracker.CompileFailed:
			failed++
		}
	}
	fmt.Fprintf(&b, "compile  %d/%d", compiled, len(snap.Compile))
	if failed > 0 {
		fmt.Fprintf(&b, "  %s", red.Sprintf("%d failed", failed))
	}
	b.WriteByte('\n')

	if snap.Gen != nil {
		ready, broken, total := 0, 0, 0
		for _, states := range snap.Gen {
			for _, s := range states {
				total++
				switch s {
				case tracker.GenDone:
					ready++
				case tracker.GenFailed:
					broken++
				}
			}
		}
		fmt.Fprintf(&b, "testdata %d/%d", ready, total)
		if broken > 0 {
			fmt.Fprintf(&b, "  %s", red.Sprintf("%d failed", broken))
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	names := make([]string, 0, len(snap.Solutions))
	for name := range snap.Solutions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sol := snap.Solutions[name]
		fmt.Fprintf(&b, "%-24s %s  %s\n",
			name, verdictGlyphs(d.plan, sol), scoreCell(d.plan, sol))
	}

	if len(snap.Warnings) > 0 || len(snap.Errors) > 0 {
		fmt.Fprintf(&b, "\n%s  %s\n",
			yellow.Sprintf("%d warnings", len(snap.Warnings)),
			red.Sprintf("%d errors", len(snap.Errors)))
	}
	if snap.Fatal != "" {
		b.WriteString(red.Sprintf("fatal: %s\n", snap.Fatal))
	}

	fmt.Fprint(d.out, b.String())
}

// verdictGlyphs draws one rune per testcase, subtasks separated by '|'.
func verdictGlyphs(plan *taskfs.TaskPlan, sol tracker.SolutionSnapshot) string {
	var b strings.Builder
	for st := range plan.Subtasks {
		if st > 0 {
			b.WriteByte('|')
		}
		for _, id := range plan.Subtasks[st].TestcaseIDs() {
			b.WriteRune(glyph(sol.Testcases[st][id].Verdict))
		}
	}
	return b.String()
}

func glyph(v tracker.Verdict) rune {
	switch v {
	case tracker.VerdictWaiting:
		return '.'
	case tracker.VerdictSolving, tracker.VerdictSolved, tracker.VerdictChecking:
		return '?'
	case tracker.VerdictAccepted:
		return '*'
	case tracker.VerdictPartial:
		return '~'
	case tracker.VerdictSkipped:
		return 's'
	default:
		return 'X'
	}
}

func scoreCell(plan *taskfs.TaskPlan, sol tracker.SolutionSnapshot) string {
	cell := fmt.Sprintf("%6.1f/%.0f", sol.Score, plan.MaxScore())
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
