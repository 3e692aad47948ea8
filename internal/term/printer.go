// Package term renders evaluation progress: an inline per-event printer, a
// live dashboard over tracker snapshots, and the final report.
package term

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/programme-lv/taskeval/api"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	faint  = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// Printer writes one line per event. It implements tracker.Listener.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) OnEvent(ev api.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := ev.(type) {
	case *api.CompileStarted:
		faint.Fprintf(p.out, "compiling %s\n", e.Filename)
	case *api.CompileFinished:
		if e.Result.Ok() {
			fmt.Fprintf(p.out, "compiled %s %s\n", e.Filename, green.Sprint("OK"))
		} else {
			fmt.Fprintf(p.out, "compiled %s %s\n", e.Filename, red.Sprint("FAILED"))
			if e.Result.Error != "" {
				faint.Fprintln(p.out, trimToRect(e.Result.Error, 10, 120))
			}
		}

	case *api.GenerateFinished:
		p.pipelineLine("generated", e.TestcaseRef, e.Result)
	case *api.GenerateSkipped:
		p.skipLine("generation", e.TestcaseRef)
	case *api.ValidateFinished:
		p.pipelineLine("validated", e.TestcaseRef, e.Result)
	case *api.ValidateSkipped:
		p.skipLine("validation", e.TestcaseRef)
	case *api.SolveFinished:
		p.pipelineLine("solved", e.TestcaseRef, e.Result)
	case *api.SolveSkipped:
		p.skipLine("reference run", e.TestcaseRef)

	case *api.EvaluateFinished:
		if !e.Result.Ok() {
			fmt.Fprintf(p.out, "%s on testcase %d: %s\n",
				e.Solution, e.Testcase, red.Sprint(string(e.Result.Status)))
		}
	case *api.EvaluateSkipped:
		fmt.Fprintf(p.out, "%s on testcase %d: %s\n",
			e.Solution, e.Testcase, faint.Sprint("skipped"))
	case *api.CheckFinished:
		p.checkLine(e)

	case *api.JobFinished:
		if e.ErrorMessage == nil {
			fmt.Fprintln(p.out, bold.Sprint("evaluation finished"))
		}
	}
}

func (p *Printer) pipelineLine(verb string, ref api.TestcaseRef, res api.Result) {
	if res.Ok() {
		faint.Fprintf(p.out, "%s testcase %d of subtask %d\n", verb, ref.Testcase, ref.Subtask)
		return
	}
	fmt.Fprintf(p.out, "%s testcase %d of subtask %d: %s\n",
		verb, ref.Testcase, ref.Subtask, red.Sprint(string(res.Status)))
}

func (p *Printer) skipLine(phase string, ref api.TestcaseRef) {
	faint.Fprintf(p.out, "%s of testcase %d of subtask %d skipped\n", phase, ref.Testcase, ref.Subtask)
}

func (p *Printer) checkLine(e *api.CheckFinished) {
	label := ""
	switch {
	case !e.Result.Ok() && e.Result.Status != api.StatusReturnCode:
		label = red.Sprint("checker error")
	case e.Result.Status == api.StatusReturnCode:
		label = red.Sprint("wrong answer")
	case e.Score == nil || *e.Score == 1:
		label = green.Sprint("correct")
	case *e.Score == 0:
		label = red.Sprint("wrong answer")
	default:
		label = yellow.Sprintf("partial %.2f", *e.Score)
	}
	fmt.Fprintf(p.out, "%s on testcase %d: %s\n", e.Solution, e.Testcase, label)
}

func (p *Printer) OnWarning(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	yellow.Fprintf(p.out, "warning: %s\n", msg)
}

func (p *Printer) OnError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	red.Fprintf(p.out, "error: %s\n", msg)
}

func (p *Printer) OnFatal(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	red.Fprintf(p.out, "fatal: %s\n", msg)
}
