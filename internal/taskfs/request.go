package taskfs

import (
	"path/filepath"
	"strconv"

	"github.com/programme-lv/taskeval/api"
)

// ReqOptions tune the submitted request without changing the plan.
type ReqOptions struct {
	CacheMode     string
	NumCores      int
	OnlySolutions []string
	DryRun        bool
}

// BuildRequest translates a compiled plan into the wire request. Paths are
// absolutized against the task directory; generated test data and the
// compiled checker get write-back targets keyed by global testcase number.
func BuildRequest(plan *TaskPlan, opts ReqOptions) *api.EvaluateReq {
	req := &api.EvaluateReq{
		Task: api.Task{
			Name:       plan.Name,
			Title:      plan.Title,
			TimeLimSec: plan.TimeLimSec,
			MemLimKiB:  plan.MemLimKiB,
			InputFile:  plan.InputFile,
			OutputFile: plan.OutputFile,
		},
		CacheMode:     opts.CacheMode,
		NumCores:      opts.NumCores,
		OnlySolutions: opts.OnlySolutions,
		DryRun:        opts.DryRun,
	}

	for _, st := range plan.Subtasks {
		wire := api.Subtask{
			ScoreMode: st.ScoreMode.String(),
			MaxScore:  st.MaxScore,
			Testcases: make(map[int]api.TestCase, len(st.Testcases)),
		}
		for id, tc := range st.Testcases {
			wire.Testcases[id] = api.TestCase{
				InputPath:  absolutize(plan.Dir, tc.InputPath),
				OutputPath: absolutize(plan.Dir, tc.OutputPath),
				CopyFrom:   absolutize(plan.Dir, tc.CopyFrom),
				Args:       tc.Args,
				ExtraDeps:  absolutizeAll(plan.Dir, tc.ExtraDeps),
			}
		}
		req.Task.Subtasks = append(req.Task.Subtasks, wire)
	}

	req.Task.Generator = wireFile(plan.Dir, plan.Generator)
	req.Task.Validator = wireFile(plan.Dir, plan.Validator)
	req.Task.OfficialSolution = wireFile(plan.Dir, plan.OfficialSolution)
	req.Task.Checker = wireFile(plan.Dir, plan.Checker)
	for _, g := range plan.Graders {
		wire := api.Grader{Language: g.Language}
		for _, dep := range g.Files {
			wire.Files = append(wire.Files, api.Dependency{
				Name: dep.Name,
				Path: absolutize(plan.Dir, dep.Path),
			})
		}
		req.Task.Graders = append(req.Task.Graders, wire)
	}

	for _, sol := range plan.Solutions {
		req.Solutions = append(req.Solutions, *wireFile(plan.Dir, &sol))
	}

	if plan.Generated() {
		req.WriteInputsTo = map[int]string{}
		req.WriteOutputsTo = map[int]string{}
		for _, st := range plan.Subtasks {
			for _, id := range st.TestcaseIDs() {
				req.WriteInputsTo[id] = filepath.Join(plan.Dir, "input", inputName(id))
				req.WriteOutputsTo[id] = filepath.Join(plan.Dir, "output", outputName(id))
			}
		}
	}
	if plan.Checker != nil && plan.Checker.WriteBinTo != "" {
		req.WriteCheckerTo = filepath.Join(plan.Dir, plan.Checker.WriteBinTo)
	}
	return req
}

func inputName(id int) string  { return "input" + strconv.Itoa(id) + ".txt" }
func outputName(id int) string { return "output" + strconv.Itoa(id) + ".txt" }

func wireFile(dir string, f *SourceFile) *api.SourceFile {
	if f == nil {
		return nil
	}
	out := &api.SourceFile{
		Name:         f.Name,
		Path:         absolutize(dir, f.Path),
		Language:     f.Language,
		NeedsCompile: f.NeedsCompile,
	}
	if f.WriteBinTo != "" {
		out.WriteBinTo = filepath.Join(dir, f.WriteBinTo)
	}
	return out
}

func absolutize(dir, rel string) string {
	if rel == "" {
		return ""
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(dir, rel)
}

func absolutizeAll(dir string, rels []string) []string {
	if len(rels) == 0 {
		return nil
	}
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = absolutize(dir, r)
	}
	return out
}
