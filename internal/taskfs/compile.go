package taskfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Options selects what Compile puts into the plan.
type Options struct {
	// Solutions restricts evaluation to the named files under sol/.
	// Empty means every source file in sol/ that is not a grader.
	Solutions []string

	// CopyBinaries asks the backend to write compiled binaries back into
	// the task's bin/ directory.
	CopyBinaries bool
}

// Compile inspects a task directory and builds its evaluation plan.
// It is all or nothing: on any error the plan is nil.
func Compile(dir string, opts Options) (*TaskPlan, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task dir: %w", err)
	}
	plan := &TaskPlan{Dir: absDir}

	if err := loadTaskYaml(absDir, plan); err != nil {
		return nil, err
	}

	generator := firstMatch(absDir, "gen/generator.*", "gen/generatore.*")
	validator := firstMatch(absDir, "gen/validator.*", "gen/valida.*")
	official := firstMatch(absDir, "sol/solution.*", "sol/soluzione.*")

	checkers := listFiles(absDir, nil, "cor/checker.*", "cor/correttore.cpp")
	if len(checkers) > 1 {
		return nil, &AmbiguousCheckerError{Candidates: checkers}
	}

	graderFiles := listFiles(absDir, nil, "sol/grader.*")
	plan.Graders = groupGraders(graderFiles)

	if generator != "" {
		if validator == "" {
			return nil, ErrMissingValidator
		}
		if official == "" {
			return nil, ErrMissingSolution
		}
		genFile, err := os.Open(filepath.Join(absDir, "gen", "GEN"))
		if err != nil {
			return nil, fmt.Errorf("failed to open gen/GEN: %w", err)
		}
		subtasks, perr := parseGenScript(genFile, absDir)
		genFile.Close()
		if perr != nil {
			return nil, perr
		}
		plan.Subtasks = subtasks
		plan.Generator = newSourceFile(generator, RoleNonSolution, binTarget(opts, "generator"))
		plan.Validator = newSourceFile(validator, RoleNonSolution, binTarget(opts, "validator"))
	} else {
		subtasks, ferr := loadFixedTestcases(absDir)
		if ferr != nil {
			return nil, ferr
		}
		plan.Subtasks = subtasks
	}

	if official != "" {
		plan.OfficialSolution = newSourceFile(official, RoleNonSolution, binTarget(opts, "official_solution"))
	}
	if len(checkers) == 1 {
		plan.Checker = newSourceFile(checkers[0], RoleNonSolution, binTarget(opts, "checker"))
	}

	solutions, err := resolveSolutions(absDir, opts.Solutions, graderFiles)
	if err != nil {
		return nil, err
	}
	for _, rel := range solutions {
		target := ""
		if opts.CopyBinaries {
			base := filepath.Base(rel)
			ext := filepath.Ext(base)
			target = filepath.Join("bin", strings.TrimSuffix(base, ext)+"_"+strings.TrimPrefix(ext, "."))
		}
		plan.Solutions = append(plan.Solutions, *newSourceFile(rel, RoleSolution, target))
	}
	return plan, nil
}

func binTarget(opts Options, name string) string {
	if !opts.CopyBinaries {
		return ""
	}
	return filepath.Join("bin", name)
}

func newSourceFile(rel string, role Role, writeBinTo string) *SourceFile {
	lang, _ := languageForPath(rel)
	return &SourceFile{
		Name:         filepath.Base(rel),
		Path:         rel,
		Role:         role,
		Language:     lang.ID,
		NeedsCompile: lang.NeedsCompile,
		WriteBinTo:   writeBinTo,
	}
}

// listFiles globs patterns relative to dir, keeps recognized source files
// not in exclude, and returns sorted dir-relative paths.
func listFiles(dir string, exclude mapset.Set[string], patterns ...string) []string {
	found := mapset.NewThreadUnsafeSet[string]()
	for _, pat := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pat))
		if err != nil {
			continue
		}
		for _, m := range matches {
			rel, err := filepath.Rel(dir, m)
			if err != nil || !isSourceFile(rel) {
				continue
			}
			if exclude != nil && exclude.Contains(rel) {
				continue
			}
			found.Add(rel)
		}
	}
	files := found.ToSlice()
	sort.Strings(files)
	return files
}

func firstMatch(dir string, patterns ...string) string {
	files := listFiles(dir, nil, patterns...)
	if len(files) == 0 {
		return ""
	}
	return files[0]
}

// resolveSolutions returns the dir-relative solution paths: either the
// requested allow-list resolved against sol/, or everything in sol/ that is
// not a grader.
func resolveSolutions(dir string, requested []string, graderFiles []string) ([]string, error) {
	exclude := mapset.NewThreadUnsafeSet[string]()
	for _, g := range graderFiles {
		exclude.Add(g)
	}
	exclude.Add(filepath.Join("sol", "__init__.py"))
	all := listFiles(dir, exclude, "sol/*")

	if len(requested) == 0 {
		return all, nil
	}

	var resolved []string
	for _, name := range requested {
		want := name
		if !strings.HasPrefix(want, "sol/") {
			want = "sol/" + want
		}
		match := ""
		for _, cand := range all {
			if cand == want || strings.HasPrefix(cand, want) {
				match = cand
				break
			}
		}
		if match == "" {
			return nil, &UnknownSolutionError{Name: name}
		}
		resolved = append(resolved, match)
	}
	return resolved, nil
}

// loadFixedTestcases builds the single sum subtask from input/input<N>.txt
// files, pairing outputs by number when present.
func loadFixedTestcases(dir string) ([]Subtask, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "input", "input*.txt"))
	if err != nil || len(matches) == 0 {
		return nil, ErrNoTestData
	}

	testcases := map[int]TestCase{}
	for _, m := range matches {
		base := filepath.Base(m)
		numStr := strings.TrimSuffix(strings.TrimPrefix(base, "input"), ".txt")
		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		tc := TestCase{InputPath: filepath.Join("input", base)}
		outPath := filepath.Join("output", fmt.Sprintf("output%d.txt", num))
		if info, err := os.Stat(filepath.Join(dir, outPath)); err == nil && info.Mode().IsRegular() {
			tc.OutputPath = outPath
		}
		testcases[num] = tc
	}
	if len(testcases) == 0 {
		return nil, ErrNoTestData
	}

	return []Subtask{{ScoreMode: Sum, MaxScore: 100, Testcases: testcases}}, nil
}

func groupGraders(files []string) []Grader {
	byLang := map[string][]Dependency{}
	var order []string
	for _, f := range files {
		lang, ok := languageForPath(f)
		if !ok {
			continue
		}
		if _, seen := byLang[lang.ID]; !seen {
			order = append(order, lang.ID)
		}
		byLang[lang.ID] = append(byLang[lang.ID], Dependency{
			Name: filepath.Base(f),
			Path: f,
		})
	}
	var graders []Grader
	for _, id := range order {
		graders = append(graders, Grader{Language: id, Files: byLang[id]})
	}
	return graders
}
