package taskfs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Generation script line forms, in match order:
//
//	#ST: <score>      close the current subtask, start one worth <score>
//	#COPY: <path>     testcase copied verbatim from <path>
//	<args...>  # ...  generator invocation, trailing comment stripped
//
// Blank lines and plain comment lines are skipped. Testcase numbering is a
// single counter across the whole script. A script with no #ST markers
// yields one subtask; a single subtask left at score 0 becomes the classic
// sum-of-testcases task worth 100 points.
func parseGenScript(r io.Reader, dir string) ([]Subtask, error) {
	var subtasks []Subtask
	current := map[int]TestCase{}
	score := 0.0
	tcNum := 0

	closeSubtask := func() {
		if len(current) == 0 {
			return
		}
		subtasks = append(subtasks, Subtask{
			ScoreMode: Min,
			MaxScore:  score,
			Testcases: current,
		})
		current = map[int]TestCase{}
	}

	sc := bufio.NewScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()

		if strings.HasPrefix(line, "#ST: ") {
			closeSubtask()
			val, err := strconv.ParseFloat(strings.TrimSpace(line[5:]), 64)
			if err != nil {
				return nil, fmt.Errorf("GEN line %d: invalid subtask score: %w", lineNum, err)
			}
			score = val
			continue
		}

		if strings.HasPrefix(line, "#COPY: ") {
			current[tcNum] = TestCase{CopyFrom: strings.TrimSpace(line[7:])}
			tcNum++
			continue
		}

		stripped := strings.TrimSpace(strings.SplitN(line, "#", 2)[0])
		if stripped == "" {
			continue
		}
		args := strings.Fields(stripped)
		current[tcNum] = TestCase{Args: args, ExtraDeps: argDeps(args, dir)}
		tcNum++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read GEN script: %w", err)
	}
	closeSubtask()

	if len(subtasks) == 0 {
		return nil, ErrNoTestData
	}
	if len(subtasks) == 1 && subtasks[0].MaxScore == 0 {
		subtasks[0].ScoreMode = Sum
		subtasks[0].MaxScore = 100
	}
	return subtasks, nil
}

// argDeps collects generator arguments that name files inside the task
// directory; those files must travel with the invocation.
func argDeps(args []string, dir string) []string {
	var deps []string
	for _, arg := range args {
		p := filepath.Join(dir, arg)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			deps = append(deps, arg)
		}
	}
	return deps
}
