package taskfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenScriptSubtaskMarkers(t *testing.T) {
	script := `#ST: 30
1 10
2 10
#ST: 70
1 1000
2 1000
3 1000
`
	subtasks, err := parseGenScript(strings.NewReader(script), t.TempDir())
	require.NoError(t, err)
	require.Len(t, subtasks, 2)

	assert.Equal(t, Min, subtasks[0].ScoreMode)
	assert.Equal(t, 30.0, subtasks[0].MaxScore)
	assert.Equal(t, []int{0, 1}, subtasks[0].TestcaseIDs())

	assert.Equal(t, Min, subtasks[1].ScoreMode)
	assert.Equal(t, 70.0, subtasks[1].MaxScore)
	assert.Equal(t, []int{2, 3, 4}, subtasks[1].TestcaseIDs())

	assert.Equal(t, []string{"1", "10"}, subtasks[0].Testcases[0].Args)
	assert.Equal(t, []string{"3", "1000"}, subtasks[1].Testcases[4].Args)
}

func TestGenScriptCopyCommentsBlanks(t *testing.T) {
	script := `# full line comment

#ST: 50
#COPY: input/handmade.txt
5 7   # trailing comment
#ST: 50
9 9
`
	subtasks, err := parseGenScript(strings.NewReader(script), t.TempDir())
	require.NoError(t, err)
	require.Len(t, subtasks, 2)

	first := subtasks[0]
	assert.Equal(t, []int{0, 1}, first.TestcaseIDs())
	assert.Equal(t, "input/handmade.txt", first.Testcases[0].CopyFrom)
	assert.Empty(t, first.Testcases[0].Args)
	assert.Equal(t, []string{"5", "7"}, first.Testcases[1].Args)
}

func TestGenScriptNoMarkersBecomesSumSubtask(t *testing.T) {
	script := "1 2\n3 4\n5 6\n"
	subtasks, err := parseGenScript(strings.NewReader(script), t.TempDir())
	require.NoError(t, err)
	require.Len(t, subtasks, 1)

	assert.Equal(t, Sum, subtasks[0].ScoreMode)
	assert.Equal(t, 100.0, subtasks[0].MaxScore)
	assert.Equal(t, []int{0, 1, 2}, subtasks[0].TestcaseIDs())
}

func TestGenScriptSingleZeroScoreSubtaskCoerced(t *testing.T) {
	script := "#ST: 0\n1 2\n3 4\n"
	subtasks, err := parseGenScript(strings.NewReader(script), t.TempDir())
	require.NoError(t, err)
	require.Len(t, subtasks, 1)

	assert.Equal(t, Sum, subtasks[0].ScoreMode)
	assert.Equal(t, 100.0, subtasks[0].MaxScore)
}

func TestGenScriptZeroScoreAmongManyKept(t *testing.T) {
	script := "#ST: 0\n1\n#ST: 100\n2\n"
	subtasks, err := parseGenScript(strings.NewReader(script), t.TempDir())
	require.NoError(t, err)
	require.Len(t, subtasks, 2)

	assert.Equal(t, Min, subtasks[0].ScoreMode)
	assert.Equal(t, 0.0, subtasks[0].MaxScore)
	assert.Equal(t, 100.0, subtasks[1].MaxScore)
}

func TestGenScriptInvalidMarker(t *testing.T) {
	_, err := parseGenScript(strings.NewReader("#ST: lots\n1\n"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid subtask score")
}

func TestGenScriptEmpty(t *testing.T) {
	_, err := parseGenScript(strings.NewReader("\n# nothing here\n"), t.TempDir())
	assert.ErrorIs(t, err, ErrNoTestData)
}

func TestGenScriptArgumentFileDeps(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gen"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gen", "graph.txt"), []byte("x"), 0o644))

	subtasks, err := parseGenScript(strings.NewReader("gen/graph.txt 5\n"), dir)
	require.NoError(t, err)
	require.Len(t, subtasks, 1)
	assert.Equal(t, []string{"gen/graph.txt"}, subtasks[0].Testcases[0].ExtraDeps)
}
