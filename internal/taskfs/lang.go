package taskfs

import (
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// language describes how files of one source language are handled.
type language struct {
	ID           string
	Extensions   []string
	NeedsCompile bool
}

var languages = []language{
	{ID: "cpp", Extensions: []string{".cpp", ".cc", ".cxx"}, NeedsCompile: true},
	{ID: "c", Extensions: []string{".c"}, NeedsCompile: true},
	{ID: "pascal", Extensions: []string{".pas"}, NeedsCompile: true},
	{ID: "python", Extensions: []string{".py"}, NeedsCompile: false},
	{ID: "shell", Extensions: []string{".sh"}, NeedsCompile: false},
}

// sourceExts is the set of recognized source file extensions. Discovery
// globs match loosely ("generator.*"); this set does the actual filtering.
var sourceExts = buildExtSet()

func buildExtSet() mapset.Set[string] {
	s := mapset.NewThreadUnsafeSet[string]()
	for _, l := range languages {
		for _, ext := range l.Extensions {
			s.Add(ext)
		}
	}
	return s
}

// languageForPath resolves the language of a file by extension.
func languageForPath(path string) (language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, l := range languages {
		for _, e := range l.Extensions {
			if e == ext {
				return l, true
			}
		}
	}
	return language{}, false
}

func isSourceFile(path string) bool {
	return sourceExts.Contains(strings.ToLower(filepath.Ext(path)))
}
