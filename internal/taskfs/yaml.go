package taskfs

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// taskYaml mirrors task.yaml. Most keys historically have two spellings;
// pointers distinguish "absent" from explicit zero values (an explicit empty
// infile means stdin).
type taskYaml struct {
	Name      *string `yaml:"name"`
	NomeBreve *string `yaml:"nome_breve"`

	Title *string `yaml:"title"`
	Nome  *string `yaml:"nome"`

	TimeLimit *float64 `yaml:"time_limit"`
	Timeout   *float64 `yaml:"timeout"`

	MemoryLimitMiB *int64 `yaml:"memory_limit"`
	MemLimitMiB    *int64 `yaml:"memlimit"`

	Infile  *string `yaml:"infile"`
	Outfile *string `yaml:"outfile"`
}

// findTaskYaml locates the metadata file: task.yaml or task.yml inside the
// task directory, else <dirname>.yaml or <dirname>.yml next to it.
func findTaskYaml(dir string) (string, error) {
	base := filepath.Base(dir)
	candidates := []string{
		filepath.Join(dir, "task.yaml"),
		filepath.Join(dir, "task.yml"),
		filepath.Join(dir, "..", base+".yaml"),
		filepath.Join(dir, "..", base+".yml"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fmt.Errorf("task.yaml not found in %s", dir)
}

func pick[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// loadTaskYaml reads the task metadata into the plan.
func loadTaskYaml(dir string, plan *TaskPlan) error {
	path, err := findTaskYaml(dir)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	var y taskYaml
	if err := yaml.Unmarshal(data, &y); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	name := pick(y.Name, y.NomeBreve)
	if name == nil {
		return fmt.Errorf("%s: missing task name", path)
	}
	plan.Name = *name

	title := pick(y.Title, y.Nome)
	if title == nil {
		return fmt.Errorf("%s: missing task title", path)
	}
	plan.Title = *title

	timeLim := pick(y.TimeLimit, y.Timeout)
	if timeLim == nil {
		return fmt.Errorf("%s: missing time limit", path)
	}
	plan.TimeLimSec = *timeLim

	memLim := pick(y.MemoryLimitMiB, y.MemLimitMiB)
	if memLim == nil {
		return fmt.Errorf("%s: missing memory limit", path)
	}
	plan.MemLimKiB = *memLim * 1024

	plan.InputFile = "input.txt"
	if y.Infile != nil {
		plan.InputFile = *y.Infile
	}
	plan.OutputFile = "output.txt"
	if y.Outfile != nil {
		plan.OutputFile = *y.Outfile
	}
	return nil
}
