package rubocop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Report is the shape of `rubocop --format json` output, reduced to the
// fields this tool consumes.
type Report struct {
	Files   []FileReport `json:"files"`
	Summary Summary      `json:"summary"`
}

type FileReport struct {
	Path     string    `json:"path"`
	Offenses []Offense `json:"offenses"`
}

type Offense struct {
	Severity    string   `json:"severity"`
	Message     string   `json:"message"`
	CopName     string   `json:"cop_name"`
	Correctable bool     `json:"correctable"`
	Location    Location `json:"location"`
}

type Location struct {
	Line int `json:"line"`
}

type Summary struct {
	OffenseCount int `json:"offense_count"`
}

func (r *Report) OffenseCount() int {
	if r.Summary.OffenseCount > 0 {
		return r.Summary.OffenseCount
	}
	count := 0
	for _, file := range r.Files {
		count += len(file.Offenses)
	}
	return count
}

// Runner invokes rubocop against a set of files and returns the parsed
// report.
type Runner interface {
	Run(paths []string, extraArgs []string) (*Report, error)
}

// ExecRunner shells out to the rubocop executable in a repo directory.
type ExecRunner struct {
	Dir string
}

func NewRunner(dir string) Runner {
	return &ExecRunner{Dir: dir}
}

func (r *ExecRunner) Run(paths []string, extraArgs []string) (*Report, error) {
	args := []string{"--format", "json", "--force-exclusion"}
	args = append(args, extraArgs...)
	args = append(args, paths...)
	cmd := exec.Command("rubocop", args...)
	cmd.Dir = r.Dir
	// rubocop exits non-zero when offenses are found; the report on stdout is
	// still valid, so the exit status is only a problem when no JSON follows.
	output, err := cmd.Output()
	report, parseErr := ParseReport(output)
	if parseErr != nil {
		if err != nil {
			return nil, fmt.Errorf("rubocop failed: %v: %w", err, parseErr)
		}
		return nil, parseErr
	}
	return report, nil
}

// ParseReport extracts the report object from rubocop output. Bundler and
// warning noise may surround the JSON, so the parse starts at the first '{'
// and ends at the last '}'. Output with no JSON object is fatal for the run.
func ParseReport(output []byte) (*Report, error) {
	start := bytes.IndexByte(output, '{')
	end := bytes.LastIndexByte(output, '}')
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in rubocop output: %.200s", output)
	}
	report := &Report{}
	if err := json.Unmarshal(output[start:end+1], report); err != nil {
		return nil, fmt.Errorf("malformed rubocop JSON: %w", err)
	}
	return report, nil
}
