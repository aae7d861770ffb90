package diff

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	f "github.com/reclaim-the-stack/rubocop-action/pkg/functional"
	"github.com/sourcegraph/go-diff/diff"
)

// LineSet holds line numbers in new-file coordinates. Membership is the only
// operation downstream consumers rely on.
type LineSet = f.Set[int]

// ChangedFile is one file of a pull request diff, with its changed-line set
// computed once at construction.
type ChangedFile struct {
	Path  string
	Patch string
	Lines LineSet
}

func NewChangedFile(path, patch string) (*ChangedFile, error) {
	lines, err := ChangedLines(patch)
	if err != nil {
		return nil, fmt.Errorf("parsing patch for %s: %w", path, err)
	}
	return &ChangedFile{Path: path, Patch: patch, Lines: lines}, nil
}

// FileSet maps file paths to their ChangedFile.
type FileSet map[string]*ChangedFile

// InDiff reports whether a review comment may be attached to (path, line).
// Files absent from the set are out of diff for every line.
func (fs FileSet) InDiff(path string, line int) bool {
	file, ok := fs[path]
	if !ok {
		return false
	}
	return file.Lines.Contains(line)
}

// ChangedLines computes the set of new-file line numbers covered by a patch:
// every added line and every context line of every hunk. Removed lines do not
// exist in the new file and hunk headers are not content, so neither is
// recorded. An empty patch (binary files, files too large for GitHub to
// attach a patch to) yields an empty set.
func ChangedLines(patch string) (LineSet, error) {
	lines := make(LineSet)
	if strings.TrimSpace(patch) == "" {
		return lines, nil
	}
	hunks, err := diff.ParseHunks([]byte(patch))
	if err != nil {
		return nil, err
	}
	for _, hunk := range hunks {
		lineNumber := int(hunk.NewStartLine)
		scanner := bufio.NewScanner(bytes.NewReader(hunk.Body))
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "++"):
				// A literal diff marker inside patched content, not an
				// addition. Occupies a new-file line but is not commentable.
				lineNumber++
			case strings.HasPrefix(line, "+"):
				lines.Add(lineNumber)
				lineNumber++
			case strings.HasPrefix(line, "-"):
				// removed lines have no new-file line number
			case strings.HasPrefix(line, `\`):
				// "\ No newline at end of file"
			default:
				// context lines are part of the posted diff, so comments may
				// attach to them
				lines.Add(lineNumber)
				lineNumber++
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return lines, nil
}
