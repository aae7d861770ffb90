package review

import (
	"fmt"
	"strings"

	"github.com/reclaim-the-stack/rubocop-action/internal/diff"
	"github.com/reclaim-the-stack/rubocop-action/internal/rubocop"
)

const (
	markerOpen  = "<!-- rubocop-comment-id: "
	markerClose = " -->"

	// AggregateMarker identifies the single issue comment collecting every
	// offense that cannot be attached as a line comment.
	AggregateMarker = "outside-diff"

	aggregatePreamble = "RuboCop found offenses on lines which are not part of this pull request's diff:"
)

// Offense is a single rubocop offense flattened to the fields needed for
// comment rendering.
type Offense struct {
	Path        string
	Line        int
	Cop         string
	Message     string
	Correctable bool
}

func (o Offense) render() string {
	line := fmt.Sprintf("%s: %s", o.Cop, o.Message)
	if o.Correctable {
		line = "[Correctable] " + line
	}
	return line
}

// Group collects the offenses sharing a (path, line) pair. One group renders
// to one review comment.
type Group struct {
	Path     string
	Line     int
	InDiff   bool
	Offenses []Offense
}

func (g *Group) Marker() string {
	return LineMarker(g.Path, g.Line)
}

// Body renders the comment text for the group. Bodies are compared verbatim
// during reconciliation, so the rendering must be byte-identical across runs
// for identical input; offenses keep their report order.
func (g *Group) Body() string {
	var b strings.Builder
	b.WriteString(markerComment(g.Marker()))
	b.WriteString("\n")
	for i, offense := range g.Offenses {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(offense.render())
	}
	b.WriteString("\n")
	return b.String()
}

func LineMarker(path string, line int) string {
	return fmt.Sprintf("%s-%d", path, line)
}

func markerComment(marker string) string {
	return markerOpen + marker + markerClose
}

// Marker extracts the marker token embedded in a comment body. The marker is
// the sole identity used for matching comments across runs.
func Marker(body string) (string, bool) {
	start := strings.Index(body, markerOpen)
	if start == -1 {
		return "", false
	}
	rest := body[start+len(markerOpen):]
	end := strings.Index(rest, markerClose)
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}

// BuildGroups turns a rubocop report into offense groups keyed by
// (path, line), tagged with diff membership. Group order follows the
// report's own emission order, first per file then per line within a file.
func BuildGroups(report *rubocop.Report, files diff.FileSet) []*Group {
	groups := make([]*Group, 0)
	index := make(map[string]*Group)
	for _, file := range report.Files {
		for _, offense := range file.Offenses {
			o := Offense{
				Path:        file.Path,
				Line:        offense.Location.Line,
				Cop:         offense.CopName,
				Message:     offense.Message,
				Correctable: offense.Correctable,
			}
			key := LineMarker(o.Path, o.Line)
			group, ok := index[key]
			if !ok {
				group = &Group{
					Path:   o.Path,
					Line:   o.Line,
					InDiff: files.InDiff(o.Path, o.Line),
				}
				index[key] = group
				groups = append(groups, group)
			}
			group.Offenses = append(group.Offenses, o)
		}
	}
	return groups
}

// Split separates the groups eligible for line comments from the offenses
// that have to be folded into the aggregate comment.
func Split(groups []*Group) (inDiff []*Group, outside []Offense) {
	inDiff = make([]*Group, 0, len(groups))
	outside = make([]Offense, 0)
	for _, group := range groups {
		if group.InDiff {
			inDiff = append(inDiff, group)
		} else {
			outside = append(outside, group.Offenses...)
		}
	}
	return inDiff, outside
}

// AggregateBody renders the single outside-diff comment for the given
// offenses, in their report order.
func AggregateBody(offenses []Offense) string {
	var b strings.Builder
	b.WriteString(markerComment(AggregateMarker))
	b.WriteString("\n")
	b.WriteString(aggregatePreamble)
	for _, offense := range offenses {
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("**%s:%d**\n%s", offense.Path, offense.Line, offense.render()))
	}
	b.WriteString("\n")
	return b.String()
}
