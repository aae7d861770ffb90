package review

import (
	"strings"
	"testing"

	"github.com/reclaim-the-stack/rubocop-action/internal/diff"
	"github.com/reclaim-the-stack/rubocop-action/internal/rubocop"
)

func changedFile(t *testing.T, path, patch string) *diff.ChangedFile {
	t.Helper()
	file, err := diff.NewChangedFile(path, patch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return file
}

func TestGroupBody(t *testing.T) {
	group := &Group{
		Path: "app/foo.rb",
		Line: 10,
		Offenses: []Offense{
			{Path: "app/foo.rb", Line: 10, Cop: "Layout/TrailingWhitespace", Message: "trailing whitespace"},
		},
	}

	expected := "<!-- rubocop-comment-id: app/foo.rb-10 -->\nLayout/TrailingWhitespace: trailing whitespace\n"
	if body := group.Body(); body != expected {
		t.Errorf("expected body %q, got %q", expected, body)
	}
	if marker := group.Marker(); marker != "app/foo.rb-10" {
		t.Errorf("expected marker app/foo.rb-10, got %s", marker)
	}
}

func TestGroupBodyMultipleOffenses(t *testing.T) {
	group := &Group{
		Path: "app/foo.rb",
		Line: 3,
		Offenses: []Offense{
			{Cop: "Style/Semicolon", Message: "Do not use semicolons to terminate expressions."},
			{Cop: "Layout/LineLength", Message: "Line is too long. [125/120]", Correctable: true},
		},
	}

	expected := "<!-- rubocop-comment-id: app/foo.rb-3 -->\n" +
		"Style/Semicolon: Do not use semicolons to terminate expressions.\n" +
		"[Correctable] Layout/LineLength: Line is too long. [125/120]\n"
	if body := group.Body(); body != expected {
		t.Errorf("expected body %q, got %q", expected, body)
	}
}

func TestGroupBodyDeterministic(t *testing.T) {
	group := &Group{
		Path: "lib/a.rb",
		Line: 7,
		Offenses: []Offense{
			{Cop: "Metrics/MethodLength", Message: "Method has too many lines."},
			{Cop: "Style/GuardClause", Message: "Use a guard clause."},
		},
	}
	if group.Body() != group.Body() {
		t.Error("rendering the same group twice must be byte-identical")
	}
}

func TestMarker(t *testing.T) {
	tt := []struct {
		name     string
		body     string
		expected string
		found    bool
	}{
		{"line comment marker", "<!-- rubocop-comment-id: app/foo.rb-10 -->\nsome text\n", "app/foo.rb-10", true},
		{"aggregate marker", "<!-- rubocop-comment-id: outside-diff -->\nsome text\n", "outside-diff", true},
		{"marker not at start", "preamble\n<!-- rubocop-comment-id: a.rb-1 -->\n", "a.rb-1", true},
		{"human comment", "LGTM, nice work", "", false},
		{"unterminated marker", "<!-- rubocop-comment-id: a.rb-1", "", false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			marker, found := Marker(tc.body)
			if found != tc.found {
				t.Fatalf("expected found=%v, got %v", tc.found, found)
			}
			if marker != tc.expected {
				t.Errorf("expected marker %q, got %q", tc.expected, marker)
			}
		})
	}
}

func TestBuildGroups(t *testing.T) {
	report := &rubocop.Report{
		Files: []rubocop.FileReport{
			{
				Path: "app/foo.rb",
				Offenses: []rubocop.Offense{
					{CopName: "Style/Semicolon", Message: "no semicolons", Location: rubocop.Location{Line: 2}},
					{CopName: "Layout/LineLength", Message: "too long", Location: rubocop.Location{Line: 90}},
					{CopName: "Lint/Void", Message: "void expression", Location: rubocop.Location{Line: 2}},
				},
			},
			{
				Path: "lib/bar.rb",
				Offenses: []rubocop.Offense{
					{CopName: "Style/Next", Message: "use next", Location: rubocop.Location{Line: 5}},
				},
			},
		},
	}
	files := diff.FileSet{
		"app/foo.rb": changedFile(t, "app/foo.rb", "@@ -1,2 +1,3 @@\n one\n+two\n three"),
	}

	groups := BuildGroups(report, files)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	// offenses sharing (path, line) collapse into one group, in report order
	first := groups[0]
	if first.Marker() != "app/foo.rb-2" {
		t.Errorf("expected first group app/foo.rb-2, got %s", first.Marker())
	}
	if len(first.Offenses) != 2 {
		t.Errorf("expected 2 offenses in first group, got %d", len(first.Offenses))
	}
	if !first.InDiff {
		t.Error("line 2 of app/foo.rb is in the diff")
	}
	if first.Offenses[0].Cop != "Style/Semicolon" || first.Offenses[1].Cop != "Lint/Void" {
		t.Errorf("offense order not preserved: %+v", first.Offenses)
	}

	if groups[1].Marker() != "app/foo.rb-90" || groups[1].InDiff {
		t.Errorf("expected app/foo.rb-90 out of diff, got %s in_diff=%v", groups[1].Marker(), groups[1].InDiff)
	}

	// lib/bar.rb is not in the changed-file set at all
	if groups[2].Marker() != "lib/bar.rb-5" || groups[2].InDiff {
		t.Errorf("expected lib/bar.rb-5 out of diff, got %s in_diff=%v", groups[2].Marker(), groups[2].InDiff)
	}
}

func TestBuildGroupsEmptyReport(t *testing.T) {
	groups := BuildGroups(&rubocop.Report{}, diff.FileSet{})
	if len(groups) != 0 {
		t.Errorf("expected no groups, got %d", len(groups))
	}
}

func TestSplit(t *testing.T) {
	groups := []*Group{
		{Path: "a.rb", Line: 1, InDiff: true, Offenses: []Offense{{Cop: "A"}}},
		{Path: "a.rb", Line: 9, InDiff: false, Offenses: []Offense{{Cop: "B"}, {Cop: "C"}}},
		{Path: "b.rb", Line: 2, InDiff: false, Offenses: []Offense{{Cop: "D"}}},
	}

	inDiff, outside := Split(groups)
	if len(inDiff) != 1 || inDiff[0].Path != "a.rb" || inDiff[0].Line != 1 {
		t.Errorf("unexpected in-diff groups: %+v", inDiff)
	}
	if len(outside) != 3 {
		t.Fatalf("expected 3 outside offenses, got %d", len(outside))
	}
	if outside[0].Cop != "B" || outside[1].Cop != "C" || outside[2].Cop != "D" {
		t.Errorf("outside offense order not preserved: %+v", outside)
	}
}

func TestAggregateBody(t *testing.T) {
	offenses := []Offense{
		{Path: "a.rb", Line: 9, Cop: "Style/Next", Message: "use next"},
		{Path: "b.rb", Line: 2, Cop: "Layout/LineLength", Message: "too long", Correctable: true},
	}

	body := AggregateBody(offenses)
	if !strings.HasPrefix(body, "<!-- rubocop-comment-id: outside-diff -->\n") {
		t.Errorf("aggregate body must start with its marker, got %q", body)
	}
	if !strings.Contains(body, "**a.rb:9**\nStyle/Next: use next") {
		t.Errorf("missing first entry in %q", body)
	}
	if !strings.Contains(body, "**b.rb:2**\n[Correctable] Layout/LineLength: too long") {
		t.Errorf("missing second entry in %q", body)
	}
	marker, found := Marker(body)
	if !found || marker != AggregateMarker {
		t.Errorf("expected aggregate marker, got %q found=%v", marker, found)
	}
	if body != AggregateBody(offenses) {
		t.Error("aggregate rendering must be byte-identical across runs")
	}
}
