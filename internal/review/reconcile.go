package review

import "fmt"

// Comment is the projection of a remote comment that reconciliation needs.
// The same shape serves both populations (review comments and issue
// comments); Path and Line are zero for the latter.
type Comment struct {
	ID   int64
	Path string
	Line int
	Body string
}

// Desired is one comment the remote system should end up with.
type Desired struct {
	Marker string
	Path   string
	Line   int
	Body   string
}

type IntentOp int

const (
	Noop IntentOp = iota
	Create
	Update
	Delete
)

func (op IntentOp) String() string {
	switch op {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "noop"
	}
}

// Intent is one operation needed to move remote comment state towards the
// desired state. Produced only by Reconcile, consumed exactly once.
type Intent struct {
	Op        IntentOp
	Marker    string
	Path      string
	Line      int
	Body      string
	CommentID int64
}

func (in Intent) String() string {
	return fmt.Sprintf("%s %s", in.Op, in.Marker)
}

// DesiredLineComments builds the desired per-line comment state from the
// in-diff offense groups, preserving group order.
func DesiredLineComments(groups []*Group) []Desired {
	desired := make([]Desired, 0, len(groups))
	for _, group := range groups {
		desired = append(desired, Desired{
			Marker: group.Marker(),
			Path:   group.Path,
			Line:   group.Line,
			Body:   group.Body(),
		})
	}
	return desired
}

// DesiredAggregate builds the desired aggregate comment state: one comment
// when any offense sits outside the diff, none otherwise.
func DesiredAggregate(offenses []Offense) []Desired {
	if len(offenses) == 0 {
		return nil
	}
	return []Desired{{Marker: AggregateMarker, Body: AggregateBody(offenses)}}
}

// Reconcile diffs desired comment state against the current remote comments
// and returns the intents needed to converge. Comments without a marker are
// ignored (they belong to humans). A marker present in both sides with an
// identical body yields a Noop, so running Reconcile twice against the same
// inputs produces no effectful intent the second time.
//
// Intent order is deterministic: actual-order deletes/updates/noops first,
// then desired-order creates. At most one intent is emitted per marker; a
// duplicate comment carrying an already-matched marker is left untouched.
func Reconcile(desired []Desired, actual []Comment) []Intent {
	desiredByMarker := make(map[string]Desired, len(desired))
	for _, d := range desired {
		desiredByMarker[d.Marker] = d
	}

	intents := make([]Intent, 0, len(desired)+len(actual))
	matched := make(map[string]bool, len(actual))
	for _, comment := range actual {
		marker, ok := Marker(comment.Body)
		if !ok {
			continue
		}
		if matched[marker] {
			continue
		}
		matched[marker] = true
		d, wanted := desiredByMarker[marker]
		switch {
		case !wanted:
			intents = append(intents, Intent{Op: Delete, Marker: marker, CommentID: comment.ID})
		case d.Body == comment.Body:
			intents = append(intents, Intent{Op: Noop, Marker: marker, CommentID: comment.ID})
		default:
			intents = append(intents, Intent{Op: Update, Marker: marker, Body: d.Body, CommentID: comment.ID})
		}
	}

	for _, d := range desired {
		if matched[d.Marker] {
			continue
		}
		intents = append(intents, Intent{
			Op:     Create,
			Marker: d.Marker,
			Path:   d.Path,
			Line:   d.Line,
			Body:   d.Body,
		})
	}
	return intents
}
