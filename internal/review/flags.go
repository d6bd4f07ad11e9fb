// Package review is the collaborator surface over the accepted jobs table:
// read access newest first, and point mutation of the workflow fields.
//
// Actions:
//
//	hide       hidden = 1
//	apply      applied = 1
//	interview  interview = 1
//	reject     rejected = 1
//	star       starred toggled
//	notes      notes replaced
//	resume     tailored_resume replaced
//
// Content fields written by the discovery run are never touched here.
package review

import "fmt"

// Action is the last path segment of POST /jobs/{id}/{action}.
type Action string

const (
	ActionHide      Action = "hide"
	ActionApply     Action = "apply"
	ActionInterview Action = "interview"
	ActionReject    Action = "reject"
	ActionStar      Action = "star"
	ActionNotes     Action = "notes"
	ActionResume    Action = "resume"
)

// Flag is a boolean workflow column.
type Flag string

const (
	FlagHidden    Flag = "hidden"
	FlagApplied   Flag = "applied"
	FlagInterview Flag = "interview"
	FlagRejected  Flag = "rejected"
	FlagStarred   Flag = "starred"
)

// actionFlags maps the set-style actions to the flag they raise.
var actionFlags = map[Action]Flag{
	ActionHide:      FlagHidden,
	ActionApply:     FlagApplied,
	ActionInterview: FlagInterview,
	ActionReject:    FlagRejected,
}

// ParseAction converts a raw path segment to an Action. Matching is exact.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	switch a {
	case ActionHide, ActionApply, ActionInterview, ActionReject, ActionStar, ActionNotes, ActionResume:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// ParseFlag converts a column name to a Flag.
func ParseFlag(s string) (Flag, error) {
	f := Flag(s)
	switch f {
	case FlagHidden, FlagApplied, FlagInterview, FlagRejected, FlagStarred:
		return f, nil
	}
	return "", fmt.Errorf("unknown flag %q", s)
}

// FlagFor returns the flag a set-style action raises.
func FlagFor(a Action) (Flag, bool) {
	f, ok := actionFlags[a]
	return f, ok
}

// IsTextAction reports whether a replaces a free-text field.
func IsTextAction(a Action) bool { return a == ActionNotes || a == ActionResume }
