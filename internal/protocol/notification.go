// Package protocol defines the plain-text wire protocol spoken between the
// server and display devices over their persistent channel.
package protocol

import "strings"

// NewContentPrefix is the literal that tags a content notification line.
const NewContentPrefix = "NEW_CONTENT:"

// Kind discriminates the notification variants.
type Kind int

const (
	// KindUnknown covers every inbound line that is not a recognised
	// notification. Unknown lines are logged and otherwise ignored.
	KindUnknown Kind = iota
	// KindNewContent announces a freshly uploaded file by name.
	KindNewContent
)

// Notification is one parsed inbound protocol line.
//
// A NEW_CONTENT line with an empty remainder parses to a NewContent
// notification with an empty Filename; consumers reject that degenerate
// value at the boundary rather than silently acting on it.
type Notification struct {
	Kind     Kind
	Filename string // set for KindNewContent
	Raw      string // original line, set for KindUnknown
}

// Parse classifies one inbound protocol line.
func Parse(raw string) Notification {
	if rest, ok := strings.CutPrefix(raw, NewContentPrefix); ok {
		return Notification{
			Kind:     KindNewContent,
			Filename: strings.TrimSpace(rest),
		}
	}
	return Notification{Kind: KindUnknown, Raw: raw}
}

// FormatNewContent renders the wire line announcing filename.
func FormatNewContent(filename string) string {
	return NewContentPrefix + filename
}
