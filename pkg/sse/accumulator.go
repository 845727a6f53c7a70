package sse

import "strings"

// Accumulator collects the fragments and latest thread id of a stream.
// The zero value is ready to use.
type Accumulator struct {
	text      strings.Builder
	threadID  string
	fragments int
}

// Add folds ev into the accumulated state. Events without a fragment or a
// thread id are ignored.
func (a *Accumulator) Add(ev Event) {
	if ev.HasFragment {
		a.text.WriteString(ev.Fragment)
		a.fragments++
	}
	if ev.ThreadID != "" {
		a.threadID = ev.ThreadID
	}
}

// Text returns the concatenation of every fragment added so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// ThreadID returns the most recent thread id seen, or "".
func (a *Accumulator) ThreadID() string {
	return a.threadID
}

// Fragments returns how many fragments were added.
func (a *Accumulator) Fragments() int {
	return a.fragments
}
