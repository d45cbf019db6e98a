// Package flow drives the sell-a-car workflow: five steps from location to
// publish, backed by the draft container and the marketplace client.
package flow

import (
	"fmt"
	"io"
)

// Notifier receives user-facing progress and status messages from the
// steps. The CLI prints them; tests capture them.
type Notifier interface {
	Notify(text string)
}

// ConsoleNotifier writes messages to w, one per line.
type ConsoleNotifier struct {
	w io.Writer
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (c *ConsoleNotifier) Notify(text string) {
	fmt.Fprintln(c.w, text)
}
