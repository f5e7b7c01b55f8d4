package cli

import (
	"fmt"
	"io"
	"os"

	"funnelflow/internal/service"
)

// Notifier prints styled toast-like notices to the terminal.
type Notifier struct {
	out io.Writer
}

// NewNotifier creates a notifier writing to stdout.
func NewNotifier() *Notifier {
	return &Notifier{out: os.Stdout}
}

// NewNotifierTo creates a notifier writing to the given writer; tests use
// this to capture output.
func NewNotifierTo(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

// Notify renders one notice. Fire and forget: write errors are swallowed
// because the core never consumes a result from its notifier.
func (n *Notifier) Notify(kind service.NoticeKind, message string) {
	var line string
	switch kind {
	case service.NoticeSuccess:
		line = FormatSuccess(message)
	case service.NoticeError:
		line = FormatError(message)
	default:
		line = FormatInfo(message)
	}
	_, _ = fmt.Fprintln(n.out, line)
}
