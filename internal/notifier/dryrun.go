package notifier

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pfrederiksen/actionfeed/internal/event"
)

// DryRunNotifier prints what would be posted without actually posting
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a dry-run notifier writing to out
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	return &DryRunNotifier{out: out}
}

// Notify prints the posts that would be published
func (n *DryRunNotifier) Notify(records []event.Record) error {
	for i, r := range records {
		post := FormatPost(r)
		if _, err := fmt.Fprintf(n.out, "--- Post %d/%d ---\n%s\n\n(Length: %d characters)\n\n",
			i+1, len(records), post, utf8.RuneCountInString(post)); err != nil {
			return err
		}
	}
	return nil
}
