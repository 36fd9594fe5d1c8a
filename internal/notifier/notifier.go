package notifier

import (
	"github.com/pfrederiksen/actionfeed/internal/event"
)

// Notifier defines the interface for announcing newly consolidated records
type Notifier interface {
	// Notify posts one announcement per record
	Notify(records []event.Record) error
}
