package mailbox

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Message is one mail message as stored on the server.
type Message struct {
	UID uint32
	Raw []byte
}

// Mailbox is a folder of messages that can be consumed.
type Mailbox interface {
	// Locator identifies the folder, e.g. imap://host/INBOX.
	Locator() string
	// Unseen returns the messages not yet consumed, oldest first.
	Unseen(ctx context.Context) ([]Message, error)
	// MarkSeen flags the messages as consumed.
	MarkSeen(ctx context.Context, uids []uint32) error
}

// ReferenceID returns the reference ID of message uid in the folder at
// locator, in the IMAP URL form of RFC 5092.
func ReferenceID(locator string, uid uint32) string {
	return fmt.Sprintf("%s;UID=%d", locator, uid)
}

// ParseUID extracts the UID from a reference ID built by ReferenceID.
func ParseUID(id string) (uint32, bool) {
	i := strings.LastIndex(id, ";UID=")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(id[i+len(";UID="):], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
