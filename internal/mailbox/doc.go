// Package mailbox turns mail messages into event records.
//
// A Poller reads the unseen messages of a Mailbox, runs them through the
// scraper with the mail Adapter, saves the batch as one snapshot and marks the
// messages seen. It cycles through idle, polling and sleeping until stopped.
// IMAPMailbox is the IMAP implementation of Mailbox.
package mailbox
