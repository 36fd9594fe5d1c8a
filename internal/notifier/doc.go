// Package notifier announces newly consolidated event records.
//
// TwitterNotifier posts one tweet per record using OAuth1 credentials from the
// environment and pauses between posts. TelegramNotifier sends HTML messages
// through the Bot API. DryRunNotifier prints the posts to a writer instead.
package notifier
