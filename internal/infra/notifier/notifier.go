// Package notifier delivers publish notifications to Slack incoming webhooks.
//
// It contains the Block Kit message formatter, the shared text truncation
// helper, the per-destination rate limiter and the delivery engine that POSTs
// messages with bounded retries. Every POST, first attempt or retry, passes
// through the limiter gate before it is sent.
package notifier
