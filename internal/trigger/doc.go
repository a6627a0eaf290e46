// Package trigger provides the recurring-callback abstraction driving batch
// ticks.
//
// The batch processor only needs "register a recurring callback" and "cancel
// it" semantics; Ticker implements them with a goroutine and time.Ticker for
// the daemon, while Manual lets tests and one-shot CLI commands fire ticks
// synchronously.
package trigger
