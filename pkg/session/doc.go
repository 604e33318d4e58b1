// Package session owns the process-wide session state.
//
// A Controller is the single writer of the current identity. Every login,
// logout and reconciliation runs on one FIFO queue, one at a time, in the
// order it was submitted, so concurrent submissions can never interleave
// their reads and writes of the record store. Readers see the last
// published State without blocking, and WaitForAuth blocks until the
// first provider notification has been reconciled.
//
// Identity changes are re-published on a stream; each subscriber first
// receives the state current at subscription time.
package session
