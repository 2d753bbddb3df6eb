// Package notification implements the registrant-facing email operations:
// welcome, status update, custom message, bulk message, payment
// instructions and contract delivery.
//
// Each operation looks the registration up, derives the parameters for its
// template and hands the message to a mailing.Deliverer. Lookup failures are
// returned as errors; delivery failures only ever show up as an unsuccessful
// Outcome.
package notification
