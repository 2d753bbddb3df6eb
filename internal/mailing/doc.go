// Package mailing renders and delivers the transactional emails sent to
// camp registrants.
//
// A single Provider (SMTP session, Gmail API, Resend, Web3Forms or SES) is
// chosen once at startup by NewProvider and injected into a Deliverer. The
// Deliverer renders the message with the Liquid Renderer, sends it with
// bounded retries, recycles the provider session after transport failures
// and reports a plain boolean verdict. It never returns an error and never
// panics.
package mailing
