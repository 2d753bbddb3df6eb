// Package registration implements the camp enrollment ("inscrição") service.
//
// It validates submissions, applies status changes, computes the dashboard
// counters and produces the spreadsheet export. Persistence goes through the
// Repository interface in repository.go; the Postgres implementation lives
// in internal/repository/postgres.
package registration
