package config

import "time"

// StrictInvoiceTransitions enforces the invoice status transition table on
// UpdateInvoiceStatus. Off by default: any known status may be set directly.
//
// Set via env:
// - STRICT_INVOICE_TRANSITIONS=true
func StrictInvoiceTransitions() bool {
	return boolFromEnv("STRICT_INVOICE_TRANSITIONS")
}

// SkipMigrations disables AutoMigrate on startup (run it as a separate job instead).
func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS")
}

// LockTTL bounds how long a keyed lock may be held.
//
// Set via env:
// - LOCK_TTL_SECONDS (default 30)
func LockTTL() time.Duration {
	n := intFromEnv("LOCK_TTL_SECONDS", 30)
	if n <= 0 {
		n = 30
	}
	return time.Duration(n) * time.Second
}
