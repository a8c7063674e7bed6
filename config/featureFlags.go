package config

import (
	"os"
	"strings"
)

// IsProduction reports GO_ENV=production. Error details are hidden from API
// responses in production.
func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

// LegacySchemaFallback enables the numeric-id keyed probe of escrow child tables
// (escrow_timeline / escrow_financials / escrow_documents keyed by escrow_id).
// Turn it off once every child row has been backfilled with escrow_display_id.
//
// Set via env (default on):
// - LEGACY_SCHEMA_FALLBACK=false
func LegacySchemaFallback() bool {
	return !isFalse(os.Getenv("LEGACY_SCHEMA_FALLBACK"))
}

// ChecklistSeedBestEffort makes default checklist seeding tolerant: a failed
// checklist insert is rolled back to a savepoint and logged, and the escrow
// still commits. By default seeding is atomic with the escrow insert.
//
// Set via env:
// - CHECKLIST_SEED_BEST_EFFORT=true
func ChecklistSeedBestEffort() bool {
	return isTrue(os.Getenv("CHECKLIST_SEED_BEST_EFFORT"))
}

func isTrue(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func isFalse(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "0" || v == "false" || v == "no" || v == "n"
}
