package models

import (
	"context"

	"github.com/mmdatafocus/brokerage_backend/config"
)

// MigrateTable creates or updates the current-generation tables. A child
// table that already exists in its legacy numeric-keyed form is left alone;
// it stays readable through the legacy fallback.
func MigrateTable(ctx context.Context) error {
	db := config.GetDB().WithContext(ctx)

	if err := db.AutoMigrate(&Escrow{}, &EscrowSequence{}, &EscrowChecklist{}, &EscrowPerson{}, &IdempotencyKey{}); err != nil {
		return err
	}

	migrator := db.Migrator()
	for _, model := range []interface{ TableName() string }{
		&EscrowTimelineEvent{}, &EscrowFinancialItem{}, &EscrowDocument{},
	} {
		table := model.TableName()
		if migrator.HasTable(table) && !migrator.HasColumn(table, string(ChildKeyDisplayId)) {
			config.LogWarn(config.GetLogger(), "Migration", "MigrateTable", "skipping legacy table", table, nil)
			continue
		}
		if err := db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}
