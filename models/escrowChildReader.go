package models

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mmdatafocus/brokerage_backend/config"
	"gorm.io/gorm"
)

// RawRow is one child-table row as the driver returned it, keyed by column.
type RawRow map[string]any

// EscrowKey carries both identifiers of an escrow; child tables are keyed
// by one or the other depending on their schema generation.
type EscrowKey struct {
	DisplayId string
	NumericId int
}

type ChildKeyScheme string

const (
	ChildKeyDisplayId ChildKeyScheme = "escrow_display_id"
	ChildKeyNumericId ChildKeyScheme = "escrow_id"
)

const (
	tablePeople     = "escrow_people"
	tableChecklists = "escrow_checklists"
	tableTimeline   = "escrow_timeline"
	tableFinancials = "escrow_financials"
	tableDocuments  = "escrow_documents"
)

// EscrowChildReader reads the child collections that exist under both key
// schemes. Errors (missing table, missing column) are returned as is; the
// prober decides what to do with them.
type EscrowChildReader interface {
	Scheme() ChildKeyScheme
	Timeline(ctx context.Context, key EscrowKey) ([]RawRow, error)
	Financials(ctx context.Context, key EscrowKey) ([]RawRow, error)
	Documents(ctx context.Context, key EscrowKey) ([]RawRow, error)
}

// displayKeyedReader reads the current schema, where every child table has
// escrow_display_id. People and the checklist only exist in this generation.
type displayKeyedReader struct {
	db *gorm.DB
}

func newDisplayKeyedReader(db *gorm.DB) *displayKeyedReader {
	return &displayKeyedReader{db: db}
}

func (r *displayKeyedReader) Scheme() ChildKeyScheme { return ChildKeyDisplayId }

func (r *displayKeyedReader) People(ctx context.Context, key EscrowKey) ([]RawRow, error) {
	return queryRows(ctx, r.db, tablePeople, ChildKeyDisplayId, key.DisplayId, "person_type, name")
}

func (r *displayKeyedReader) Checklist(ctx context.Context, key EscrowKey) (ChecklistItems, error) {
	var checklist EscrowChecklist
	err := r.db.WithContext(ctx).Select("id", "escrow_display_id", "checklist_items").
		Where("escrow_display_id = ?", key.DisplayId).First(&checklist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ChecklistItems{}, nil
	}
	if err != nil {
		return nil, err
	}
	if checklist.ChecklistItems == nil {
		return ChecklistItems{}, nil
	}
	return checklist.ChecklistItems, nil
}

func (r *displayKeyedReader) Timeline(ctx context.Context, key EscrowKey) ([]RawRow, error) {
	return queryRows(ctx, r.db, tableTimeline, ChildKeyDisplayId, key.DisplayId, "order_index, id")
}

func (r *displayKeyedReader) Financials(ctx context.Context, key EscrowKey) ([]RawRow, error) {
	return queryRows(ctx, r.db, tableFinancials, ChildKeyDisplayId, key.DisplayId, "order_index, id")
}

func (r *displayKeyedReader) Documents(ctx context.Context, key EscrowKey) ([]RawRow, error) {
	return queryRows(ctx, r.db, tableDocuments, ChildKeyDisplayId, key.DisplayId, "order_index, id")
}

// numericKeyedReader reads the legacy schema keyed by escrows.numeric_id.
type numericKeyedReader struct {
	db *gorm.DB
}

func newNumericKeyedReader(db *gorm.DB) *numericKeyedReader {
	return &numericKeyedReader{db: db}
}

func (r *numericKeyedReader) Scheme() ChildKeyScheme { return ChildKeyNumericId }

func (r *numericKeyedReader) Timeline(ctx context.Context, key EscrowKey) ([]RawRow, error) {
	return queryRows(ctx, r.db, tableTimeline, ChildKeyNumericId, key.NumericId, "event_date")
}

func (r *numericKeyedReader) Financials(ctx context.Context, key EscrowKey) ([]RawRow, error) {
	return queryRows(ctx, r.db, tableFinancials, ChildKeyNumericId, key.NumericId, "category")
}

func (r *numericKeyedReader) Documents(ctx context.Context, key EscrowKey) ([]RawRow, error) {
	return queryRows(ctx, r.db, tableDocuments, ChildKeyNumericId, key.NumericId, "document_type")
}

func queryRows(ctx context.Context, db *gorm.DB, table string, keyColumn ChildKeyScheme, keyValue any, order string) ([]RawRow, error) {
	var rows []map[string]any
	err := db.WithContext(ctx).Table(table).
		Where(fmt.Sprintf("%s = ?", keyColumn), keyValue).
		Order(order).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, RawRow(row))
	}
	return result, nil
}

// EscrowChildren holds every child collection of one escrow. Slices are
// never nil.
type EscrowChildren struct {
	People     []RawRow
	Checklist  ChecklistItems
	Timeline   []RawRow
	Financials []RawRow
	Documents  []RawRow
}

// probeEscrowChildren reads the current schema first. When it has neither
// people nor timeline rows and legacyFallback is set, timeline, financials
// and documents are also read from the legacy schema, each independently.
// A failed read is logged and treated as zero rows.
func probeEscrowChildren(ctx context.Context, current *displayKeyedReader, legacy EscrowChildReader, key EscrowKey, legacyFallback bool) EscrowChildren {
	children := EscrowChildren{
		People:     bestEffortRows(key, current.Scheme(), tablePeople, func() ([]RawRow, error) { return current.People(ctx, key) }),
		Timeline:   bestEffortRows(key, current.Scheme(), tableTimeline, func() ([]RawRow, error) { return current.Timeline(ctx, key) }),
		Financials: bestEffortRows(key, current.Scheme(), tableFinancials, func() ([]RawRow, error) { return current.Financials(ctx, key) }),
		Documents:  bestEffortRows(key, current.Scheme(), tableDocuments, func() ([]RawRow, error) { return current.Documents(ctx, key) }),
	}

	checklist, err := current.Checklist(ctx, key)
	if err != nil {
		logChildReadFailure(key, current.Scheme(), tableChecklists, err)
		checklist = ChecklistItems{}
	}
	children.Checklist = checklist

	if !legacyFallback || legacy == nil || len(children.People) > 0 || len(children.Timeline) > 0 {
		return children
	}

	var wg sync.WaitGroup
	fallback := func(table string, dst *[]RawRow, read func(context.Context, EscrowKey) ([]RawRow, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows := bestEffortRows(key, legacy.Scheme(), table, func() ([]RawRow, error) { return read(ctx, key) })
			if len(*dst) == 0 {
				*dst = rows
			}
		}()
	}
	fallback(tableTimeline, &children.Timeline, legacy.Timeline)
	fallback(tableFinancials, &children.Financials, legacy.Financials)
	fallback(tableDocuments, &children.Documents, legacy.Documents)
	wg.Wait()

	return children
}

func bestEffortRows(key EscrowKey, scheme ChildKeyScheme, table string, read func() ([]RawRow, error)) []RawRow {
	rows, err := read()
	if err != nil {
		logChildReadFailure(key, scheme, table, err)
		return []RawRow{}
	}
	if rows == nil {
		return []RawRow{}
	}
	return rows
}

func logChildReadFailure(key EscrowKey, scheme ChildKeyScheme, table string, err error) {
	config.LogWarn(config.GetLogger(), "EscrowChildReader", "probeEscrowChildren",
		fmt.Sprintf("%s (%s) query failed", table, scheme),
		map[string]any{"display_id": key.DisplayId, "numeric_id": key.NumericId}, err)
}

// ChildSchemaReport describes how one child table is keyed in the connected
// database.
type ChildSchemaReport struct {
	Table        string `json:"table"`
	Exists       bool   `json:"exists"`
	DisplayKeyed bool   `json:"displayKeyed"`
	NumericKeyed bool   `json:"numericKeyed"`
}

func (r ChildSchemaReport) Generation() string {
	switch {
	case !r.Exists:
		return "missing"
	case r.DisplayKeyed && r.NumericKeyed:
		return "mixed"
	case r.DisplayKeyed:
		return "current"
	case r.NumericKeyed:
		return "legacy"
	}
	return "unkeyed"
}

// DetectChildSchema inspects every escrow child table. Once no table reports
// "legacy" or "mixed", LEGACY_SCHEMA_FALLBACK can be turned off.
func DetectChildSchema(ctx context.Context, db *gorm.DB) []ChildSchemaReport {
	migrator := db.WithContext(ctx).Migrator()
	tables := []string{tablePeople, tableChecklists, tableTimeline, tableFinancials, tableDocuments}
	reports := make([]ChildSchemaReport, 0, len(tables))
	for _, table := range tables {
		report := ChildSchemaReport{Table: table, Exists: migrator.HasTable(table)}
		if report.Exists {
			report.DisplayKeyed = migrator.HasColumn(table, string(ChildKeyDisplayId))
			report.NumericKeyed = migrator.HasColumn(table, string(ChildKeyNumericId))
		}
		reports = append(reports, report)
	}
	return reports
}
