package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// ChecklistItem is one entry of the JSON list stored in
// escrow_checklists.checklist_items.
type ChecklistItem struct {
	Key             string         `json:"key"`
	Phase           ChecklistPhase `json:"phase"`
	TaskName        string         `json:"task_name"`
	TaskDescription string         `json:"task_description"`
	IsCompleted     bool           `json:"is_completed"`
	DueDays         int            `json:"due_days"`
	DueDate         string         `json:"due_date,omitempty"`
	CompletedDate   *time.Time     `json:"completed_date"`
	Order           int            `json:"order"`
	Note            string         `json:"note,omitempty"`
	UpdatedAt       *time.Time     `json:"updated_at,omitempty"`
}

// UnmarshalJSON decodes field by field. A field with an unexpected shape is
// left at its zero value; only a malformed object fails.
func (i *ChecklistItem) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*i = ChecklistItem{}
	decodeChecklistField(fields, "key", &i.Key)
	decodeChecklistField(fields, "phase", &i.Phase)
	decodeChecklistField(fields, "task_name", &i.TaskName)
	decodeChecklistField(fields, "task_description", &i.TaskDescription)
	decodeChecklistField(fields, "is_completed", &i.IsCompleted)
	decodeChecklistField(fields, "due_days", &i.DueDays)
	decodeChecklistField(fields, "order", &i.Order)
	decodeChecklistField(fields, "note", &i.Note)
	if raw, ok := fields["due_date"]; ok {
		if t, ok := checklistTime(raw); ok {
			i.DueDate = utils.DateOnly(t).Format(utils.DateLayout)
		}
	}
	if raw, ok := fields["completed_date"]; ok {
		if t, ok := checklistTime(raw); ok {
			i.CompletedDate = &t
		}
	}
	if raw, ok := fields["updated_at"]; ok {
		if t, ok := checklistTime(raw); ok {
			i.UpdatedAt = &t
		}
	}
	return nil
}

func decodeChecklistField(fields map[string]json.RawMessage, name string, dst any) {
	raw, ok := fields[name]
	if !ok {
		return
	}
	// dst keeps its zero value on a type mismatch
	_ = json.Unmarshal(raw, dst)
}

// checklistTime reads RFC 3339 timestamps and "2006-01-02" dates.
func checklistTime(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	return utils.ParseDate(s)
}

type ChecklistItems []ChecklistItem

// Value implements the driver.Valuer interface
func (c ChecklistItems) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (c *ChecklistItems) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*c = ChecklistItems{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot convert %T to ChecklistItems", value)
	}
	if len(raw) == 0 {
		*c = ChecklistItems{}
		return nil
	}
	var items ChecklistItems
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	if items == nil {
		items = ChecklistItems{}
	}
	*c = items.withKeys()
	return nil
}

func (ChecklistItems) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	default:
		return "JSON"
	}
}

// withKeys fills in keys for rows written before items carried one.
func (c ChecklistItems) withKeys() ChecklistItems {
	for i := range c {
		if c[i].Key == "" {
			c[i].Key = ChecklistKey(c[i].TaskName)
		}
	}
	return c
}

// indexOf matches an item by key, or by task name ignoring case.
func (c ChecklistItems) indexOf(item string) int {
	item = strings.TrimSpace(item)
	for i := range c {
		if c[i].Key == item {
			return i
		}
	}
	for i := range c {
		if strings.EqualFold(c[i].TaskName, item) {
			return i
		}
	}
	return -1
}

type EscrowChecklist struct {
	ID              int            `gorm:"primary_key" json:"id"`
	EscrowDisplayId string         `gorm:"size:20;not null;uniqueIndex" json:"escrow_display_id"`
	ChecklistItems  ChecklistItems `gorm:"not null" json:"checklist_items"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// ChecklistEntry is the per-item state returned by UpdateChecklist.
type ChecklistEntry struct {
	Completed bool       `json:"completed"`
	Note      string     `json:"note"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

type EscrowChecklistResponse struct {
	EscrowId  int               `json:"escrowId"`
	DisplayId string            `json:"displayId"`
	Items     ChecklistItems    `json:"items"`
	Progress  ChecklistProgress `json:"progress"`
}

func (c ChecklistItems) entries() map[string]ChecklistEntry {
	result := make(map[string]ChecklistEntry, len(c))
	for _, item := range c {
		result[item.Key] = ChecklistEntry{
			Completed: item.IsCompleted,
			Note:      item.Note,
			UpdatedAt: item.UpdatedAt,
		}
	}
	return result
}

func GetChecklist(ctx context.Context, escrowId string) (*EscrowChecklistResponse, error) {
	db := config.GetDB()
	escrow, err := findEscrow(db.WithContext(ctx), escrowId)
	if err != nil {
		return nil, err
	}

	var checklist EscrowChecklist
	err = db.WithContext(ctx).Where("escrow_display_id = ?", escrow.DisplayId).First(&checklist).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	items := checklist.ChecklistItems
	if items == nil {
		items = ChecklistItems{}
	}
	return &EscrowChecklistResponse{
		EscrowId:  escrow.NumericId,
		DisplayId: escrow.DisplayId,
		Items:     items,
		Progress:  checklistProgressFor(escrow.DisplayId, items),
	}, nil
}

// UpdateChecklist sets one item's completion flag and note and returns the
// state of every item keyed by item key.
func UpdateChecklist(ctx context.Context, escrowId string, itemKey string, completed bool, note *string) (map[string]ChecklistEntry, error) {
	ctx, span := tracer.Start(ctx, "UpdateChecklist")
	defer span.End()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	escrow, err := findEscrow(tx, escrowId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var checklist EscrowChecklist
	query := tx.Where("escrow_display_id = ?", escrow.DisplayId)
	if tx.Dialector.Name() != config.DriverSQLite {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(&checklist).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorChecklistItemNotFound
		}
		return nil, err
	}

	idx := checklist.ChecklistItems.indexOf(itemKey)
	if idx < 0 {
		tx.Rollback()
		return nil, utils.ErrorChecklistItemNotFound
	}

	now := timeNow().UTC()
	item := &checklist.ChecklistItems[idx]
	item.IsCompleted = completed
	if note != nil {
		item.Note = *note
	}
	item.UpdatedAt = &now
	if !completed {
		item.CompletedDate = nil
	} else if item.CompletedDate == nil {
		item.CompletedDate = &now
	}

	if err := tx.Model(&checklist).Update("checklist_items", checklist.ChecklistItems).Error; err != nil {
		tx.Rollback()
		config.LogError(config.GetLogger(), "EscrowChecklist", "UpdateChecklist", "saving checklist", escrow.DisplayId, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	publishEscrowEvent(ctx, EscrowEventChecklistUpdated, escrow, map[string]any{
		"item":      item.Key,
		"completed": item.IsCompleted,
		"note":      item.Note,
	})
	return checklist.ChecklistItems.entries(), nil
}

// SeedDefaultChecklist creates the default checklist for an escrow that has
// none. It reports false when a checklist already exists.
func SeedDefaultChecklist(ctx context.Context, escrow *Escrow) (bool, error) {
	today := utils.DateOnly(timeNow())
	acceptance := today
	if escrow.AcceptanceDate != nil {
		acceptance = *escrow.AcceptanceDate
	}
	closing := today.AddDate(0, 0, defaultCloseInDays)
	if escrow.ClosingDate != nil {
		closing = *escrow.ClosingDate
	}
	items, err := BuildDefaultChecklist(acceptance, closing)
	if err != nil {
		return false, err
	}

	db := config.GetDB()
	result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&EscrowChecklist{
		EscrowDisplayId: escrow.DisplayId,
		ChecklistItems:  items,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
