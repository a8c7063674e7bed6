package models

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/mmdatafocus/brokerage_backend/utils"
	"gopkg.in/yaml.v3"
)

//go:embed checklist_template.yaml
var checklistTemplateYAML []byte

type ChecklistTemplateItem struct {
	Phase           ChecklistPhase `yaml:"phase"`
	TaskName        string         `yaml:"task_name"`
	TaskDescription string         `yaml:"task_description"`
	DueDays         int            `yaml:"due_days"`
	Order           int            `yaml:"order"`
}

var (
	checklistTemplateOnce  sync.Once
	checklistTemplateItems []ChecklistTemplateItem
	checklistTemplateErr   error
)

// DefaultChecklistTemplate returns the parsed built-in checklist template.
func DefaultChecklistTemplate() ([]ChecklistTemplateItem, error) {
	checklistTemplateOnce.Do(func() {
		checklistTemplateItems, checklistTemplateErr = parseChecklistTemplate(checklistTemplateYAML)
	})
	return checklistTemplateItems, checklistTemplateErr
}

func parseChecklistTemplate(data []byte) ([]ChecklistTemplateItem, error) {
	var doc struct {
		Items []ChecklistTemplateItem `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("checklist template: %w", err)
	}
	if len(doc.Items) == 0 {
		return nil, fmt.Errorf("checklist template: no items")
	}
	seen := make(map[string]bool, len(doc.Items))
	for _, item := range doc.Items {
		if !item.Phase.IsValid() {
			return nil, fmt.Errorf("checklist template: %q has invalid phase %q", item.TaskName, item.Phase)
		}
		key := ChecklistKey(item.TaskName)
		if key == "" || seen[key] {
			return nil, fmt.Errorf("checklist template: duplicate or empty task name %q", item.TaskName)
		}
		seen[key] = true
	}
	return doc.Items, nil
}

// BuildDefaultChecklist instantiates the template for an escrow. Non-negative
// offsets count from acceptance, negative ones back from closing.
func BuildDefaultChecklist(acceptance time.Time, closing time.Time) (ChecklistItems, error) {
	template, err := DefaultChecklistTemplate()
	if err != nil {
		return nil, err
	}
	items := make(ChecklistItems, 0, len(template))
	for _, t := range template {
		base := acceptance
		if t.DueDays < 0 {
			base = closing
		}
		items = append(items, ChecklistItem{
			Key:             ChecklistKey(t.TaskName),
			Phase:           t.Phase,
			TaskName:        t.TaskName,
			TaskDescription: t.TaskDescription,
			IsCompleted:     false,
			DueDays:         t.DueDays,
			DueDate:         base.AddDate(0, 0, t.DueDays).Format(utils.DateLayout),
			CompletedDate:   nil,
			Order:           t.Order,
		})
	}
	return items, nil
}

// ChecklistKey derives the stable item key from a task name:
// "HOA Documents" -> "hoa_documents".
func ChecklistKey(taskName string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(taskName) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
