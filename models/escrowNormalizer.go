package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
)

// Canonical field -> source columns, tried in order; the first non-null
// value wins. The two schema generations name several columns differently.
var timelineFieldSources = map[string][]string{
	"id":               {"id"},
	"eventName":        {"event_name", "event_type"},
	"description":      {"event_description", "description"},
	"type":             {"event_type"},
	"scheduledDate":    {"scheduled_date", "event_date"},
	"completedDate":    {"completed_date"},
	"isCompleted":      {"is_completed"},
	"isCritical":       {"is_critical"},
	"responsibleParty": {"responsible_party", "created_by"},
	"notes":            {"notes", "metadata"},
	"order":            {"order_index", "sort_order", "event_order"},
}

var financialFieldSources = map[string][]string{
	"id":               {"id"},
	"name":             {"item_name"},
	"category":         {"item_category", "category"},
	"amount":           {"amount"},
	"partyResponsible": {"party_responsible"},
	"partyReceiving":   {"party_receiving"},
	"calculationBasis": {"calculation_basis"},
	"isEstimate":       {"is_estimate"},
	"dueDate":          {"due_date"},
	"paidDate":         {"paid_date"},
	"isPaid":           {"is_paid"},
	"notes":            {"notes"},
}

var documentFieldSources = map[string][]string{
	"id":             {"id"},
	"name":           {"document_name"},
	"type":           {"document_type"},
	"status":         {"document_status", "status"},
	"isRequired":     {"is_required"},
	"dueDate":        {"due_date"},
	"receivedDate":   {"received_date", "uploaded_at"},
	"documentUrl":    {"document_url", "file_url"},
	"documentId":     {"document_id"},
	"uploadedBy":     {"uploaded_by"},
	"signedByBuyer":  {"signed_by_buyer"},
	"signedBySeller": {"signed_by_seller"},
	"signedByAgents": {"signed_by_agents"},
	"notes":          {"notes"},
}

var personFieldSources = map[string][]string{
	"id":            {"id"},
	"personType":    {"person_type", "role"},
	"name":          {"name", "full_name"},
	"email":         {"email"},
	"phone":         {"phone"},
	"company":       {"company"},
	"licenseNumber": {"license_number"},
}

type TimelineEvent struct {
	Id               int     `json:"id"`
	EventName        *string `json:"eventName"`
	Description      *string `json:"description"`
	Type             *string `json:"type"`
	ScheduledDate    *string `json:"scheduledDate"`
	CompletedDate    *string `json:"completedDate"`
	IsCompleted      bool    `json:"isCompleted"`
	IsCritical       bool    `json:"isCritical"`
	ResponsibleParty *string `json:"responsibleParty"`
	Notes            *string `json:"notes"`
	Order            int     `json:"order"`
}

type FinancialLineItem struct {
	Id               int     `json:"id"`
	Name             *string `json:"name"`
	Category         *string `json:"category"`
	Amount           float64 `json:"amount"`
	PartyResponsible *string `json:"partyResponsible"`
	PartyReceiving   *string `json:"partyReceiving"`
	CalculationBasis *string `json:"calculationBasis"`
	IsEstimate       bool    `json:"isEstimate"`
	DueDate          *string `json:"dueDate"`
	PaidDate         *string `json:"paidDate"`
	IsPaid           bool    `json:"isPaid"`
	Notes            *string `json:"notes"`
	// SignMismatch flags an amount whose sign disagrees with its category
	// (expenses and fees negative, income and credits positive).
	SignMismatch bool `json:"signMismatch,omitempty"`
}

type DocumentRecord struct {
	Id             int     `json:"id"`
	Name           *string `json:"name"`
	Type           *string `json:"type"`
	Status         *string `json:"status"`
	IsRequired     bool    `json:"isRequired"`
	DueDate        *string `json:"dueDate"`
	ReceivedDate   *string `json:"receivedDate"`
	DocumentUrl    *string `json:"documentUrl"`
	DownloadUrl    *string `json:"downloadUrl,omitempty"`
	DocumentId     *string `json:"documentId"`
	UploadedBy     *string `json:"uploadedBy"`
	SignedByBuyer  bool    `json:"signedByBuyer"`
	SignedBySeller bool    `json:"signedBySeller"`
	SignedByAgents bool    `json:"signedByAgents"`
	Notes          *string `json:"notes"`
}

type Participant struct {
	Id            int     `json:"id"`
	PersonType    string  `json:"person_type"`
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Company       *string `json:"company"`
	LicenseNumber *string `json:"license_number"`
}

// first returns the first non-null value among the field's source columns.
func (r RawRow) first(sources map[string][]string, field string) any {
	for _, column := range sources[field] {
		if v, ok := r[column]; ok && !isNull(v) {
			return v
		}
	}
	return nil
}

func (r RawRow) stringField(sources map[string][]string, field string) *string {
	return stringValue(r.first(sources, field))
}

func (r RawRow) dateField(sources map[string][]string, field string) *string {
	return dateValue(r.first(sources, field), utils.DateLayout)
}

func (r RawRow) timestampField(sources map[string][]string, field string) *string {
	return dateValue(r.first(sources, field), time.RFC3339)
}

func (r RawRow) boolField(sources map[string][]string, field string) bool {
	return boolValue(r.first(sources, field))
}

func (r RawRow) intField(sources map[string][]string, field string) int {
	return intValue(r.first(sources, field))
}

func NormalizeTimelineEvent(row RawRow) TimelineEvent {
	src := timelineFieldSources
	return TimelineEvent{
		Id:               row.intField(src, "id"),
		EventName:        row.stringField(src, "eventName"),
		Description:      row.stringField(src, "description"),
		Type:             row.stringField(src, "type"),
		ScheduledDate:    row.dateField(src, "scheduledDate"),
		CompletedDate:    row.dateField(src, "completedDate"),
		IsCompleted:      row.boolField(src, "isCompleted"),
		IsCritical:       row.boolField(src, "isCritical"),
		ResponsibleParty: row.stringField(src, "responsibleParty"),
		Notes:            row.stringField(src, "notes"),
		Order:            row.intField(src, "order"),
	}
}

func NormalizeFinancialLineItem(row RawRow) FinancialLineItem {
	src := financialFieldSources
	amount := utils.MoneyOrZero(unwrapValuer(row.first(src, "amount")))
	item := FinancialLineItem{
		Id:               row.intField(src, "id"),
		Name:             row.stringField(src, "name"),
		Category:         row.stringField(src, "category"),
		Amount:           amount.InexactFloat64(),
		PartyResponsible: row.stringField(src, "partyResponsible"),
		PartyReceiving:   row.stringField(src, "partyReceiving"),
		CalculationBasis: row.stringField(src, "calculationBasis"),
		IsEstimate:       row.boolField(src, "isEstimate"),
		DueDate:          row.dateField(src, "dueDate"),
		PaidDate:         row.dateField(src, "paidDate"),
		IsPaid:           row.boolField(src, "isPaid"),
		Notes:            row.stringField(src, "notes"),
	}
	if item.Category != nil {
		item.SignMismatch = !FinancialCategory(*item.Category).SignMatches(amount)
	}
	return item
}

func NormalizeDocumentRecord(row RawRow) DocumentRecord {
	src := documentFieldSources
	return DocumentRecord{
		Id:             row.intField(src, "id"),
		Name:           row.stringField(src, "name"),
		Type:           row.stringField(src, "type"),
		Status:         row.stringField(src, "status"),
		IsRequired:     row.boolField(src, "isRequired"),
		DueDate:        row.dateField(src, "dueDate"),
		ReceivedDate:   row.timestampField(src, "receivedDate"),
		DocumentUrl:    row.stringField(src, "documentUrl"),
		DocumentId:     row.stringField(src, "documentId"),
		UploadedBy:     row.stringField(src, "uploadedBy"),
		SignedByBuyer:  row.boolField(src, "signedByBuyer"),
		SignedBySeller: row.boolField(src, "signedBySeller"),
		SignedByAgents: row.boolField(src, "signedByAgents"),
		Notes:          row.stringField(src, "notes"),
	}
}

func NormalizeParticipant(row RawRow) Participant {
	src := personFieldSources
	personType := ""
	if v := row.stringField(src, "personType"); v != nil {
		personType = strings.ToLower(strings.TrimSpace(*v))
	}
	return Participant{
		Id:            row.intField(src, "id"),
		PersonType:    personType,
		Name:          row.stringField(src, "name"),
		Email:         row.stringField(src, "email"),
		Phone:         row.stringField(src, "phone"),
		Company:       row.stringField(src, "company"),
		LicenseNumber: row.stringField(src, "licenseNumber"),
	}
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	if valuer, ok := v.(driver.Valuer); ok {
		inner, err := valuer.Value()
		return err != nil || inner == nil
	}
	if t, ok := v.(*time.Time); ok && t == nil {
		return true
	}
	return false
}

func unwrapValuer(v any) any {
	if valuer, ok := v.(driver.Valuer); ok {
		if _, isDecimal := v.(decimal.Decimal); isDecimal {
			return v
		}
		if inner, err := valuer.Value(); err == nil {
			return inner
		}
	}
	return v
}

func stringValue(v any) *string {
	if isNull(v) {
		return nil
	}
	var s string
	switch t := unwrapValuer(v).(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	case time.Time:
		s = t.UTC().Format(time.RFC3339)
	case decimal.Decimal:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(b)
	default:
		s = fmt.Sprint(t)
	}
	return &s
}

// dateValue formats dates with layout; strings that do not parse are passed
// through unchanged.
func dateValue(v any, layout string) *string {
	if isNull(v) {
		return nil
	}
	raw := unwrapValuer(v)
	if t, ok := utils.ParseDate(raw); ok {
		var s string
		if layout == utils.DateLayout {
			s = t.Format(layout)
		} else {
			s = t.UTC().Format(layout)
		}
		return &s
	}
	return stringValue(raw)
}

func boolValue(v any) bool {
	if isNull(v) {
		return false
	}
	switch t := unwrapValuer(v).(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case int32:
		return t != 0
	case uint8:
		return t != 0
	case float64:
		return t != 0
	case []byte:
		return parseBoolString(string(t))
	case string:
		return parseBoolString(t)
	}
	return false
}

func parseBoolString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes":
		return true
	}
	return false
}

func intValue(v any) int {
	if isNull(v) {
		return 0
	}
	switch t := unwrapValuer(v).(type) {
	case int:
		return t
	case int64:
		return int(t)
	case int32:
		return int(t)
	case uint:
		return int(t)
	case uint32:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int(t)
	case []byte:
		n, _ := strconv.Atoi(strings.TrimSpace(string(t)))
		return n
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	}
	return 0
}
