package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowStatusActive    EscrowStatus = "Active"
	EscrowStatusPending   EscrowStatus = "Pending"
	EscrowStatusClosed    EscrowStatus = "Closed"
	EscrowStatusCancelled EscrowStatus = "Cancelled"
)

func (s EscrowStatus) IsValid() bool {
	switch s {
	case EscrowStatusActive, EscrowStatusPending, EscrowStatusClosed, EscrowStatusCancelled:
		return true
	}
	return false
}

// ChecklistPhase is one of the three closing-checklist buckets.
type ChecklistPhase string

const (
	ChecklistPhaseOpening    ChecklistPhase = "opening"
	ChecklistPhaseProcessing ChecklistPhase = "processing"
	ChecklistPhaseClosing    ChecklistPhase = "closing"
)

var ChecklistPhases = []ChecklistPhase{ChecklistPhaseOpening, ChecklistPhaseProcessing, ChecklistPhaseClosing}

func (p ChecklistPhase) IsValid() bool {
	switch p {
	case ChecklistPhaseOpening, ChecklistPhaseProcessing, ChecklistPhaseClosing:
		return true
	}
	return false
}

// PersonRole is the person_type tag on escrow_people rows.
type PersonRole string

const (
	PersonRoleBuyer         PersonRole = "buyer"
	PersonRoleSeller        PersonRole = "seller"
	PersonRoleBuyerAgent    PersonRole = "buyer_agent"
	PersonRoleListingAgent  PersonRole = "listing_agent"
	PersonRoleEscrowOfficer PersonRole = "escrow_officer"
	PersonRoleTitleCompany  PersonRole = "title_company"
	PersonRoleLender        PersonRole = "lender"
	PersonRoleInspector     PersonRole = "inspector"
)

func (r PersonRole) IsValid() bool {
	switch r {
	case PersonRoleBuyer, PersonRoleSeller, PersonRoleBuyerAgent, PersonRoleListingAgent,
		PersonRoleEscrowOfficer, PersonRoleTitleCompany, PersonRoleLender, PersonRoleInspector:
		return true
	}
	return false
}

// FinancialCategory groups escrow ledger lines. By convention income and
// credit lines are positive and expense and fee lines negative.
type FinancialCategory string

const (
	FinancialCategoryIncome  FinancialCategory = "income"
	FinancialCategoryCredit  FinancialCategory = "credit"
	FinancialCategoryExpense FinancialCategory = "expense"
	FinancialCategoryFee     FinancialCategory = "fee"
)

// SignMatches reports whether amount carries the conventional sign for c.
// Zero amounts and unknown categories always match.
func (c FinancialCategory) SignMatches(amount decimal.Decimal) bool {
	switch FinancialCategory(strings.ToLower(string(c))) {
	case FinancialCategoryIncome, FinancialCategoryCredit:
		return !amount.IsNegative()
	case FinancialCategoryExpense, FinancialCategoryFee:
		return !amount.IsPositive()
	}
	return true
}

// Date is a calendar date that reads "2006-01-02" (or a full timestamp) from
// JSON and writes "2006-01-02".
type Date time.Time

func (d Date) Time() time.Time {
	return time.Time(d)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(utils.DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, ok := utils.ParseDate(s)
	if !ok {
		return fmt.Errorf("invalid date %q", s)
	}
	*d = Date(utils.DateOnly(t))
	return nil
}

// Value implements the driver.Valuer interface
func (d Date) Value() (driver.Value, error) {
	return utils.DateOnly(time.Time(d)), nil
}

// Scan implements the sql.Scanner interface
func (d *Date) Scan(value interface{}) error {
	if value == nil {
		*d = Date(time.Time{})
		return nil
	}
	t, ok := utils.ParseDate(value)
	if !ok {
		return fmt.Errorf("cannot convert %T to Date", value)
	}
	*d = Date(utils.DateOnly(t))
	return nil
}
