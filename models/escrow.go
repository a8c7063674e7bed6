package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

type Escrow struct {
	NumericId            int             `gorm:"column:numeric_id;primaryKey;autoIncrement" json:"id"`
	DisplayId            string          `gorm:"size:20;not null;uniqueIndex" json:"display_id"`
	EscrowNumber         string          `gorm:"size:64" json:"escrow_number"`
	PropertyAddress      string          `gorm:"size:255;not null" json:"property_address"`
	PropertyImage        string          `gorm:"size:512" json:"property_image"`
	EscrowStatus         EscrowStatus    `gorm:"size:20;not null;default:Active;index" json:"escrow_status"`
	PurchasePrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	EarnestMoneyDeposit  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"earnest_money_deposit"`
	DownPayment          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"down_payment"`
	LoanAmount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"loan_amount"`
	CommissionPercentage decimal.Decimal `gorm:"type:decimal(7,4);default:0" json:"commission_percentage"`
	GrossCommission      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_commission"`
	NetCommission        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_commission"`
	AcceptanceDate       *time.Time      `gorm:"type:date" json:"acceptance_date"`
	ClosingDate          *time.Time      `gorm:"type:date;index" json:"closing_date"`
	PropertyType         string          `gorm:"size:64" json:"property_type"`
	LeadSource           string          `gorm:"size:64" json:"lead_source"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewEscrow struct {
	PropertyAddress      string           `json:"property_address" validate:"required,max=255"`
	PropertyImage        string           `json:"property_image" validate:"omitempty,max=512"`
	EscrowNumber         string           `json:"escrow_number" validate:"omitempty,max=64"`
	EscrowStatus         EscrowStatus     `json:"escrow_status" validate:"omitempty,oneof=Active Pending Closed Cancelled"`
	PurchasePrice        decimal.Decimal  `json:"purchase_price"`
	EarnestMoneyDeposit  *decimal.Decimal `json:"earnest_money_deposit"`
	DownPayment          *decimal.Decimal `json:"down_payment"`
	LoanAmount           *decimal.Decimal `json:"loan_amount"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
	GrossCommission      *decimal.Decimal `json:"gross_commission"`
	NetCommission        *decimal.Decimal `json:"net_commission"`
	AcceptanceDate       *Date            `json:"acceptance_date"`
	ClosingDate          *Date            `json:"closing_date"`
	PropertyType         string           `json:"property_type" validate:"omitempty,max=64"`
	LeadSource           string           `json:"lead_source" validate:"omitempty,max=64"`
}

const (
	DefaultPropertyType = "Single Family"
	DefaultLeadSource   = "Website"
	defaultCloseInDays  = 30

	// create retries after a display_id unique violation
	maxDisplayIdAttempts = 5
)

var (
	defaultCommissionPercentage = decimal.NewFromFloat(2.5)
	earnestMoneyRate            = decimal.NewFromFloat(0.01)
	downPaymentRate             = decimal.NewFromFloat(0.20)
	loanRate                    = decimal.NewFromFloat(0.80)
	netCommissionShare          = decimal.NewFromFloat(0.5)
	hundred                     = decimal.NewFromInt(100)
)

func (input *NewEscrow) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	fields := map[string]string{}
	if !input.PurchasePrice.IsPositive() {
		fields["purchase_price"] = "must be greater than 0"
	}
	for field, v := range map[string]*decimal.Decimal{
		"earnest_money_deposit": input.EarnestMoneyDeposit,
		"down_payment":          input.DownPayment,
		"loan_amount":           input.LoanAmount,
		"commission_percentage": input.CommissionPercentage,
		"gross_commission":      input.GrossCommission,
		"net_commission":        input.NetCommission,
	} {
		if v != nil && v.IsNegative() {
			fields[field] = "must not be negative"
		}
	}
	if input.CommissionPercentage != nil && input.CommissionPercentage.GreaterThan(hundred) {
		fields["commission_percentage"] = "must not exceed 100"
	}
	if input.AcceptanceDate != nil && input.ClosingDate != nil &&
		input.ClosingDate.Time().Before(input.AcceptanceDate.Time()) {
		fields["closing_date"] = "must not be before acceptance_date"
	}
	if len(fields) > 0 {
		return &utils.ValidationError{Fields: fields}
	}
	return nil
}

// toEscrow applies the derived defaults. DisplayId is left for allocation.
func (input *NewEscrow) toEscrow(now time.Time) *Escrow {
	price := input.PurchasePrice
	pct := decimalOr(input.CommissionPercentage, defaultCommissionPercentage)
	gross := price.Mul(pct).Div(hundred)

	today := utils.DateOnly(now)
	acceptance := today
	if input.AcceptanceDate != nil {
		acceptance = input.AcceptanceDate.Time()
	}
	closing := today.AddDate(0, 0, defaultCloseInDays)
	if input.ClosingDate != nil {
		closing = input.ClosingDate.Time()
	}

	status := input.EscrowStatus
	if status == "" {
		status = EscrowStatusActive
	}
	propertyType := input.PropertyType
	if propertyType == "" {
		propertyType = DefaultPropertyType
	}
	leadSource := input.LeadSource
	if leadSource == "" {
		leadSource = DefaultLeadSource
	}

	return &Escrow{
		EscrowNumber:         input.EscrowNumber,
		PropertyAddress:      input.PropertyAddress,
		PropertyImage:        input.PropertyImage,
		EscrowStatus:         status,
		PurchasePrice:        price,
		EarnestMoneyDeposit:  decimalOr(input.EarnestMoneyDeposit, price.Mul(earnestMoneyRate)).Round(2),
		DownPayment:          decimalOr(input.DownPayment, price.Mul(downPaymentRate)).Round(2),
		LoanAmount:           decimalOr(input.LoanAmount, price.Mul(loanRate)).Round(2),
		CommissionPercentage: pct,
		GrossCommission:      decimalOr(input.GrossCommission, gross).Round(2),
		NetCommission:        decimalOr(input.NetCommission, gross.Mul(netCommissionShare)).Round(2),
		AcceptanceDate:       &acceptance,
		ClosingDate:          &closing,
		PropertyType:         propertyType,
		LeadSource:           leadSource,
	}
}

func decimalOr(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return *v
}

// CreateEscrow inserts the escrow with a freshly allocated display id and its
// default checklist in one transaction.
func CreateEscrow(ctx context.Context, input *NewEscrow) (*Escrow, error) {
	ctx, span := tracer.Start(ctx, "CreateEscrow")
	defer span.End()

	if err := input.validate(); err != nil {
		return nil, err
	}

	logger := config.GetLogger()
	now := timeNow()
	escrow := input.toEscrow(now)
	year := now.Year()

	// Narrows contention between app instances; the sequence row lock and the
	// unique index are what guarantee uniqueness.
	release, _, lockErr := utils.ObtainLock(ctx, sequenceLockKey(year), 10*time.Second, 2*time.Second)
	if lockErr != nil {
		config.LogWarn(logger, "Escrow", "CreateEscrow", "obtaining sequence lock", year, lockErr)
	}
	defer release()

	db := config.GetDB()
	var err error
	for attempt := 1; attempt <= maxDisplayIdAttempts; attempt++ {
		err = createEscrowTx(ctx, db, escrow, year)
		if err == nil {
			break
		}
		if !utils.IsDuplicateKeyErr(err) {
			config.LogError(logger, "Escrow", "CreateEscrow", "inserting escrow", input, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		config.LogWarn(logger, "Escrow", "CreateEscrow", fmt.Sprintf("display id conflict (attempt %d)", attempt), escrow.DisplayId, err)
		escrow.NumericId = 0
		if syncErr := syncEscrowSequence(db.WithContext(ctx), year); syncErr != nil {
			config.LogError(logger, "Escrow", "CreateEscrow", "re-syncing sequence", year, syncErr)
			return nil, syncErr
		}
	}
	if err != nil {
		span.SetStatus(codes.Error, utils.ErrorDuplicateDisplayId.Error())
		return nil, utils.ErrorDuplicateDisplayId
	}

	span.SetAttributes(attribute.String("escrow.display_id", escrow.DisplayId))
	publishEscrowEvent(ctx, EscrowEventCreated, escrow, nil)
	return escrow, nil
}

func createEscrowTx(ctx context.Context, db *gorm.DB, escrow *Escrow, year int) error {
	logger := config.GetLogger()

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	seq, err := nextEscrowSequence(tx, year)
	if err != nil {
		tx.Rollback()
		return err
	}
	escrow.DisplayId = FormatDisplayId(year, seq)

	if err := tx.Create(escrow).Error; err != nil {
		tx.Rollback()
		return err
	}

	items, err := BuildDefaultChecklist(*escrow.AcceptanceDate, *escrow.ClosingDate)
	if err != nil {
		tx.Rollback()
		return err
	}
	checklist := &EscrowChecklist{
		EscrowDisplayId: escrow.DisplayId,
		ChecklistItems:  items,
	}

	if config.ChecklistSeedBestEffort() {
		if err := tx.SavePoint("seed_checklist").Error; err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Create(checklist).Error; err != nil {
			if rbErr := tx.RollbackTo("seed_checklist").Error; rbErr != nil {
				tx.Rollback()
				return rbErr
			}
			config.LogWarn(logger, "Escrow", "CreateEscrow", "seeding default checklist", escrow.DisplayId, err)
		}
	} else if err := tx.Create(checklist).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// GetEscrow returns the bare escrow row.
// (may return RecordNotFound error)
func GetEscrow(ctx context.Context, id string) (*Escrow, error) {
	db := config.GetDB()
	return findEscrow(db.WithContext(ctx), id)
}
