package models

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed_data.yaml
var seedDataYAML []byte

type seedEscrow struct {
	PropertyAddress  string            `yaml:"property_address"`
	PurchasePrice    string            `yaml:"purchase_price"`
	PropertyType     string            `yaml:"property_type"`
	LeadSource       string            `yaml:"lead_source"`
	AcceptanceInDays int               `yaml:"acceptance_in_days"`
	ClosingInDays    int               `yaml:"closing_in_days"`
	People           []NewEscrowPerson `yaml:"people"`
}

type seedDatedEntry struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Status      string `yaml:"status"`
	Anchor      string `yaml:"anchor"`
	Days        int    `yaml:"days"`
	Completed   bool   `yaml:"completed"`
	Critical    bool   `yaml:"critical"`
	Required    bool   `yaml:"required"`
	Responsible string `yaml:"responsible"`
	Description string `yaml:"description"`
}

func (e seedDatedEntry) date(acceptance, closing time.Time) time.Time {
	if e.Anchor == "closing" {
		return closing.AddDate(0, 0, e.Days)
	}
	return acceptance.AddDate(0, 0, e.Days)
}

type seedData struct {
	Escrows   []seedEscrow     `yaml:"escrows"`
	Timeline  []seedDatedEntry `yaml:"timeline"`
	Documents []seedDatedEntry `yaml:"documents"`
}

// SeedDemoData creates the demo escrows with participants, timeline,
// financials and documents. Escrows whose address already exists are
// skipped. Returns the display ids created.
func SeedDemoData(ctx context.Context) ([]string, error) {
	var data seedData
	if err := yaml.Unmarshal(seedDataYAML, &data); err != nil {
		return nil, fmt.Errorf("seed data: %w", err)
	}

	db := config.GetDB()
	logger := config.GetLogger()
	today := utils.DateOnly(timeNow())
	created := make([]string, 0, len(data.Escrows))

	for _, s := range data.Escrows {
		var count int64
		if err := db.WithContext(ctx).Model(&Escrow{}).Where("property_address = ?", s.PropertyAddress).Count(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}

		price, err := utils.ParseMoney(s.PurchasePrice)
		if err != nil {
			return created, fmt.Errorf("seed data %q: %w", s.PropertyAddress, err)
		}
		acceptance := Date(today.AddDate(0, 0, s.AcceptanceInDays))
		closing := Date(today.AddDate(0, 0, s.ClosingInDays))
		escrow, err := CreateEscrow(ctx, &NewEscrow{
			PropertyAddress: s.PropertyAddress,
			PurchasePrice:   price,
			PropertyType:    s.PropertyType,
			LeadSource:      s.LeadSource,
			AcceptanceDate:  &acceptance,
			ClosingDate:     &closing,
		})
		if err != nil {
			return created, err
		}

		for i := range s.People {
			if _, err := AddEscrowPerson(ctx, escrow.DisplayId, &s.People[i]); err != nil {
				config.LogWarn(logger, "Seed", "SeedDemoData", "adding person", s.People[i], err)
			}
		}

		if err := seedEscrowChildren(ctx, db, escrow, data); err != nil {
			config.LogError(logger, "Seed", "SeedDemoData", "seeding child rows", escrow.DisplayId, err)
			return created, err
		}
		created = append(created, escrow.DisplayId)
	}
	return created, nil
}

func seedEscrowChildren(ctx context.Context, db *gorm.DB, escrow *Escrow, data seedData) error {
	acceptance := *escrow.AcceptanceDate
	closing := *escrow.ClosingDate

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	events := make([]EscrowTimelineEvent, 0, len(data.Timeline))
	for i, e := range data.Timeline {
		date := e.date(acceptance, closing)
		event := EscrowTimelineEvent{
			EscrowDisplayId:  escrow.DisplayId,
			EventName:        e.Name,
			EventType:        e.Type,
			EventDescription: e.Description,
			ScheduledDate:    &date,
			IsCompleted:      e.Completed,
			IsCritical:       e.Critical,
			ResponsibleParty: e.Responsible,
			OrderIndex:       i + 1,
		}
		if e.Completed {
			event.CompletedDate = &date
		}
		events = append(events, event)
	}
	if err := tx.Create(&events).Error; err != nil {
		tx.Rollback()
		return err
	}

	items := demoFinancialItems(escrow.DisplayId, escrow.PurchasePrice)
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		return err
	}

	documents := make([]EscrowDocument, 0, len(data.Documents))
	for i, d := range data.Documents {
		due := d.date(acceptance, closing)
		documents = append(documents, EscrowDocument{
			EscrowDisplayId: escrow.DisplayId,
			DocumentName:    d.Name,
			DocumentType:    d.Type,
			DocumentStatus:  d.Status,
			IsRequired:      d.Required,
			DueDate:         &due,
			OrderIndex:      i + 1,
		})
	}
	if err := tx.Create(&documents).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// demoFinancialItems builds a settlement ledger for price. Income and credits
// are positive, expenses and fees negative.
func demoFinancialItems(displayId string, price decimal.Decimal) []EscrowFinancialItem {
	d := decimal.NewFromFloat
	earnest := price.Mul(earnestMoneyRate)
	down := price.Mul(downPaymentRate)
	loan := price.Sub(down)
	commission := price.Mul(d(0.025))
	transferTax := price.Mul(d(0.0011))
	originationFee := loan.Mul(d(0.01))
	propertyTax := price.Mul(d(0.0125)).Div(decimal.NewFromInt(2))

	sellerNet := price.Sub(commission).Sub(commission).Sub(d(850)).Sub(d(1200)).Sub(transferTax).Sub(d(500)).Sub(d(800))
	buyerCash := down.Add(d(850)).Add(d(800)).Add(originationFee).Add(d(650)).Add(d(500)).Add(d(1800)).Add(propertyTax)

	type line struct {
		name      string
		category  FinancialCategory
		amount    decimal.Decimal
		from, to  string
		basis     string
		estimated bool
	}
	lines := []line{
		{"Purchase Price", FinancialCategoryIncome, price, "buyer", "seller", "Contract purchase price", false},
		{"Earnest Money Deposit", FinancialCategoryCredit, earnest, "buyer", "escrow", "1% of purchase price", false},
		{"Down Payment", FinancialCategoryCredit, down.Sub(earnest), "buyer", "escrow", "20% of purchase price minus EMD", false},
		{"Loan Proceeds", FinancialCategoryCredit, loan, "lender", "escrow", "80% of purchase price", false},
		{"Listing Agent Commission", FinancialCategoryExpense, commission.Neg(), "seller", "listing_broker", "2.5% of purchase price", false},
		{"Buyer Agent Commission", FinancialCategoryExpense, commission.Neg(), "seller", "buyer_broker", "2.5% of purchase price", false},
		{"Escrow Fee (Seller)", FinancialCategoryFee, d(-850), "seller", "escrow_company", "50% of total escrow fee", true},
		{"Title Insurance (Owner)", FinancialCategoryFee, d(-1200), "seller", "title_company", "Owner title policy", true},
		{"County Transfer Tax", FinancialCategoryFee, transferTax.Neg(), "seller", "county", "$1.10 per $1000", false},
		{"HOA Transfer Fee", FinancialCategoryFee, d(-500), "seller", "hoa", "HOA transfer fee", true},
		{"Termite Clearance", FinancialCategoryExpense, d(-800), "seller", "pest_company", "Section 1 termite work", true},
		{"Escrow Fee (Buyer)", FinancialCategoryFee, d(-850), "buyer", "escrow_company", "50% of total escrow fee", true},
		{"Title Insurance (Lender)", FinancialCategoryFee, d(-800), "buyer", "title_company", "Lender title policy", true},
		{"Loan Origination Fee", FinancialCategoryFee, originationFee.Neg(), "buyer", "lender", "1% of loan amount", true},
		{"Appraisal Fee", FinancialCategoryFee, d(-650), "buyer", "appraiser", "Property appraisal", false},
		{"Home Inspection", FinancialCategoryExpense, d(-500), "buyer", "inspector", "General home inspection", false},
		{"Homeowners Insurance", FinancialCategoryExpense, d(-1800), "buyer", "insurance_company", "First year premium", true},
		{"Property Tax (6 months)", FinancialCategoryExpense, propertyTax.Neg(), "buyer", "county", "6 months property tax", true},
		{"Seller Net Proceeds", FinancialCategoryIncome, sellerNet, "seller", "seller", "Purchase price minus all seller costs", true},
		{"Buyer Total Cash Needed", FinancialCategoryExpense, buyerCash.Neg(), "buyer", "various", "Down payment plus all buyer costs", true},
	}

	items := make([]EscrowFinancialItem, 0, len(lines))
	for i, l := range lines {
		items = append(items, EscrowFinancialItem{
			EscrowDisplayId:  displayId,
			ItemName:         l.name,
			ItemCategory:     l.category,
			Amount:           l.amount.Round(2),
			PartyResponsible: l.from,
			PartyReceiving:   l.to,
			CalculationBasis: l.basis,
			IsEstimate:       l.estimated,
			OrderIndex:       i + 1,
		})
	}
	return items
}

// BackfillChecklists seeds the default checklist for every escrow that has
// none and returns how many were seeded.
func BackfillChecklists(ctx context.Context) (int, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var escrows []Escrow
	err := db.WithContext(ctx).Model(&Escrow{}).
		Where("NOT EXISTS (SELECT 1 FROM escrow_checklists c WHERE c.escrow_display_id = escrows.display_id)").
		Order("numeric_id").
		Find(&escrows).Error
	if err != nil {
		return 0, err
	}

	seeded := 0
	for i := range escrows {
		ok, err := SeedDefaultChecklist(ctx, &escrows[i])
		if err != nil {
			config.LogError(logger, "Seed", "BackfillChecklists", "seeding checklist", escrows[i].DisplayId, err)
			return seeded, err
		}
		if ok {
			seeded++
		}
	}
	return seeded, nil
}
