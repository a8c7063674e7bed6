package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ActivityStats struct {
	DaysInEscrow        int `json:"daysInEscrow"`
	DaysToClose         int `json:"daysToClose"`
	TasksCompletedToday int `json:"tasksCompletedToday"`
	UpcomingDeadlines   int `json:"upcomingDeadlines"`
	DocumentsUploaded   int `json:"documentsUploaded"`
}

type EscrowDetail struct {
	Id                   int                 `json:"id"`
	DisplayId            string              `json:"displayId"`
	EscrowNumber         string              `json:"escrowNumber"`
	PropertyAddress      string              `json:"propertyAddress"`
	PropertyImage        string              `json:"propertyImage"`
	EscrowStatus         EscrowStatus        `json:"escrowStatus"`
	TransactionType      string              `json:"transactionType"`
	PurchasePrice        float64             `json:"purchasePrice"`
	EarnestMoneyDeposit  float64             `json:"earnestMoneyDeposit"`
	DownPayment          float64             `json:"downPayment"`
	LoanAmount           float64             `json:"loanAmount"`
	CommissionPercentage float64             `json:"commissionPercentage"`
	GrossCommission      float64             `json:"grossCommission"`
	MyCommission         float64             `json:"myCommission"`
	AcceptanceDate       string              `json:"acceptanceDate"`
	ScheduledCoeDate     string              `json:"scheduledCoeDate"`
	PropertyType         string              `json:"propertyType"`
	LeadSource           string              `json:"leadSource"`
	Buyer                *Participant        `json:"buyer"`
	Seller               *Participant        `json:"seller"`
	BuyerAgent           *Participant        `json:"buyerAgent"`
	ListingAgent         *Participant        `json:"listingAgent"`
	Participants         []Participant       `json:"participants"`
	Checklist            ChecklistItems      `json:"checklist"`
	ChecklistProgress    ChecklistProgress   `json:"checklistProgress"`
	Timeline             []TimelineEvent     `json:"timeline"`
	Financials           []FinancialLineItem `json:"financials"`
	Documents            []DocumentRecord    `json:"documents"`
	ActivityStats        ActivityStats       `json:"activityStats"`
	CreatedAt            string              `json:"created_at"`
	UpdatedAt            string              `json:"updated_at"`
}

// GetEscrowDetail loads an escrow by numeric or display id together with all
// of its child collections. Only a missing escrow row is an error; child
// reads that fail come back as empty collections.
// (may return RecordNotFound error)
func GetEscrowDetail(ctx context.Context, id string) (*EscrowDetail, error) {
	ctx, span := tracer.Start(ctx, "GetEscrowDetail")
	defer span.End()

	db := config.GetDB()
	escrow, err := findEscrow(db.WithContext(ctx), id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("escrow.display_id", escrow.DisplayId))

	key := EscrowKey{DisplayId: escrow.DisplayId, NumericId: escrow.NumericId}
	var legacy EscrowChildReader
	if config.LegacySchemaFallback() {
		legacy = newNumericKeyedReader(db)
	}
	children := probeEscrowChildren(ctx, newDisplayKeyedReader(db), legacy, key, legacy != nil)

	return assembleEscrowDetail(ctx, escrow, children, timeNow()), nil
}

func assembleEscrowDetail(ctx context.Context, escrow *Escrow, children EscrowChildren, now time.Time) *EscrowDetail {
	logger := config.GetLogger()
	today := utils.DateOnly(now)

	acceptance := today
	if escrow.AcceptanceDate != nil {
		acceptance = utils.DateOnly(*escrow.AcceptanceDate)
	}
	closing := today.AddDate(0, 0, defaultCloseInDays)
	if escrow.ClosingDate != nil {
		closing = utils.DateOnly(*escrow.ClosingDate)
	}

	detail := &EscrowDetail{
		Id:                   escrow.NumericId,
		DisplayId:            escrow.DisplayId,
		EscrowNumber:         escrow.EscrowNumber,
		PropertyAddress:      escrow.PropertyAddress,
		PropertyImage:        escrow.PropertyImage,
		EscrowStatus:         escrow.EscrowStatus,
		TransactionType:      escrow.PropertyType,
		PurchasePrice:        escrow.PurchasePrice.InexactFloat64(),
		EarnestMoneyDeposit:  escrow.EarnestMoneyDeposit.InexactFloat64(),
		DownPayment:          escrow.DownPayment.InexactFloat64(),
		LoanAmount:           escrow.LoanAmount.InexactFloat64(),
		CommissionPercentage: escrow.CommissionPercentage.InexactFloat64(),
		GrossCommission:      escrow.GrossCommission.InexactFloat64(),
		MyCommission:         escrow.NetCommission.InexactFloat64(),
		AcceptanceDate:       acceptance.Format(utils.DateLayout),
		ScheduledCoeDate:     closing.Format(utils.DateLayout),
		PropertyType:         escrow.PropertyType,
		LeadSource:           escrow.LeadSource,
		Checklist:            children.Checklist,
		ChecklistProgress:    checklistProgressFor(escrow.DisplayId, children.Checklist),
		CreatedAt:            timestampOr(escrow.CreatedAt, now),
		UpdatedAt:            timestampOr(escrow.UpdatedAt, now),
	}
	if detail.EscrowNumber == "" {
		detail.EscrowNumber = escrow.DisplayId
	}
	if detail.TransactionType == "" {
		detail.TransactionType = DefaultPropertyType
	}
	if detail.Checklist == nil {
		detail.Checklist = ChecklistItems{}
	}

	detail.Participants = make([]Participant, 0, len(children.People))
	for _, row := range children.People {
		detail.Participants = append(detail.Participants, NormalizeParticipant(row))
	}
	detail.Buyer = participantWithRole(detail.Participants, PersonRoleBuyer)
	detail.Seller = participantWithRole(detail.Participants, PersonRoleSeller)
	detail.BuyerAgent = participantWithRole(detail.Participants, PersonRoleBuyerAgent)
	detail.ListingAgent = participantWithRole(detail.Participants, PersonRoleListingAgent)

	detail.Timeline = make([]TimelineEvent, 0, len(children.Timeline))
	for _, row := range children.Timeline {
		detail.Timeline = append(detail.Timeline, NormalizeTimelineEvent(row))
	}

	detail.Financials = make([]FinancialLineItem, 0, len(children.Financials))
	for _, row := range children.Financials {
		item := NormalizeFinancialLineItem(row)
		if item.SignMismatch {
			config.LogWarn(logger, "EscrowDetail", "assembleEscrowDetail", "financial amount sign does not match category",
				map[string]any{"display_id": escrow.DisplayId, "item_id": item.Id, "category": item.Category, "amount": item.Amount}, nil)
		}
		detail.Financials = append(detail.Financials, item)
	}

	detail.Documents = make([]DocumentRecord, 0, len(children.Documents))
	for _, row := range children.Documents {
		doc := NormalizeDocumentRecord(row)
		if doc.DocumentUrl != nil {
			link, err := utils.DocumentDownloadURL(ctx, *doc.DocumentUrl)
			if err != nil {
				config.LogWarn(logger, "EscrowDetail", "assembleEscrowDetail", "signing document download url", doc.Id, err)
			}
			if link != "" {
				doc.DownloadUrl = &link
			}
		}
		detail.Documents = append(detail.Documents, doc)
	}

	detail.ActivityStats = ActivityStats{
		DaysInEscrow:        utils.CalendarDaysBetween(acceptance, today),
		DaysToClose:         utils.CalendarDaysBetween(today, closing),
		TasksCompletedToday: tasksCompletedOn(detail.Checklist, today),
		UpcomingDeadlines:   upcomingDeadlines(detail.Checklist, today),
		DocumentsUploaded:   len(detail.Documents),
	}
	return detail
}

// participantWithRole returns the first participant tagged with role.
func participantWithRole(people []Participant, role PersonRole) *Participant {
	for i := range people {
		if people[i].PersonType == string(role) {
			p := people[i]
			return &p
		}
	}
	return nil
}

func tasksCompletedOn(items ChecklistItems, day time.Time) int {
	count := 0
	for _, item := range items {
		if item.IsCompleted && item.CompletedDate != nil && utils.DateOnly(*item.CompletedDate).Equal(day) {
			count++
		}
	}
	return count
}

func upcomingDeadlines(items ChecklistItems, today time.Time) int {
	count := 0
	for _, item := range items {
		if item.IsCompleted || item.DueDate == "" {
			continue
		}
		due, ok := utils.ParseDate(item.DueDate)
		if ok && utils.DateOnly(due).After(today) {
			count++
		}
	}
	return count
}

func timestampOr(t time.Time, def time.Time) string {
	if t.IsZero() {
		t = def
	}
	return t.UTC().Format(time.RFC3339)
}
