package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"gorm.io/gorm"
)

// maxExportRows bounds ListEscrowsForExport.
const maxExportRows = 10000

var escrowSortColumns = map[string]string{
	"created_at":       "created_at",
	"createdAt":        "created_at",
	"updated_at":       "updated_at",
	"updatedAt":        "updated_at",
	"display_id":       "display_id",
	"displayId":        "display_id",
	"property_address": "property_address",
	"propertyAddress":  "property_address",
	"escrow_status":    "escrow_status",
	"escrowStatus":     "escrow_status",
	"purchase_price":   "purchase_price",
	"purchasePrice":    "purchase_price",
	"acceptance_date":  "acceptance_date",
	"acceptanceDate":   "acceptance_date",
	"closing_date":     "closing_date",
	"scheduledCoeDate": "closing_date",
}

type EscrowListParams struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Status string `form:"status"`
	Search string `form:"search"`
	Sort   string `form:"sort"`
	Order  string `form:"order"`
}

func (p *EscrowListParams) normalize() {
	p.Page, p.Limit = clampPage(p.Page, p.Limit)
	if _, ok := sortColumn(escrowSortColumns, p.Sort); !ok {
		p.Sort = "created_at"
	}
	if sortDirection(p.Order) == "ASC" {
		p.Order = "asc"
	} else {
		p.Order = "desc"
	}
	p.Status = strings.TrimSpace(p.Status)
	p.Search = strings.TrimSpace(p.Search)
}

// EscrowSummary is one row of the escrow list.
type EscrowSummary struct {
	Id                int          `json:"id"`
	DisplayId         string       `json:"displayId"`
	EscrowNumber      string       `json:"escrowNumber"`
	PropertyAddress   string       `json:"propertyAddress"`
	PropertyImage     string       `json:"propertyImage"`
	EscrowStatus      EscrowStatus `json:"escrowStatus"`
	PropertyType      string       `json:"propertyType"`
	PurchasePrice     float64      `json:"purchasePrice"`
	GrossCommission   float64      `json:"grossCommission"`
	MyCommission      float64      `json:"myCommission"`
	AcceptanceDate    *string      `json:"acceptanceDate"`
	ScheduledCoeDate  *string      `json:"scheduledCoeDate"`
	LeadSource        string       `json:"leadSource"`
	ChecklistProgress int          `json:"checklistProgress"`
	CreatedAt         string       `json:"created_at"`
}

type EscrowListResult struct {
	Escrows    []EscrowSummary `json:"escrows"`
	Pagination Pagination      `json:"pagination"`
}

// filteredEscrows applies status and search filters; "all" and "" mean no
// status filter.
func filteredEscrows(db *gorm.DB, params EscrowListParams) *gorm.DB {
	query := db.Model(&Escrow{})
	if params.Status != "" && !strings.EqualFold(params.Status, "all") {
		status := EscrowStatus(params.Status)
		for _, s := range []EscrowStatus{EscrowStatusActive, EscrowStatusPending, EscrowStatusClosed, EscrowStatusCancelled} {
			if strings.EqualFold(string(s), params.Status) {
				status = s
			}
		}
		query = query.Where("escrow_status = ?", status)
	}
	if params.Search != "" {
		like := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(property_address) LIKE ? OR LOWER(display_id) LIKE ?", like, like)
	}
	return query
}

func orderedEscrows(query *gorm.DB, params EscrowListParams) *gorm.DB {
	column, _ := sortColumn(escrowSortColumns, params.Sort)
	direction := sortDirection(params.Order)
	return query.Order(fmt.Sprintf("%s %s", column, direction)).Order("numeric_id " + direction)
}

func PaginateEscrow(ctx context.Context, params EscrowListParams) (*EscrowListResult, error) {
	params.normalize()
	db := config.GetDB().WithContext(ctx)

	var total int64
	if err := filteredEscrows(db, params).Count(&total).Error; err != nil {
		return nil, err
	}

	var escrows []Escrow
	err := orderedEscrows(filteredEscrows(db, params), params).
		Offset(offsetOf(params.Page, params.Limit)).
		Limit(params.Limit).
		Find(&escrows).Error
	if err != nil {
		return nil, err
	}

	return &EscrowListResult{
		Escrows:    summarizeEscrows(ctx, escrows),
		Pagination: NewPagination(total, params.Page, params.Limit),
	}, nil
}

// ListEscrowsForExport returns every escrow matching the filters, ignoring
// page and limit.
func ListEscrowsForExport(ctx context.Context, params EscrowListParams) ([]EscrowSummary, error) {
	params.normalize()
	db := config.GetDB().WithContext(ctx)

	var escrows []Escrow
	if err := orderedEscrows(filteredEscrows(db, params), params).Limit(maxExportRows).Find(&escrows).Error; err != nil {
		return nil, err
	}
	return summarizeEscrows(ctx, escrows), nil
}

func summarizeEscrows(ctx context.Context, escrows []Escrow) []EscrowSummary {
	displayIds := make([]string, 0, len(escrows))
	for _, e := range escrows {
		displayIds = append(displayIds, e.DisplayId)
	}
	progress := overallProgressByEscrow(ctx, displayIds)

	summaries := make([]EscrowSummary, 0, len(escrows))
	for _, e := range escrows {
		summary := EscrowSummary{
			Id:                e.NumericId,
			DisplayId:         e.DisplayId,
			EscrowNumber:      e.EscrowNumber,
			PropertyAddress:   e.PropertyAddress,
			PropertyImage:     e.PropertyImage,
			EscrowStatus:      e.EscrowStatus,
			PropertyType:      e.PropertyType,
			PurchasePrice:     e.PurchasePrice.InexactFloat64(),
			GrossCommission:   e.GrossCommission.InexactFloat64(),
			MyCommission:      e.NetCommission.InexactFloat64(),
			AcceptanceDate:    dateValue(e.AcceptanceDate, utils.DateLayout),
			ScheduledCoeDate:  dateValue(e.ClosingDate, utils.DateLayout),
			LeadSource:        e.LeadSource,
			ChecklistProgress: progress[e.DisplayId],
			CreatedAt:         timestampOr(e.CreatedAt, timeNow()),
		}
		if summary.EscrowNumber == "" {
			summary.EscrowNumber = e.DisplayId
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// overallProgressByEscrow loads the checklists of a page in one query. A
// failure is logged and every escrow reports 0.
func overallProgressByEscrow(ctx context.Context, displayIds []string) map[string]int {
	result := make(map[string]int, len(displayIds))
	if len(displayIds) == 0 {
		return result
	}
	var checklists []EscrowChecklist
	err := config.GetDB().WithContext(ctx).
		Select("id", "escrow_display_id", "checklist_items").
		Where("escrow_display_id IN ?", displayIds).
		Find(&checklists).Error
	if err != nil {
		config.LogWarn(config.GetLogger(), "EscrowList", "overallProgressByEscrow", "loading checklists", displayIds, err)
		return result
	}
	for _, c := range checklists {
		progress, _ := CalculateChecklistProgress(c.ChecklistItems)
		result[c.EscrowDisplayId] = progress.Overall.Percentage
	}
	return result
}
