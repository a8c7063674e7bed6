package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Current-generation child tables, keyed by escrow display id. Reads go
// through EscrowChildReader as raw rows so that legacy tables with other
// column sets can be read too; these models exist for migrations and writes.

type EscrowTimelineEvent struct {
	ID               int        `gorm:"primary_key" json:"id"`
	EscrowDisplayId  string     `gorm:"size:20;not null;index" json:"escrow_display_id"`
	EventName        string     `gorm:"size:255;not null" json:"event_name"`
	EventType        string     `gorm:"size:32" json:"event_type"`
	EventDescription string     `gorm:"type:text" json:"event_description"`
	ScheduledDate    *time.Time `gorm:"type:date" json:"scheduled_date"`
	CompletedDate    *time.Time `gorm:"type:date" json:"completed_date"`
	IsCompleted      bool       `gorm:"not null;default:false" json:"is_completed"`
	IsCritical       bool       `gorm:"not null;default:false" json:"is_critical"`
	ResponsibleParty string     `gorm:"size:255" json:"responsible_party"`
	Notes            string     `gorm:"type:text" json:"notes"`
	OrderIndex       int        `gorm:"not null;default:0" json:"order_index"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (EscrowTimelineEvent) TableName() string { return "escrow_timeline" }

type EscrowFinancialItem struct {
	ID               int               `gorm:"primary_key" json:"id"`
	EscrowDisplayId  string            `gorm:"size:20;not null;index" json:"escrow_display_id"`
	ItemName         string            `gorm:"size:255;not null" json:"item_name"`
	ItemCategory     FinancialCategory `gorm:"size:32" json:"item_category"`
	Amount           decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PartyResponsible string            `gorm:"size:64" json:"party_responsible"`
	PartyReceiving   string            `gorm:"size:64" json:"party_receiving"`
	CalculationBasis string            `gorm:"size:255" json:"calculation_basis"`
	IsEstimate       bool              `gorm:"not null;default:false" json:"is_estimate"`
	DueDate          *time.Time        `gorm:"type:date" json:"due_date"`
	PaidDate         *time.Time        `gorm:"type:date" json:"paid_date"`
	IsPaid           bool              `gorm:"not null;default:false" json:"is_paid"`
	Notes            string            `gorm:"type:text" json:"notes"`
	OrderIndex       int               `gorm:"not null;default:0" json:"order_index"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (EscrowFinancialItem) TableName() string { return "escrow_financials" }

type EscrowDocument struct {
	ID              int        `gorm:"primary_key" json:"id"`
	EscrowDisplayId string     `gorm:"size:20;not null;index" json:"escrow_display_id"`
	DocumentName    string     `gorm:"size:255;not null" json:"document_name"`
	DocumentType    string     `gorm:"size:32" json:"document_type"`
	DocumentStatus  string     `gorm:"size:32" json:"document_status"`
	IsRequired      bool       `gorm:"not null;default:false" json:"is_required"`
	DueDate         *time.Time `gorm:"type:date" json:"due_date"`
	ReceivedDate    *time.Time `json:"received_date"`
	DocumentUrl     string     `gorm:"size:1024" json:"document_url"`
	DocumentId      string     `gorm:"size:64" json:"document_id"`
	UploadedBy      string     `gorm:"size:255" json:"uploaded_by"`
	SignedByBuyer   bool       `gorm:"not null;default:false" json:"signed_by_buyer"`
	SignedBySeller  bool       `gorm:"not null;default:false" json:"signed_by_seller"`
	SignedByAgents  bool       `gorm:"not null;default:false" json:"signed_by_agents"`
	Notes           string     `gorm:"type:text" json:"notes"`
	OrderIndex      int        `gorm:"not null;default:0" json:"order_index"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (EscrowDocument) TableName() string { return "escrow_documents" }
