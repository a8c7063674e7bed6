package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
)

// EscrowPerson is a participant of an escrow (buyer, seller, agents and
// vendors), keyed by display id.
type EscrowPerson struct {
	ID              int        `gorm:"primary_key" json:"id"`
	EscrowDisplayId string     `gorm:"size:20;not null;index" json:"escrow_display_id"`
	PersonType      PersonRole `gorm:"size:32;not null;index" json:"person_type"`
	Name            string     `gorm:"size:255;not null" json:"name"`
	Email           string     `gorm:"size:255" json:"email"`
	Phone           string     `gorm:"size:32" json:"phone"`
	Company         string     `gorm:"size:255" json:"company"`
	LicenseNumber   string     `gorm:"size:64" json:"license_number"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EscrowPerson) TableName() string { return tablePeople }

type NewEscrowPerson struct {
	PersonType    PersonRole `json:"person_type" yaml:"person_type" validate:"required"`
	Name          string     `json:"name" yaml:"name" validate:"required,max=255"`
	Email         string     `json:"email" yaml:"email" validate:"omitempty,max=255"`
	Phone         string     `json:"phone" yaml:"phone" validate:"omitempty,max=32"`
	Company       string     `json:"company" yaml:"company" validate:"omitempty,max=255"`
	LicenseNumber string     `json:"license_number" yaml:"license_number" validate:"omitempty,max=64"`
}

func (input *NewEscrowPerson) validate() error {
	input.PersonType = PersonRole(strings.ToLower(strings.TrimSpace(string(input.PersonType))))
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)

	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	fields := map[string]string{}
	if !input.PersonType.IsValid() {
		fields["person_type"] = "unknown role"
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		fields["email"] = "invalid email"
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			fields["phone"] = "invalid phone number"
		}
	}
	if len(fields) > 0 {
		return &utils.ValidationError{Fields: fields}
	}
	return nil
}

func (input *NewEscrowPerson) mapInput(displayId string) *EscrowPerson {
	person := &EscrowPerson{
		EscrowDisplayId: displayId,
		PersonType:      input.PersonType,
		Name:            input.Name,
		Email:           strings.ToLower(input.Email),
		Company:         input.Company,
		LicenseNumber:   input.LicenseNumber,
	}
	if input.Phone != "" {
		person.Phone = utils.FormatPhoneNumber(input.Phone, utils.CountryCode)
	}
	return person
}

// AddEscrowPerson attaches a participant to the escrow addressed by numeric
// or display id.
// (may return RecordNotFound error)
func AddEscrowPerson(ctx context.Context, escrowId string, input *NewEscrowPerson) (*EscrowPerson, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	escrow, err := findEscrow(db.WithContext(ctx), escrowId)
	if err != nil {
		return nil, err
	}

	person := input.mapInput(escrow.DisplayId)
	if err := db.WithContext(ctx).Create(person).Error; err != nil {
		config.LogError(config.GetLogger(), "EscrowPerson", "AddEscrowPerson", "inserting person", person, err)
		return nil, err
	}
	return person, nil
}
