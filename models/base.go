package models

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/mmdatafocus/brokerage_backend/utils"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/mmdatafocus/brokerage_backend/models")

// timeNow is swapped in tests.
var timeNow = time.Now

var numericIdPattern = regexp.MustCompile(`^\d+$`)

// IsNumericEscrowId reports whether id addresses escrows.numeric_id rather
// than escrows.display_id.
func IsNumericEscrowId(id string) bool {
	return numericIdPattern.MatchString(id)
}

// findEscrow loads the escrow addressed by a numeric id or a display id.
// (may return RecordNotFound error)
func findEscrow(db *gorm.DB, id string) (*Escrow, error) {
	var escrow Escrow
	query := db.Model(&Escrow{})
	if IsNumericEscrowId(id) {
		numericId, err := strconv.Atoi(id)
		if err != nil {
			// too large for an int: cannot exist
			return nil, utils.ErrorRecordNotFound
		}
		query = query.Where("numeric_id = ?", numericId)
	} else {
		query = query.Where("display_id = ?", id)
	}
	if err := query.First(&escrow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &escrow, nil
}
