package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EscrowSequence holds the last display-id sequence handed out per calendar year.
type EscrowSequence struct {
	Year      int       `gorm:"primaryKey;autoIncrement:false" json:"year"`
	LastValue int       `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const displayIdPrefix = "ESC"

func FormatDisplayId(year int, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", displayIdPrefix, year, seq)
}

// ParseDisplayId splits "ESC-2024-0007" into (2024, 7).
func ParseDisplayId(displayId string) (year int, seq int, ok bool) {
	parts := strings.Split(displayId, "-")
	if len(parts) != 3 || parts[0] != displayIdPrefix {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	seq, err = strconv.Atoi(parts[2])
	if err != nil || seq < 0 {
		return 0, 0, false
	}
	return year, seq, true
}

func sequenceLockKey(year int) string {
	return fmt.Sprintf("lock:escrow-seq:%d", year)
}

// scanMaxDisplaySequence returns the highest sequence already used in year,
// 0 when there is none.
func scanMaxDisplaySequence(db *gorm.DB, year int) (int, error) {
	var displayIds []string
	prefix := fmt.Sprintf("%s-%d-", displayIdPrefix, year)
	if err := db.Model(&Escrow{}).Where("display_id LIKE ?", prefix+"%").
		Pluck("display_id", &displayIds).Error; err != nil {
		return 0, err
	}
	maxSeq := 0
	for _, id := range displayIds {
		y, seq, ok := ParseDisplayId(id)
		if ok && y == year && seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}

// nextEscrowSequence increments and returns the year's counter. Must run in
// the creating transaction: the UPDATE holds the row lock until commit, which
// serializes concurrent creators.
func nextEscrowSequence(tx *gorm.DB, year int) (int, error) {
	var count int64
	if err := tx.Model(&EscrowSequence{}).Where("year = ?", year).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		// first escrow of the year on this counter: start from what is already used
		maxSeq, err := scanMaxDisplaySequence(tx, year)
		if err != nil {
			return 0, err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&EscrowSequence{Year: year, LastValue: maxSeq}).Error; err != nil {
			return 0, err
		}
	}

	if err := tx.Model(&EscrowSequence{}).Where("year = ?", year).
		UpdateColumn("last_value", gorm.Expr("last_value + ?", 1)).Error; err != nil {
		return 0, err
	}
	var seq EscrowSequence
	if err := tx.Where("year = ?", year).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}

// syncEscrowSequence moves the counter forward to the highest id actually in
// escrows. Used after a unique violation shows the counter is behind (rows
// inserted by imports or older app versions).
func syncEscrowSequence(db *gorm.DB, year int) error {
	maxSeq, err := scanMaxDisplaySequence(db, year)
	if err != nil {
		return err
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&EscrowSequence{Year: year, LastValue: maxSeq}).Error; err != nil {
		return err
	}
	return db.Model(&EscrowSequence{}).
		Where("year = ? AND last_value < ?", year, maxSeq).
		UpdateColumn("last_value", maxSeq).Error
}
