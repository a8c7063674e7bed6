package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"gorm.io/gorm"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"

	idempotencyScopeCreateEscrow = "create_escrow"
	maxIdempotencyKeyLength      = 255
	// a STARTED row older than this is treated as abandoned
	idempotencyStaleAfter = 5 * time.Minute
)

// IdempotencyKey makes client retries of a create safe.
// Unique constraint: (scope, idempotency_key).
type IdempotencyKey struct {
	ID              int               `gorm:"primary_key" json:"id"`
	Scope           string            `gorm:"size:64;not null;index:uniq_idem,unique" json:"scope"`
	Key             string            `gorm:"column:idempotency_key;size:255;not null;index:uniq_idem,unique" json:"idempotency_key"`
	RequestHash     string            `gorm:"size:64;not null" json:"request_hash"`
	Status          IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	EscrowDisplayId *string           `gorm:"size:20" json:"escrow_display_id"`
	LastError       *string           `gorm:"type:text" json:"last_error"`
	Attempts        int               `gorm:"not null;default:1" json:"attempts"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func requestHash(input any) (string, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// beginIdempotency claims (scope, key). A previously succeeded claim is
// returned so the caller can replay its result.
func beginIdempotency(db *gorm.DB, scope string, key string, hash string) (*IdempotencyKey, error) {
	claim := IdempotencyKey{
		Scope:       scope,
		Key:         key,
		RequestHash: hash,
		Status:      IdempotencyStatusStarted,
		Attempts:    1,
	}
	err := db.Create(&claim).Error
	if err == nil {
		return nil, nil
	}
	if !utils.IsDuplicateKeyErr(err) {
		return nil, err
	}

	var existing IdempotencyKey
	if err := db.Where("scope = ? AND idempotency_key = ?", scope, key).First(&existing).Error; err != nil {
		return nil, err
	}
	if existing.RequestHash != hash {
		return nil, utils.ErrorIdempotencyKeyReused
	}

	switch existing.Status {
	case IdempotencyStatusSucceeded:
		return &existing, nil
	case IdempotencyStatusStarted:
		if time.Since(existing.UpdatedAt) < idempotencyStaleAfter {
			return nil, utils.ErrorIdempotencyInProgress
		}
	}
	return nil, retakeIdempotency(db, existing)
}

// retakeIdempotency claims a failed or abandoned row again. The update only
// applies while the row is as it was read, so one of several concurrent
// retries wins and the rest see ErrorIdempotencyInProgress.
func retakeIdempotency(db *gorm.DB, existing IdempotencyKey) error {
	result := db.Model(&IdempotencyKey{}).
		Where("id = ? AND status = ? AND attempts = ?", existing.ID, existing.Status, existing.Attempts).
		Updates(map[string]interface{}{
			"status":     IdempotencyStatusStarted,
			"attempts":   existing.Attempts + 1,
			"last_error": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorIdempotencyInProgress
	}
	return nil
}

func markIdempotencySucceeded(db *gorm.DB, scope string, key string, displayId string) error {
	return db.Model(&IdempotencyKey{}).
		Where("scope = ? AND idempotency_key = ?", scope, key).
		Updates(map[string]interface{}{"status": IdempotencyStatusSucceeded, "escrow_display_id": displayId, "last_error": nil}).Error
}

func markIdempotencyFailed(db *gorm.DB, scope string, key string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return db.Model(&IdempotencyKey{}).
		Where("scope = ? AND idempotency_key = ?", scope, key).
		Updates(map[string]interface{}{"status": IdempotencyStatusFailed, "last_error": &msg}).Error
}

// CreateEscrowIdempotent runs CreateEscrow at most once per key. A repeated
// key with the same body returns the escrow created the first time and
// replayed=true. An empty key behaves like CreateEscrow.
func CreateEscrowIdempotent(ctx context.Context, key string, input *NewEscrow) (escrow *Escrow, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" {
		escrow, err = CreateEscrow(ctx, input)
		return escrow, false, err
	}
	if len(key) > maxIdempotencyKeyLength {
		return nil, false, utils.NewValidationError("idempotency_key", "must be at most 255 characters")
	}

	hash, err := requestHash(input)
	if err != nil {
		return nil, false, err
	}
	db := config.GetDB().WithContext(ctx)
	logger := config.GetLogger()

	previous, err := beginIdempotency(db, idempotencyScopeCreateEscrow, key, hash)
	if err != nil {
		return nil, false, err
	}
	if previous != nil && previous.EscrowDisplayId != nil {
		escrow, err = findEscrow(db, *previous.EscrowDisplayId)
		return escrow, true, err
	}

	escrow, err = CreateEscrow(ctx, input)
	if err != nil {
		if markErr := markIdempotencyFailed(db, idempotencyScopeCreateEscrow, key, err); markErr != nil {
			config.LogError(logger, "IdempotencyKey", "CreateEscrowIdempotent", "marking key failed", key, markErr)
		}
		return nil, false, err
	}
	if markErr := markIdempotencySucceeded(db, idempotencyScopeCreateEscrow, key, escrow.DisplayId); markErr != nil {
		// the escrow exists; a retry with this key would create a second one
		config.LogError(logger, "IdempotencyKey", "CreateEscrowIdempotent", "marking key succeeded", key, markErr)
	}
	return escrow, false, nil
}
