package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
)

const maxDLQErrorLen = 1024

type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !entry.ErrorReason.IsValid() {
		return errors.New("dlq error reason is required")
	}
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > maxDLQErrorLen {
		msg := (*entry.ErrorMessage)[:maxDLQErrorLen]
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}
