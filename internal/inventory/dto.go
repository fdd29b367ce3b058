package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/internal/products"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

// AdjustRequest is the admin stock adjustment payload. Change is a signed
// whole number; fractional JSON values fail decoding.
type AdjustRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Change    int       `json:"change" validate:"required"`
	Reason    *string   `json:"reason,omitempty" validate:"omitempty,max=255"`
}

// LogFilter narrows GET /inventory/logs.
type LogFilter struct {
	ProductID  *uuid.UUID
	From       *time.Time
	To         *time.Time
	Pagination pagination.Params
}

// LogDTO is one ledger row.
type LogDTO struct {
	ID        uuid.UUID            `json:"id"`
	ProductID uuid.UUID            `json:"productId"`
	Product   *products.ProductDTO `json:"product,omitempty"`
	Change    int                  `json:"change"`
	Reason    *string              `json:"reason,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// AdjustResult is written as-is: the product under data and the ledger row under log.
type AdjustResult struct {
	Product *products.ProductDTO `json:"data"`
	Log     *LogDTO              `json:"log"`
}

func LogFromModel(l *models.InventoryLog) *LogDTO {
	if l == nil {
		return nil
	}
	return &LogDTO{
		ID:        l.ID,
		ProductID: l.ProductID,
		Product:   products.FromModel(l.Product),
		Change:    l.Change,
		Reason:    l.Reason,
		CreatedAt: l.CreatedAt,
	}
}
