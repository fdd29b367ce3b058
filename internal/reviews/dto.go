package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

type UpsertReviewInput struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type ListParams struct {
	Pagination pagination.Params
}

// Author is the reviewer shape exposed publicly.
type Author struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	UserID    uuid.UUID `json:"userId"`
	User      *Author   `json:"user,omitempty"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func FromModel(m *models.Review) *ReviewDTO {
	if m == nil {
		return nil
	}
	dto := &ReviewDTO{
		ID:        m.ID,
		ProductID: m.ProductID,
		UserID:    m.UserID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		dto.User = &Author{ID: m.User.ID, Name: m.User.Name}
	}
	return dto
}
