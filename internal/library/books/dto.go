package books

import (
	"time"

	"scribe-backend/internal/library/availability"
)

// ===== Requests =====

type CreateBookRequest struct {
	Title      string  `json:"title" binding:"required,min=6,max=500"`
	Author     string  `json:"author" binding:"required,min=6,max=500"`
	Quantity   int     `json:"quantity" binding:"min=0"`
	CategoryID *string `json:"category_id,omitempty" binding:"omitempty,ulid"`
}

// PUT は全項目置き換え
type UpdateBookRequest struct {
	Title      string  `json:"title" binding:"required,min=6,max=500"`
	Author     string  `json:"author" binding:"required,min=6,max=500"`
	Quantity   int     `json:"quantity" binding:"min=0"`
	CategoryID *string `json:"category_id,omitempty" binding:"omitempty,ulid"`
}

// ===== Responses =====

type BookResponse struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Author            string    `json:"author"`
	Quantity          int       `json:"quantity"`
	LendingQuantity   int       `json:"lending_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	CategoryID        *string   `json:"category_id,omitempty"`
	CategoryName      *string   `json:"category_name,omitempty"`
	Archived          bool      `json:"archived"`
	CreatedAt         time.Time `json:"created_at"`
}

func toResponse(b Book, lending int) BookResponse {
	res := BookResponse{
		ID:                b.ID,
		Title:             b.Title,
		Author:            b.Author,
		Quantity:          b.Quantity,
		LendingQuantity:   lending,
		AvailableQuantity: availability.Available(b.Quantity, lending),
		Archived:          b.Archived,
		CreatedAt:         b.CreatedAt,
	}
	if b.CategoryID.Valid {
		v := b.CategoryID.String
		res.CategoryID = &v
	}
	if b.CategoryName.Valid {
		v := b.CategoryName.String
		res.CategoryName = &v
	}
	return res
}
