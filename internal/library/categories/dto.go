package categories

import "time"

type CreateCategoryRequest struct {
	Name string  `json:"name" binding:"required,min=3,max=500"`
	Slug *string `json:"slug,omitempty" binding:"omitempty,max=500"`
}

type UpdateCategoryRequest struct {
	Name string  `json:"name" binding:"required,min=3,max=500"`
	Slug *string `json:"slug,omitempty" binding:"omitempty,max=500"`
}

type CategoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      *string   `json:"slug,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(c Category) CategoryResponse {
	res := CategoryResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
	if c.Slug.Valid {
		v := c.Slug.String
		res.Slug = &v
	}
	return res
}
