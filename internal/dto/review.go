package dto

// CreateReviewRequest is the payload for reviewing a professor.
type CreateReviewRequest struct {
	Course     string `json:"course" validate:"required,max=120"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Difficulty int    `json:"difficulty" validate:"required,min=1,max=5"`
	Comment    string `json:"comment" validate:"max=2000"`
}
