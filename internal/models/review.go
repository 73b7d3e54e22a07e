package models

import "time"

// ProfessorReview is a student's review of an instructor for one course.
type ProfessorReview struct {
	ID         string    `db:"id" json:"id"`
	Professor  string    `db:"professor" json:"professor"`
	Course     string    `db:"course" json:"course"`
	UserID     string    `db:"user_id" json:"-"`
	Rating     int       `db:"rating" json:"rating"`
	Difficulty int       `db:"difficulty" json:"difficulty"`
	Comment    string    `db:"comment" json:"comment"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// ReviewSummary aggregates reviews for a professor.
type ReviewSummary struct {
	Professor         string            `json:"professor"`
	Count             int               `json:"count"`
	AverageRating     float64           `json:"averageRating"`
	AverageDifficulty float64           `json:"averageDifficulty"`
	Reviews           []ProfessorReview `json:"reviews"`
}
