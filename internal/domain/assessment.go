package domain

import "time"

// Assessment is a stored set of defect ratings for a user and virtue.
type Assessment struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id"`
	VirtueID   string         `json:"virtue_id"`
	Ratings    []DefectRating `json:"ratings"`
	AssessedAt time.Time      `json:"assessed_at"`
	CreatedAt  time.Time      `json:"created_at"`
}
