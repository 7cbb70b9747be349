package domain

import "time"

type Assignment struct {
	ID       string    `json:"id"`
	CourseID string    `json:"courseId"`
	Title    string    `json:"title"`
	Points   int32     `json:"points"`
	Due      time.Time `json:"due"`
}
