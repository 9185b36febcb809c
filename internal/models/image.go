package models

import "time"

type Image struct {
	ID        int64     `json:"id"`
	OfficeID  int64     `json:"-"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"-"`
}
