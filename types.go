package soupnight

import "time"

// Photo describes one file in a year's gallery. It is derived from the
// filesystem on every read; nothing about it is stored separately.
type Photo struct {
	FileName     string    `json:"fileName"`
	Year         string    `json:"year"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
	Size         int64     `json:"size"`
}

// RSVP is one entry in the ledger. Append order is submission order.
type RSVP struct {
	Name        string    `json:"name"`
	Guests      int       `json:"guests"`
	SubmittedAt time.Time `json:"submittedAt"`
}
