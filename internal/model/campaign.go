package model

import "time"

type Campaign struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	AudienceSize   int       `db:"audience_size" json:"audience_size"`
	MessagesSent   int       `db:"messages_sent" json:"messages_sent"`
	MessagesFailed int       `db:"messages_failed" json:"messages_failed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
