package domain

import "time"

// BroadcastJob содержит задачу рассылки всем пользователям.
type BroadcastJob struct {
	ID          string    `json:"job_id"`
	AdminID     int64     `json:"admin_id"`
	ChatID      int64     `json:"chat_id"`
	Text        string    `json:"text"`
	RequestedAt time.Time `json:"requested_at"`
}
