package models

import (
	"time"
)

// RequestLog is one served HTTP request, written in batches for the admin analytics views.
type RequestLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	RequestID      string    `json:"request_id"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	Route          string    `gorm:"index" json:"route"`
	StatusCode     int       `gorm:"index" json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	AdminSubject   string    `json:"admin_subject,omitempty"`
}

func (RequestLog) TableName() string {
	return "request_logs"
}
