package domain

import "time"

// Alert is a dashboard notification raised when a device reports an unsafe
// reading. Read is 0/1 rather than bool so the unread GSI filter stays a
// numeric compare.
type Alert struct {
	AlertID   string    `json:"id" dynamodbav:"alert_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	DeviceID  string    `json:"device_id" dynamodbav:"device_id"`
	Serial    string    `json:"deviceId" dynamodbav:"serial"`
	Message   string    `json:"message" dynamodbav:"message"`
	Read      int       `json:"read" dynamodbav:"read"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
