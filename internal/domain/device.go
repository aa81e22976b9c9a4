package domain

import "time"

// Device is a physical purifier unit. Serial is the hardware identifier
// printed on the unit; it is globally unique and is what ESP32 firmware
// reports when pushing telemetry.
type Device struct {
	DeviceID  string    `json:"id" dynamodbav:"device_id"`
	Serial    string    `json:"serial" dynamodbav:"serial"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Name      string    `json:"name" dynamodbav:"name"`
	Model     string    `json:"model" dynamodbav:"model"`
	Location  string    `json:"location" dynamodbav:"location"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterDeviceRequest struct {
	Name     string `json:"deviceName" validate:"required"`
	Serial   string `json:"deviceId" validate:"required"`
	Model    string `json:"model" validate:"required"`
	Location string `json:"location" validate:"required"`
}

type LinkDeviceRequest struct {
	Serial string `json:"deviceId" validate:"required"`
}

// DeviceOverview is the dashboard rollup: one device with its latest
// component status and analytics, either of which may be missing.
type DeviceOverview struct {
	Device    Device           `json:"device"`
	Status    *ComponentStatus `json:"status,omitempty"`
	Analytics *Analytics       `json:"analytics,omitempty"`
}
