package domain

import "time"

// Component health values reported by the unit's self-check.
const (
	ComponentOK          = "ok"
	ComponentReplaceSoon = "replace soon"
	ComponentFaulty      = "faulty"
)

// ComponentStatus is the latest self-reported health of a device's parts.
// One item per device, upserted in place.
type ComponentStatus struct {
	DeviceID      string    `json:"device_id" dynamodbav:"device_id"`
	PrimaryFilter string    `json:"primaryFilter" dynamodbav:"primary_filter"`
	UVLamp        string    `json:"uvLamp" dynamodbav:"uv_lamp"`
	WaterPump     string    `json:"waterPump" dynamodbav:"water_pump"`
	SensorArray   string    `json:"sensorArray" dynamodbav:"sensor_array"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
	Device        *Device   `json:"device,omitempty" dynamodbav:"-"`
}

type UpdateStatusRequest struct {
	PrimaryFilter string `json:"primaryFilter" validate:"omitempty,oneof=ok 'replace soon' faulty"`
	UVLamp        string `json:"uvLamp" validate:"omitempty,oneof=ok 'replace soon' faulty"`
	WaterPump     string `json:"waterPump" validate:"omitempty,oneof=ok faulty"`
	SensorArray   string `json:"sensorArray" validate:"omitempty,oneof=ok faulty"`
}
