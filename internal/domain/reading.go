package domain

import "time"

// Reading is one telemetry sample pushed by a purifier unit.
// ReadingID is a ULID, so the table's sort key is also creation order.
type Reading struct {
	DeviceID                 string    `json:"device_id" dynamodbav:"device_id"`
	ReadingID                string    `json:"id" dynamodbav:"reading_id"`
	UserID                   string    `json:"user_id" dynamodbav:"user_id"`
	TDSValue                 float64   `json:"tdsValue" dynamodbav:"tds_value"`
	Temperature              float64   `json:"temperature" dynamodbav:"temperature"`
	Humidity                 float64   `json:"humidity" dynamodbav:"humidity"`
	SourceLevel              float64   `json:"sourceLevel" dynamodbav:"source_level"`
	DetectionChamberLevel    float64   `json:"detectionChamberLevel" dynamodbav:"detection_chamber_level"`
	PurificationChamberLevel float64   `json:"purificationChamberLevel" dynamodbav:"purification_chamber_level"`
	DestBottomLevel          float64   `json:"destBottomLevel" dynamodbav:"dest_bottom_level"`
	DestTopLevel             bool      `json:"destTopLevel" dynamodbav:"dest_top_level"`
	WaterSafe                bool      `json:"waterSafe" dynamodbav:"water_safe"`
	CreatedAt                time.Time `json:"created" dynamodbav:"created_at"`
}

type AddReadingRequest struct {
	Serial                   string  `json:"deviceId" validate:"required"`
	TDSValue                 float64 `json:"tdsValue"`
	Temperature              float64 `json:"temperature"`
	Humidity                 float64 `json:"humidity"`
	SourceLevel              float64 `json:"sourceLevel"`
	DetectionChamberLevel    float64 `json:"detectionChamberLevel"`
	PurificationChamberLevel float64 `json:"purificationChamberLevel"`
	DestBottomLevel          float64 `json:"destBottomLevel"`
	DestTopLevel             bool    `json:"destTopLevel"`
	WaterSafe                bool    `json:"waterSafe"`
}
