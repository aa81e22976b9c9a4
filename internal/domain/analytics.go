package domain

import "time"

// Analytics holds the latest water-quality metrics for a device together
// with the commentary returned by the text-generation service. One item per
// device, upserted in place.
type Analytics struct {
	DeviceID    string  `json:"device_id" dynamodbav:"device_id"`
	TDS         float64 `json:"tds" dynamodbav:"tds"`
	Turbidity   float64 `json:"turbidity" dynamodbav:"turbidity"`
	PH          float64 `json:"ph" dynamodbav:"ph"`
	Temperature float64 `json:"temperature" dynamodbav:"temperature"`
	FlowRate    float64 `json:"flowRate" dynamodbav:"flow_rate"`

	AIAnalysis    string `json:"aiAnalysis" dynamodbav:"ai_analysis"`
	AIPrediction  string `json:"aiPrediction" dynamodbav:"ai_prediction"`
	AISuggestions string `json:"aiSuggestions" dynamodbav:"ai_suggestions"`

	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
	Device    *Device   `json:"device,omitempty" dynamodbav:"-"`
}

type RecordAnalyticsRequest struct {
	TDS         float64 `json:"tds" validate:"required"`
	Turbidity   float64 `json:"turbidity" validate:"required"`
	PH          float64 `json:"ph" validate:"required"`
	Temperature float64 `json:"temperature" validate:"required"`
	FlowRate    float64 `json:"flowRate" validate:"required"`
}
