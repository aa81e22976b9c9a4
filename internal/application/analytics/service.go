package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clearflow/clearflow-api/internal/domain"
)

type Service interface {
	Record(ctx context.Context, userID, serial string, req domain.RecordAnalyticsRequest) (*domain.Analytics, error)
	List(ctx context.Context, userID string) ([]domain.Analytics, error)
}

type analyticsStore interface {
	Put(ctx context.Context, a *domain.Analytics) error
	Get(ctx context.Context, deviceID string) (*domain.Analytics, error)
}

type deviceStore interface {
	GetBySerial(ctx context.Context, serial string) (*domain.Device, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
}

type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type service struct {
	analytics analyticsStore
	devices   deviceStore
	ai        completer
}

type ServiceDeps struct {
	AnalyticsRepo analyticsStore
	DeviceRepo    deviceStore
	AI            completer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		analytics: deps.AnalyticsRepo,
		devices:   deps.DeviceRepo,
		ai:        deps.AI,
	}
}

// commentary is the shape the text-generation service is asked to reply
// with. Replies that are not valid JSON fall back to the raw text as the
// analysis field.
type commentary struct {
	CurrentAnalysis string `json:"currentAnalysis"`
	Predictions     string `json:"predictions"`
	Suggestions     string `json:"suggestions"`
}

// Record upserts the latest water-quality metrics for a device and asks the
// text-generation service for commentary on them. A commentary failure does
// not lose the metrics.
func (s *service) Record(ctx context.Context, userID, serial string, req domain.RecordAnalyticsRequest) (*domain.Analytics, error) {
	d, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, fmt.Errorf("device belongs to another account: %w", domain.ErrForbidden)
	}

	a := &domain.Analytics{
		DeviceID:    d.DeviceID,
		TDS:         req.TDS,
		Turbidity:   req.Turbidity,
		PH:          req.PH,
		Temperature: req.Temperature,
		FlowRate:    req.FlowRate,
		UpdatedAt:   time.Now().UTC(),
	}

	raw, err := s.ai.Complete(ctx, buildPrompt(req))
	if err != nil {
		slog.Warn("water-quality commentary unavailable", "device_id", d.DeviceID, "error", err)
	} else {
		var c commentary
		if jsonErr := json.Unmarshal([]byte(extractJSON(raw)), &c); jsonErr == nil && c.CurrentAnalysis != "" {
			a.AIAnalysis = c.CurrentAnalysis
			a.AIPrediction = c.Predictions
			a.AISuggestions = c.Suggestions
		} else {
			a.AIAnalysis = strings.TrimSpace(raw)
		}
	}

	if err := s.analytics.Put(ctx, a); err != nil {
		return nil, err
	}
	a.Device = d
	return a, nil
}

// List returns the stored analytics for each of the caller's devices,
// skipping units with no recorded metrics.
func (s *service) List(ctx context.Context, userID string) ([]domain.Analytics, error) {
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Analytics, 0, len(devices))
	for i := range devices {
		a, err := s.analytics.Get(ctx, devices[i].DeviceID)
		if err != nil {
			continue
		}
		a.Device = &devices[i]
		out = append(out, *a)
	}
	return out, nil
}

func buildPrompt(req domain.RecordAnalyticsRequest) string {
	return fmt.Sprintf(
		"You are a water-quality analyst for a home purifier. Given these sensor metrics:\n"+
			"TDS: %.2f ppm\nTurbidity: %.2f NTU\npH: %.2f\nTemperature: %.2f C\nFlow rate: %.2f L/min\n"+
			"Reply with a JSON object with exactly these string fields: "+
			`{"currentAnalysis": "...", "predictions": "...", "suggestions": "..."}`,
		req.TDS, req.Turbidity, req.PH, req.Temperature, req.FlowRate,
	)
}

// extractJSON strips any prose or code fences around the first JSON object
// in a reply. Models do not always honor the reply-format instruction.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}
