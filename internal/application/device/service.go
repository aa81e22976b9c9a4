package device

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearflow/clearflow-api/internal/domain"
)

type Service interface {
	Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.Device, error)
	Link(ctx context.Context, userID, serial string) (*domain.Device, error)
	List(ctx context.Context, userID string) ([]domain.Device, error)
	IssueToken(ctx context.Context, userID, deviceID string) (string, error)
	AddReading(ctx context.Context, userID, tokenSerial string, req domain.AddReadingRequest) (*domain.Reading, error)
	ListReadings(ctx context.Context, userID, serial string, limit int32) ([]domain.Reading, error)
	UpdateStatus(ctx context.Context, userID, serial string, req domain.UpdateStatusRequest) (*domain.ComponentStatus, error)
	GetStatuses(ctx context.Context, userID string) ([]domain.ComponentStatus, error)
	Overview(ctx context.Context, userID string) ([]domain.DeviceOverview, error)
}

type deviceStore interface {
	Put(ctx context.Context, d *domain.Device) error
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	GetBySerial(ctx context.Context, serial string) (*domain.Device, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
	Update(ctx context.Context, deviceID string, updates map[string]interface{}) error
}

type readingStore interface {
	Put(ctx context.Context, reading *domain.Reading) error
	ListByDevice(ctx context.Context, deviceID string, limit int32) ([]domain.Reading, error)
}

type statusStore interface {
	Put(ctx context.Context, s *domain.ComponentStatus) error
	Get(ctx context.Context, deviceID string) (*domain.ComponentStatus, error)
}

type analyticsStore interface {
	Get(ctx context.Context, deviceID string) (*domain.Analytics, error)
}

type alertStore interface {
	Put(ctx context.Context, a *domain.Alert) error
}

type deviceSigner interface {
	SignDevice(serial string) (string, error)
}

type alertPublisher interface {
	PublishAlert(ctx context.Context, message string) error
}

type service struct {
	devices   deviceStore
	readings  readingStore
	statuses  statusStore
	analytics analyticsStore
	alerts    alertStore
	jwt       deviceSigner
	publisher alertPublisher
	newID     func() string
}

type ServiceDeps struct {
	DeviceRepo    deviceStore
	ReadingRepo   readingStore
	StatusRepo    statusStore
	AnalyticsRepo analyticsStore
	AlertRepo     alertStore
	JWT           deviceSigner
	Publisher     alertPublisher
	NewID         func() string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		devices:   deps.DeviceRepo,
		readings:  deps.ReadingRepo,
		statuses:  deps.StatusRepo,
		analytics: deps.AnalyticsRepo,
		alerts:    deps.AlertRepo,
		jwt:       deps.JWT,
		publisher: deps.Publisher,
		newID:     deps.NewID,
	}
}

// Register creates a device owned by the caller. The hardware serial is
// globally unique across all tenants.
func (s *service) Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.Device, error) {
	if _, err := s.devices.GetBySerial(ctx, req.Serial); err == nil {
		return nil, fmt.Errorf("device %s already registered: %w", req.Serial, domain.ErrConflict)
	}
	now := time.Now().UTC()
	d := &domain.Device{
		DeviceID:  s.newID(),
		Serial:    req.Serial,
		UserID:    userID,
		Name:      req.Name,
		Model:     req.Model,
		Location:  req.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.devices.Put(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Link claims an already-registered device for the caller, for example after
// a factory pre-registration or an account move.
func (s *service) Link(ctx context.Context, userID, serial string) (*domain.Device, error) {
	d, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if d.UserID == userID {
		return d, nil
	}
	if err := s.devices.Update(ctx, d.DeviceID, map[string]interface{}{"user_id": userID}); err != nil {
		return nil, err
	}
	d.UserID = userID
	return d, nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Device, error) {
	return s.devices.ListByUser(ctx, userID)
}

// IssueToken mints a device-typed token for a unit the caller owns. The
// token is flashed onto the firmware and used for telemetry pushes.
func (s *service) IssueToken(ctx context.Context, userID, deviceID string) (string, error) {
	d, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if d.UserID != userID {
		return "", fmt.Errorf("device belongs to another account: %w", domain.ErrForbidden)
	}
	return s.jwt.SignDevice(d.Serial)
}

// AddReading ingests one telemetry sample. The caller is either a logged-in
// owner (userID set) or the unit itself (tokenSerial set); a device token
// can only push for its own serial. An unsafe sample additionally records a
// dashboard alert and publishes to the alert topic, both best-effort.
func (s *service) AddReading(ctx context.Context, userID, tokenSerial string, req domain.AddReadingRequest) (*domain.Reading, error) {
	d, err := s.devices.GetBySerial(ctx, req.Serial)
	if err != nil {
		return nil, err
	}
	if tokenSerial != "" {
		if tokenSerial != d.Serial {
			return nil, fmt.Errorf("token not issued for this device: %w", domain.ErrForbidden)
		}
	} else if d.UserID != userID {
		return nil, fmt.Errorf("device belongs to another account: %w", domain.ErrForbidden)
	}

	reading := &domain.Reading{
		DeviceID:                 d.DeviceID,
		ReadingID:                s.newID(),
		UserID:                   d.UserID,
		TDSValue:                 req.TDSValue,
		Temperature:              req.Temperature,
		Humidity:                 req.Humidity,
		SourceLevel:              req.SourceLevel,
		DetectionChamberLevel:    req.DetectionChamberLevel,
		PurificationChamberLevel: req.PurificationChamberLevel,
		DestBottomLevel:          req.DestBottomLevel,
		DestTopLevel:             req.DestTopLevel,
		WaterSafe:                req.WaterSafe,
		CreatedAt:                time.Now().UTC(),
	}
	if err := s.readings.Put(ctx, reading); err != nil {
		return nil, err
	}

	if !req.WaterSafe {
		s.raiseUnsafeAlert(ctx, d)
	}
	return reading, nil
}

// raiseUnsafeAlert records an alert and fans it out. Neither failure blocks
// the telemetry write that triggered it.
func (s *service) raiseUnsafeAlert(ctx context.Context, d *domain.Device) {
	a := &domain.Alert{
		AlertID:   s.newID(),
		UserID:    d.UserID,
		DeviceID:  d.DeviceID,
		Serial:    d.Serial,
		Message:   fmt.Sprintf("Unsafe water detected on %s (%s)", d.Name, d.Serial),
		Read:      0,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.alerts.Put(ctx, a); err != nil {
		slog.Error("failed to record unsafe-water alert", "device_id", d.DeviceID, "error", err)
	}
	if err := s.publisher.PublishAlert(ctx, a.Message); err != nil {
		slog.Warn("failed to publish unsafe-water alert", "device_id", d.DeviceID, "error", err)
	}
}

func (s *service) ListReadings(ctx context.Context, userID, serial string, limit int32) ([]domain.Reading, error) {
	d, err := s.ownedBySerial(ctx, userID, serial)
	if err != nil {
		return nil, err
	}
	return s.readings.ListByDevice(ctx, d.DeviceID, limit)
}

// UpdateStatus upserts the component health report. Fields left empty in the
// request keep their previous value, defaulting to ok for a first report.
func (s *service) UpdateStatus(ctx context.Context, userID, serial string, req domain.UpdateStatusRequest) (*domain.ComponentStatus, error) {
	d, err := s.ownedBySerial(ctx, userID, serial)
	if err != nil {
		return nil, err
	}
	cur, err := s.statuses.Get(ctx, d.DeviceID)
	if err != nil {
		cur = &domain.ComponentStatus{
			DeviceID:      d.DeviceID,
			PrimaryFilter: domain.ComponentOK,
			UVLamp:        domain.ComponentOK,
			WaterPump:     domain.ComponentOK,
			SensorArray:   domain.ComponentOK,
		}
	}
	if req.PrimaryFilter != "" {
		cur.PrimaryFilter = req.PrimaryFilter
	}
	if req.UVLamp != "" {
		cur.UVLamp = req.UVLamp
	}
	if req.WaterPump != "" {
		cur.WaterPump = req.WaterPump
	}
	if req.SensorArray != "" {
		cur.SensorArray = req.SensorArray
	}
	cur.UpdatedAt = time.Now().UTC()
	if err := s.statuses.Put(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// GetStatuses returns the latest component report for each of the caller's
// devices, skipping units that have never reported.
func (s *service) GetStatuses(ctx context.Context, userID string) ([]domain.ComponentStatus, error) {
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ComponentStatus, 0, len(devices))
	for i := range devices {
		st, err := s.statuses.Get(ctx, devices[i].DeviceID)
		if err != nil {
			continue
		}
		st.Device = &devices[i]
		out = append(out, *st)
	}
	return out, nil
}

// Overview assembles the dashboard rollup for all of the caller's devices.
func (s *service) Overview(ctx context.Context, userID string) ([]domain.DeviceOverview, error) {
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DeviceOverview, 0, len(devices))
	for _, d := range devices {
		o := domain.DeviceOverview{Device: d}
		if st, err := s.statuses.Get(ctx, d.DeviceID); err == nil {
			o.Status = st
		}
		if an, err := s.analytics.Get(ctx, d.DeviceID); err == nil {
			o.Analytics = an
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *service) ownedBySerial(ctx context.Context, userID, serial string) (*domain.Device, error) {
	d, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, fmt.Errorf("device belongs to another account: %w", domain.ErrForbidden)
	}
	return d, nil
}
