package analytics

import (
	"context"
	"testing"

	"github.com/clearflow/clearflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAnalyticsStore struct{ mock.Mock }

func (m *mockAnalyticsStore) Put(ctx context.Context, a *domain.Analytics) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAnalyticsStore) Get(ctx context.Context, deviceID string) (*domain.Analytics, error) {
	args := m.Called(ctx, deviceID)
	if a, _ := args.Get(0).(*domain.Analytics); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDeviceStore struct{ mock.Mock }

func (m *mockDeviceStore) GetBySerial(ctx context.Context, serial string) (*domain.Device, error) {
	args := m.Called(ctx, serial)
	if d, _ := args.Get(0).(*domain.Device); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDeviceStore) ListByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	args := m.Called(ctx, userID)
	if ds, _ := args.Get(0).([]domain.Device); ds != nil {
		return ds, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCompleter struct{ mock.Mock }

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newTestService(as *mockAnalyticsStore, ds *mockDeviceStore, c *mockCompleter) Service {
	return NewService(ServiceDeps{AnalyticsRepo: as, DeviceRepo: ds, AI: c})
}

func metricsReq() domain.RecordAnalyticsRequest {
	return domain.RecordAnalyticsRequest{TDS: 180, Turbidity: 0.4, PH: 7.1, Temperature: 22, FlowRate: 1.8}
}

// --- tests ---

func TestRecord_OwnershipEnforced(t *testing.T) {
	ds := &mockDeviceStore{}
	ds.On("GetBySerial", mock.Anything, "ESP32-0001").
		Return(&domain.Device{DeviceID: "d1", UserID: "uid-2"}, nil)

	_, err := newTestService(&mockAnalyticsStore{}, ds, &mockCompleter{}).
		Record(context.Background(), "uid-1", "ESP32-0001", metricsReq())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRecord_ParsesStructuredCommentary(t *testing.T) {
	as, ds, c := &mockAnalyticsStore{}, &mockDeviceStore{}, &mockCompleter{}
	ds.On("GetBySerial", mock.Anything, "ESP32-0001").
		Return(&domain.Device{DeviceID: "d1", UserID: "uid-1"}, nil)
	c.On("Complete", mock.Anything, mock.Anything).
		Return("```json\n{\"currentAnalysis\":\"good\",\"predictions\":\"stable\",\"suggestions\":\"none\"}\n```", nil)
	as.On("Put", mock.Anything, mock.MatchedBy(func(a *domain.Analytics) bool {
		return a.AIAnalysis == "good" && a.AIPrediction == "stable" && a.AISuggestions == "none"
	})).Return(nil)

	got, err := newTestService(as, ds, c).Record(context.Background(), "uid-1", "ESP32-0001", metricsReq())
	require.NoError(t, err)
	assert.Equal(t, "good", got.AIAnalysis)
	as.AssertExpectations(t)
}

func TestRecord_UnstructuredReplyFallsBackToRawText(t *testing.T) {
	as, ds, c := &mockAnalyticsStore{}, &mockDeviceStore{}, &mockCompleter{}
	ds.On("GetBySerial", mock.Anything, "ESP32-0001").
		Return(&domain.Device{DeviceID: "d1", UserID: "uid-1"}, nil)
	c.On("Complete", mock.Anything, mock.Anything).Return("  water looks fine overall  ", nil)
	as.On("Put", mock.Anything, mock.MatchedBy(func(a *domain.Analytics) bool {
		return a.AIAnalysis == "water looks fine overall" && a.AIPrediction == ""
	})).Return(nil)

	_, err := newTestService(as, ds, c).Record(context.Background(), "uid-1", "ESP32-0001", metricsReq())
	require.NoError(t, err)
	as.AssertExpectations(t)
}

func TestRecord_CommentaryFailureKeepsMetrics(t *testing.T) {
	as, ds, c := &mockAnalyticsStore{}, &mockDeviceStore{}, &mockCompleter{}
	ds.On("GetBySerial", mock.Anything, "ESP32-0001").
		Return(&domain.Device{DeviceID: "d1", UserID: "uid-1"}, nil)
	c.On("Complete", mock.Anything, mock.Anything).Return("", assert.AnError)
	as.On("Put", mock.Anything, mock.MatchedBy(func(a *domain.Analytics) bool {
		return a.TDS == 180 && a.AIAnalysis == ""
	})).Return(nil)

	got, err := newTestService(as, ds, c).Record(context.Background(), "uid-1", "ESP32-0001", metricsReq())
	require.NoError(t, err)
	assert.Equal(t, 180.0, got.TDS)
	as.AssertExpectations(t)
}

func TestList_SkipsDevicesWithoutMetrics(t *testing.T) {
	as, ds := &mockAnalyticsStore{}, &mockDeviceStore{}
	ds.On("ListByUser", mock.Anything, "uid-1").Return([]domain.Device{
		{DeviceID: "d1", Serial: "ESP32-0001"},
		{DeviceID: "d2", Serial: "ESP32-0002"},
	}, nil)
	as.On("Get", mock.Anything, "d1").Return(&domain.Analytics{DeviceID: "d1", TDS: 150}, nil)
	as.On("Get", mock.Anything, "d2").Return(nil, domain.ErrNotFound)

	out, err := newTestService(as, ds, &mockCompleter{}).List(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "d1", out[0].DeviceID)
	require.NotNil(t, out[0].Device)
}
