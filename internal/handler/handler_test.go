package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/domain"
	"github.com/crimelens/crime-insights-service/internal/dto"
	"github.com/crimelens/crime-insights-service/internal/metrics"
	"github.com/crimelens/crime-insights-service/internal/query"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockQueryService is a mock implementation of service.QueryServicer
type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) PredictEvents(ctx context.Context, req *dto.PredictRequest) ([]domain.EnrichedEventRow, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EnrichedEventRow), args.Error(1)
}

func (m *MockQueryService) CrimeByLocation(ctx context.Context, req *dto.CrimeByLocationRequest) ([]domain.AggregateRow, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AggregateRow), args.Error(1)
}

func (m *MockQueryService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestHandler(svc *MockQueryService, options Options) *Handler {
	return NewHandler(svc, metrics.NewRecorder(prometheus.NewRegistry()), options, zap.NewNop())
}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_HealthCheck(t *testing.T) {
	mockService := new(MockQueryService)
	handler := newTestHandler(mockService, Options{})

	mockService.On("Ping", mock.Anything).Return(nil)

	w := serve(handler, "/health")

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
}

func TestHandler_HealthCheck_WarehouseDown(t *testing.T) {
	mockService := new(MockQueryService)
	handler := newTestHandler(mockService, Options{})

	mockService.On("Ping", mock.Anything).Return(errors.New("dial tcp: connection refused"))

	w := serve(handler, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "unavailable", response["status"])
}

func TestHandler_Predict_Success(t *testing.T) {
	mockService := new(MockQueryService)
	handler := newTestHandler(mockService, Options{})

	start := time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)
	expectedReq := &dto.PredictRequest{Limit: "50", Name: "jazz", Location: "London", StartDate: "2025-06-01"}
	mockService.On("PredictEvents", mock.Anything, expectedReq).Return([]domain.EnrichedEventRow{
		{
			EventRow: domain.EventRow{
				ID: "e1", Name: "Jazz Night", Longitude: -0.1, Latitude: 51.5,
				AddressLine: "1 High St", AreaName: "London", EventTimestamp: &start,
			},
			PredictionResult: domain.PredictionResult{Category: "Anti-social behaviour", Confidence: 0.43},
		},
		{
			EventRow:         domain.EventRow{ID: "e2", Name: "Jazz Brunch", AreaName: "London"},
			PredictionResult: domain.PredictionResult{Category: "Burglary", Confidence: 0.2},
		},
	}, nil)

	w := serve(handler, "/predict?limit=50&name=jazz&location=London&start_date=2025-06-01")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var response []map[string]any
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	require.Len(t, response, 2)
	assert.Equal(t, "e1", response[0]["id"])
	assert.Equal(t, "1 High St", response[0]["location"])
	assert.Equal(t, "London", response[0]["lsoa_name"])
	assert.Equal(t, "2025-06-01T19:00:00", response[0]["event_datetime"])
	assert.Equal(t, "Anti-social behaviour", response[0]["crime_type"])
	assert.Equal(t, 0.43, response[0]["crime_type_confidence"])
	assert.Nil(t, response[1]["event_datetime"])
	mockService.AssertExpectations(t)
}

func TestHandler_Predict_EmptyResult(t *testing.T) {
	mockService := new(MockQueryService)
	handler := newTestHandler(mockService, Options{})

	mockService.On("PredictEvents", mock.Anything, mock.Anything).Return([]domain.EnrichedEventRow{}, nil)

	w := serve(handler, "/predict")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHandler_Predict_PropagatesRequestID(t *testing.T) {
	mockService := new(MockQueryService)
	handler := newTestHandler(mockService, Options{})

	mockService.On("PredictEvents", mock.Anything, mock.Anything).Return([]domain.EnrichedEventRow{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
}

func TestHandler_Predict_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantStage  string
	}{
		{
			name:       "validation",
			err:        domain.NewValidationError("limit", "must not exceed %d, got %d", 1000, 5000),
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
			wantStage:  domain.StageValidation,
		},
		{
			name:       "query failure",
			err:        domain.NewQueryExecutionError("event_prediction", errors.New("code: 62, syntax error")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "query_error",
			wantStage:  domain.StageQuery,
		},
		{
			name:       "query timeout",
			err:        domain.NewQueryExecutionError("event_prediction", context.DeadlineExceeded),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "query_timeout",
			wantStage:  domain.StageQuery,
		},
		{
			name:       "prediction failure",
			err:        domain.NewPredictionError(10, errors.New("model service returned 503")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "prediction_error",
			wantStage:  domain.StagePrediction,
		},
		{
			name:       "prediction timeout",
			err:        domain.NewPredictionError(10, context.DeadlineExceeded),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "prediction_timeout",
			wantStage:  domain.StagePrediction,
		},
		{
			name:       "decode failure",
			err:        &domain.DecodeError{Row: 3, Err: errors.New("missing column")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "decode_error",
			wantStage:  domain.StageDecode,
		},
		{
			name:       "unclassified",
			err:        query.ErrMissingReferenceTime,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockQueryService)
			handler := newTestHandler(mockService, Options{})

			mockService.On("PredictEvents", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := serve(handler, "/predict")

			assert.Equal(t, tt.wantStatus, w.Code)

			var response dto.ErrorResponse
			err := json.Unmarshal(w.Body.Bytes(), &response)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, response.Error)
			assert.Equal(t, tt.wantStage, response.Stage)
			assert.Equal(t, tt.err.Error(), response.Message)
		})
	}
}

func TestHandler_Predict_RateLimited(t *testing.T) {
	mockService := new(MockQueryService)
	handler := newTestHandler(mockService, Options{RateLimitPerMinute: 1, RateLimitBurst: 2})

	mockService.On("PredictEvents", mock.Anything, mock.Anything).Return([]domain.EnrichedEventRow{}, nil)

	assert.Equal(t, http.StatusOK, serve(handler, "/predict").Code)
	assert.Equal(t, http.StatusOK, serve(handler, "/predict").Code)

	w := serve(handler, "/predict")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var response dto.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "rate_limited", response.Error)
	mockService.AssertNumberOfCalls(t, "PredictEvents", 2)
}

func TestHandler_CrimeByLocation_Success(t *testing.T) {
	mockService := new(MockQueryService)
	handler := newTestHandler(mockService, Options{RateLimitPerMinute: 1, RateLimitBurst: 1})

	expectedReq := &dto.CrimeByLocationRequest{LocationSearch: "london", FromDate: "2024-01-01", ToDate: "2025-02-01"}
	mockService.On("CrimeByLocation", mock.Anything, expectedReq).Return([]domain.AggregateRow{
		{Category: "Robbery", AreaName: "City of London 001A", YearMonth: "2024-03", Count: 40},
		{Category: "Burglary", AreaName: "City of London 001B", YearMonth: "2024-04", Count: 4},
	}, nil)

	// the analytics endpoint is not rate limited
	for i := 0; i < 3; i++ {
		w := serve(handler, "/analytics/crime_by_location?location_search=london&from_date=2024-01-01&to_date=2025-02-01")
		require.Equal(t, http.StatusOK, w.Code)

		var response []dto.CrimeCountResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		require.Len(t, response, 2)
		assert.Equal(t, "Robbery", response[0].CrimeType)
		assert.Equal(t, uint64(40), response[0].CrimeCount)
		assert.Equal(t, "2024-04", response[1].Month)
	}
	mockService.AssertExpectations(t)
}

func TestHandler_CrimeByLocation_ValidationError(t *testing.T) {
	mockService := new(MockQueryService)
	handler := newTestHandler(mockService, Options{})

	mockService.On("CrimeByLocation", mock.Anything, mock.Anything).
		Return(nil, domain.NewValidationError("from date", "%q is not a YYYY-MM-DD date", "2024/01/01"))

	w := serve(handler, "/analytics/crime_by_location?from_date=2024/01/01")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response dto.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "validation_error", response.Error)
	assert.Contains(t, response.Message, "from date")
}

func TestHandler_Metrics(t *testing.T) {
	mockService := new(MockQueryService)
	handler := newTestHandler(mockService, Options{})

	mockService.On("Ping", mock.Anything).Return(nil)
	serve(handler, "/health")

	w := serve(handler, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "crime_insights_http_requests_total"))
}
