package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/crimelens/crime-insights-service/docs"
	"github.com/crimelens/crime-insights-service/internal/domain"
	"github.com/crimelens/crime-insights-service/internal/dto"
	"github.com/crimelens/crime-insights-service/internal/metrics"
	"github.com/crimelens/crime-insights-service/internal/service"
)

// Options configures the HTTP surface
type Options struct {
	// RateLimitPerMinute and RateLimitBurst bound /predict per client; zero disables the limiter
	RateLimitPerMinute int
	RateLimitBurst     int
}

type Handler struct {
	queryService service.QueryServicer
	metrics      *metrics.Recorder
	options      Options
	router       *gin.Engine
	log          *zap.Logger
}

func NewHandler(queryService service.QueryServicer, recorder *metrics.Recorder, options Options, log *zap.Logger) *Handler {
	h := &Handler{
		queryService: queryService,
		metrics:      recorder,
		options:      options,
		router:       gin.New(),
		log:          log,
	}

	h.router.Use(gin.Recovery(), requestIDMiddleware(), accessLogMiddleware(log), metricsMiddleware(recorder))
	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	predict := []gin.HandlerFunc{h.predict}
	if h.options.RateLimitPerMinute > 0 {
		predict = append([]gin.HandlerFunc{rateLimitMiddleware(h.options.RateLimitPerMinute, h.options.RateLimitBurst)}, predict...)
	}

	h.router.GET("/health", h.healthCheck)
	h.router.GET("/predict", predict...)
	h.router.GET("/analytics/crime_by_location", h.crimeByLocation)
	h.router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check that the service and its warehouse connection are up
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	if err := h.queryService.Ping(c.Request.Context()); err != nil {
		h.log.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// predict handles GET /predict
// @Summary Upcoming events with crime predictions
// @Description List upcoming events matching the filters, each enriched with the predicted crime category and its confidence
// @Tags predictions
// @Produce json
// @Param limit query int false "Maximum number of events (default 100, max 1000)" example:"50"
// @Param name query string false "Case-insensitive substring of the event name" example:"jazz"
// @Param location query string false "Case-insensitive substring of the venue city" example:"London"
// @Param start_date query string false "Earliest event date (YYYY-MM-DD)" example:"2025-06-01"
// @Param end_date query string false "Latest event date, inclusive (YYYY-MM-DD)" example:"2025-06-30"
// @Success 200 {array} dto.EnrichedEventResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /predict [get]
func (h *Handler) predict(c *gin.Context) {
	var req dto.PredictRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid predict request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Stage:   domain.StageValidation,
			Message: err.Error(),
		})
		return
	}

	rows, err := h.queryService.PredictEvents(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewEnrichedEventResponses(rows))
}

// crimeByLocation handles GET /analytics/crime_by_location
// @Summary Crime counts by location
// @Description Crime counts grouped by category, area and month, largest first
// @Tags analytics
// @Produce json
// @Param location_search query string false "Case-insensitive substring of the LSOA name" example:"london"
// @Param from_date query string false "First month to include (YYYY-MM-DD, compared by month)" example:"2024-01-01"
// @Param to_date query string false "Last month to include (YYYY-MM-DD, compared by month)" example:"2025-02-01"
// @Success 200 {array} dto.CrimeCountResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analytics/crime_by_location [get]
func (h *Handler) crimeByLocation(c *gin.Context) {
	var req dto.CrimeByLocationRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid crime analytics request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Stage:   domain.StageValidation,
			Message: err.Error(),
		})
		return
	}

	rows, err := h.queryService.CrimeByLocation(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCrimeCountResponses(rows))
}

// writeError maps the error taxonomy onto HTTP responses
func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := classify(err)

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("error_code", code),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", fields...)
	} else {
		h.log.Warn("Request rejected", fields...)
	}

	c.JSON(status, dto.ErrorResponse{
		Error:   code,
		Stage:   domain.Stage(err),
		Message: err.Error(),
	})
}

func classify(err error) (int, string) {
	var (
		validationErr *domain.ValidationError
		queryErr      *domain.QueryExecutionError
		predictionErr *domain.PredictionError
		decodeErr     *domain.DecodeError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &queryErr):
		if queryErr.Timeout {
			return http.StatusInternalServerError, "query_timeout"
		}
		return http.StatusInternalServerError, "query_error"
	case errors.As(err, &predictionErr):
		if predictionErr.Timeout {
			return http.StatusInternalServerError, "prediction_timeout"
		}
		return http.StatusInternalServerError, "prediction_error"
	case errors.As(err, &decodeErr):
		return http.StatusInternalServerError, "decode_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
