package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/internal/analytics"
	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/internal/logging"
	"github.com/gcbaptista/quicksearch/services"
)

// API holds the dependencies for API handlers, like the search engine.
type API struct {
	engine    services.SearchEngine
	analytics *analytics.Service
	logger    *zap.Logger
}

// NewAPI creates a new API handler structure. A nil analytics service
// disables search tracking.
func NewAPI(engine services.SearchEngine, analyticsService *analytics.Service, logger *zap.Logger) *API {
	return &API{
		engine:    engine,
		analytics: analyticsService,
		logger:    logging.OrNop(logger),
	}
}

// SetupRoutes defines all the API routes for the search engine.
func SetupRoutes(router *gin.Engine, engine services.SearchEngine, analyticsService *analytics.Service, logger *zap.Logger) {
	apiHandler := NewAPI(engine, analyticsService, logger)

	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	// Document routes
	docRoutes := router.Group("/documents")
	{
		docRoutes.PUT("", apiHandler.PutDocumentsHandler)                  // Add/Update documents
		docRoutes.GET("", apiHandler.GetDocumentsHandler)                  // List documents with pagination
		docRoutes.GET("/:documentId", apiHandler.GetDocumentHandler)       // Get specific document
		docRoutes.DELETE("/:documentId", apiHandler.DeleteDocumentHandler) // Delete specific document
	}

	router.POST("/_search", apiHandler.SearchHandler)
	router.POST("/_build", apiHandler.BuildIndexHandler)

	// Persisted index routes
	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.GET("", apiHandler.ListIndexesHandler)
		indexRoutes.DELETE("/:identity", apiHandler.DestroyIndexHandler)
		indexRoutes.GET("/:identity/jobs", apiHandler.ListJobsHandler)
	}

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Get job status by ID
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Get job performance metrics
	}
}

// HealthCheckHandler reports that the service is up.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sendEngineError maps engine errors onto the structured error responses.
func (api *API) sendEngineError(c *gin.Context, operation string, err error) {
	var validationErr *internalErrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed",
			ErrorDetail{Field: validationErr.Field, Message: validationErr.Message, Code: "VALIDATION_ERROR"})
	case errors.Is(err, internalErrors.ErrInvalidInput):
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
	case errors.Is(err, internalErrors.ErrDocumentNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeDocumentNotFound, err.Error())
	case errors.Is(err, internalErrors.ErrJobNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeJobNotFound, err.Error())
	case errors.Is(err, internalErrors.ErrStoreClosed):
		SendError(c, http.StatusServiceUnavailable, ErrorCodeUnavailable, "Search engine is shutting down")
	default:
		api.logger.Error("request failed", zap.String("operation", operation), zap.Error(err))
		SendInternalError(c, operation, err)
	}
}
