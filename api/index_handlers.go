package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
)

// ListIndexesHandler lists the persisted indexes and their staleness.
func (api *API) ListIndexesHandler(c *gin.Context) {
	infos, err := api.engine.Indexes(c.Request.Context())
	if err != nil {
		api.sendEngineError(c, "list indexes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"indexes": infos,
		"total":   len(infos),
	})
}

// BuildIndexHandler brings the index a search request would use up to date
// in the background. The body has the same shape as a search request.
func (api *API) BuildIndexHandler(c *gin.Context) {
	var req SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	opts, result := req.ToOptions()
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	jobID, err := api.engine.BuildAsync(opts)
	if err != nil {
		if errors.Is(err, internalErrors.ErrInvalidInput) || errors.Is(err, internalErrors.ErrStoreClosed) {
			api.sendEngineError(c, "build index", err)
			return
		}
		SendJobExecutionError(c, "build index", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Index build started",
		"job_id":  jobID,
	})
}

// DestroyIndexHandler drops a persisted index in the background.
func (api *API) DestroyIndexHandler(c *gin.Context) {
	name := c.Param("identity")

	jobID, err := api.engine.DestroyAsync(name)
	if err != nil {
		if errors.Is(err, internalErrors.ErrInvalidInput) || errors.Is(err, internalErrors.ErrStoreClosed) {
			api.sendEngineError(c, "destroy index", err)
			return
		}
		SendJobExecutionError(c, "destroy index", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Index destruction started for '" + name + "'",
		"job_id":  jobID,
	})
}
