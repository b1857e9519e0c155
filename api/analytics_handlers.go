package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/services"
)

// GetAnalyticsHandler handles requests for the analytics dashboard data
func (api *API) GetAnalyticsHandler(c *gin.Context) {
	if api.analytics == nil {
		SendError(c, http.StatusNotImplemented, ErrorCodeInvalidRequest, "Analytics are disabled")
		return
	}

	dashboard, err := api.analytics.GetDashboardData(c.Request.Context())
	if err != nil {
		api.sendEngineError(c, "analytics", err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// trackSearch records a served query. Build and destroy requests are not
// searches and are skipped.
func (api *API) trackSearch(opts services.SearchOptions, resp *model.SearchResponse, elapsed time.Duration) {
	if api.analytics == nil || opts.Build || opts.Destroy {
		return
	}
	api.analytics.TrackSearchEvent(model.SearchEvent{
		Fields:       strings.Join(model.FieldNames(opts.Fields), ","),
		Query:        opts.Query,
		SearchType:   searchType(opts),
		ResponseTime: elapsed,
		ResultCount:  len(resp.Rows),
	})
}

func searchType(opts services.SearchOptions) string {
	switch {
	case opts.Filter != nil:
		return model.SearchTypeFiltered
	case opts.Stale == services.StaleOK:
		return model.SearchTypeStaleOK
	case opts.Stale == services.StaleUpdateAfter:
		return model.SearchTypeUpdateAfter
	default:
		return model.SearchTypeFresh
	}
}
