package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eskills-store/backend/internal/application/services"
)

type ReportHandler struct {
	svcMgr *services.ServiceManager
}

func NewReportHandler(svcMgr *services.ServiceManager) *ReportHandler {
	return &ReportHandler{svcMgr: svcMgr}
}

type AdminQueryRequest struct {
	SQL    string        `json:"sql"`
	Params []interface{} `json:"params"`
}

// Query handles POST /api/admin/reports/query
// The SQL is parsed and rejected unless it is a single SELECT against the
// storefront tables; see QueryGuard.
func (h *ReportHandler) Query(c *gin.Context) {
	var req AdminQueryRequest
	if !BindJSON(c, &req) {
		return
	}

	if req.SQL == "" {
		RespondError(c, http.StatusBadRequest, "SQL query cannot be empty")
		return
	}

	result, err := h.svcMgr.Report.RunQuery(c.Request.Context(), req.SQL, req.Params)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": result,
	})
}

// Summary handles GET /api/admin/reports/summary
func (h *ReportHandler) Summary(c *gin.Context) {
	HandleGetEnvelope(c, "summary", func() (interface{}, error) {
		return h.svcMgr.Report.GetSalesSummary(c.Request.Context())
	})
}

// TopCourses handles GET /api/admin/reports/top-courses
func (h *ReportHandler) TopCourses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	HandleGetEnvelope(c, "courses", func() (interface{}, error) {
		return h.svcMgr.Report.GetTopCourses(c.Request.Context(), limit)
	})
}
