package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eskills-store/backend/internal/application/services"
	"github.com/eskills-store/backend/pkg/constants"
)

type EnrollmentHandler struct {
	svcMgr *services.ServiceManager
}

func NewEnrollmentHandler(svcMgr *services.ServiceManager) *EnrollmentHandler {
	return &EnrollmentHandler{svcMgr: svcMgr}
}

// EnrollRequest optionally names the enrollment mode. Paid modes are
// rejected here; they go through checkout.
type EnrollRequest struct {
	Mode string `json:"mode"`
}

// Enroll handles POST /api/courses/:course_id/enroll
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	var req EnrollRequest
	if c.Request.ContentLength > 0 {
		if !BindJSON(c, &req) {
			return
		}
	}

	enrollment, err := h.svcMgr.Enrollment.Enroll(c.Request.Context(), user.ID, c.Param("course_id"), req.Mode)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		constants.ResponseMessage: "Enrolled successfully",
		"enrollment":              enrollment,
	})
}

// List handles GET /api/enrollments
// ?sync=true refreshes the local mirror from the LMS first.
func (h *EnrollmentHandler) List(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	syncRemote := c.Query("sync") == "true"
	enrollments, err := h.svcMgr.Enrollment.ListEnrollments(c.Request.Context(), user.ID, syncRemote)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}

// Sync handles POST /api/enrollments/sync
func (h *EnrollmentHandler) Sync(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	row, err := h.svcMgr.Auth.GetUserByID(c.Request.Context(), user.ID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	count, err := h.svcMgr.Enrollment.SyncFromLMS(c.Request.Context(), row)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	enrollments, err := h.svcMgr.Enrollment.ListEnrollments(c.Request.Context(), user.ID, false)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"synced":      count,
		"enrollments": enrollments,
	})
}

// Drop handles DELETE /api/enrollments/:course_id
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	HandleDeleteEnvelope(c, "Enrollment dropped", func() error {
		return h.svcMgr.Enrollment.Drop(c.Request.Context(), user.ID, c.Param("course_id"))
	})
}
