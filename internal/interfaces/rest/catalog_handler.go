package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eskills-store/backend/internal/application/services"
)

type CatalogHandler struct {
	svcMgr *services.ServiceManager
}

func NewCatalogHandler(svcMgr *services.ServiceManager) *CatalogHandler {
	return &CatalogHandler{svcMgr: svcMgr}
}

// ListCourses handles GET /api/courses
// Anonymous visitors get the plain catalog; authenticated users additionally
// see which courses they are already enrolled in.
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	userID := ""
	if user := GetUserFromContext(c); user != nil {
		userID = user.ID
	}

	list, err := h.svcMgr.Catalog.ListCourses(c.Request.Context(), page, pageSize, userID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetCourse handles GET /api/courses/:course_id
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	courseID := c.Param("course_id")

	userID := ""
	if user := GetUserFromContext(c); user != nil {
		userID = user.ID
	}

	course, err := h.svcMgr.Catalog.GetCourse(c.Request.Context(), courseID, userID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}
