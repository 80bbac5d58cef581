package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eskills-store/backend/internal/application/services"
	"github.com/eskills-store/backend/internal/domain/models"
)

type CartHandler struct {
	svcMgr *services.ServiceManager
}

func NewCartHandler(svcMgr *services.ServiceManager) *CartHandler {
	return &CartHandler{svcMgr: svcMgr}
}

func cartPayload(cart *models.Cart) gin.H {
	return gin.H{
		"cart":       cart,
		"total":      cart.Total(),
		"item_count": len(cart.Items),
	}
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	cart, err := h.svcMgr.Cart.GetCart(c.Request.Context(), user.ID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartPayload(cart))
}

// AddItemRequest optionally pins the enrollment mode for a cart item.
// Without it the course's own resolved mode is used.
type AddItemRequest struct {
	Mode string `json:"mode"`
}

// AddItem handles POST /api/cart/items/:course_id
func (h *CartHandler) AddItem(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	var req AddItemRequest
	if c.Request.ContentLength > 0 {
		if !BindJSON(c, &req) {
			return
		}
	}

	cart, err := h.svcMgr.Cart.AddItem(c.Request.Context(), user.ID, c.Param("course_id"), req.Mode)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cartPayload(cart))
}

// RemoveItem handles DELETE /api/cart/items/:course_id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	cart, err := h.svcMgr.Cart.RemoveItem(c.Request.Context(), user.ID, c.Param("course_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartPayload(cart))
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	HandleDeleteEnvelope(c, "Cart cleared", func() error {
		return h.svcMgr.Cart.Clear(c.Request.Context(), user.ID)
	})
}
