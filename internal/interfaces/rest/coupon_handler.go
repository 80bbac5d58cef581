package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eskills-store/backend/internal/application/services"
	"github.com/eskills-store/backend/pkg/constants"
)

type CouponHandler struct {
	svcMgr *services.ServiceManager
}

func NewCouponHandler(svcMgr *services.ServiceManager) *CouponHandler {
	return &CouponHandler{svcMgr: svcMgr}
}

// ValidateCouponRequest represents a coupon check against the caller's cart
type ValidateCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// Validate handles POST /api/coupons/validate
// The quote is computed against the caller's current cart.
func (h *CouponHandler) Validate(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	var req ValidateCouponRequest
	if !BindJSON(c, &req) {
		return
	}

	cart, err := h.svcMgr.Cart.GetCart(c.Request.Context(), user.ID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	quote, err := h.svcMgr.Coupon.Validate(c.Request.Context(), req.Code, cart, user.Email)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// Create handles POST /api/admin/coupons
func (h *CouponHandler) Create(c *gin.Context) {
	var req services.CouponRequest
	if !BindJSON(c, &req) {
		return
	}

	coupon, err := h.svcMgr.Coupon.CreateCoupon(c.Request.Context(), req)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		constants.ResponseMessage: "Coupon created",
		"coupon":                  coupon,
	})
}

// List handles GET /api/admin/coupons
func (h *CouponHandler) List(c *gin.Context) {
	HandleGetEnvelope(c, "coupons", func() (interface{}, error) {
		return h.svcMgr.Coupon.ListCoupons(c.Request.Context())
	})
}

// Get handles GET /api/admin/coupons/:id
func (h *CouponHandler) Get(c *gin.Context) {
	HandleGetEnvelope(c, "coupon", func() (interface{}, error) {
		return h.svcMgr.Coupon.GetCoupon(c.Request.Context(), c.Param("id"))
	})
}

// Update handles PUT /api/admin/coupons/:id
func (h *CouponHandler) Update(c *gin.Context) {
	var req services.CouponRequest
	if !BindJSON(c, &req) {
		return
	}

	coupon, err := h.svcMgr.Coupon.UpdateCoupon(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		constants.ResponseMessage: "Coupon updated",
		"coupon":                  coupon,
	})
}

// Delete handles DELETE /api/admin/coupons/:id
func (h *CouponHandler) Delete(c *gin.Context) {
	HandleDeleteEnvelope(c, "Coupon deleted", func() error {
		return h.svcMgr.Coupon.DeleteCoupon(c.Request.Context(), c.Param("id"))
	})
}
