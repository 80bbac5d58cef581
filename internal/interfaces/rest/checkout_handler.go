package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eskills-store/backend/internal/application/services"
	"github.com/eskills-store/backend/pkg/errors"
)

type CheckoutHandler struct {
	svcMgr *services.ServiceManager
}

func NewCheckoutHandler(svcMgr *services.ServiceManager) *CheckoutHandler {
	return &CheckoutHandler{svcMgr: svcMgr}
}

// GetConfig handles GET /api/checkout/config
func (h *CheckoutHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.svcMgr.Checkout.PaymentConfig())
}

// PaymentIntentRequest optionally applies a coupon to the checkout
type PaymentIntentRequest struct {
	CouponCode string `json:"coupon_code"`
}

// CreatePaymentIntent handles POST /api/checkout/payment-intent
func (h *CheckoutHandler) CreatePaymentIntent(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	var req PaymentIntentRequest
	if c.Request.ContentLength > 0 {
		if !BindJSON(c, &req) {
			return
		}
	}

	result, err := h.svcMgr.Checkout.CreatePaymentIntent(c.Request.Context(), user.ID, req.CouponCode)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Webhook handles POST /api/checkout/webhook
// Stripe calls this without auth; the signature header is the authentication.
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		RespondAppError(c, errors.NewValidationError("body", "Unable to read request body"))
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.svcMgr.Checkout.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ListOrders handles GET /api/orders
func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	HandleGetEnvelope(c, "orders", func() (interface{}, error) {
		return h.svcMgr.Checkout.ListOrders(c.Request.Context(), user.ID)
	})
}

// GetOrder handles GET /api/orders/:order_id
// Admins can inspect any order; everyone else only their own.
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	HandleGetEnvelope(c, "order", func() (interface{}, error) {
		return h.svcMgr.Checkout.GetOrder(c.Request.Context(), user.ID, c.Param("order_id"), user.IsAdmin)
	})
}
