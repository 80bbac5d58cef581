package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eskills-store/backend/internal/interfaces/rest"
	"github.com/eskills-store/backend/pkg/auth"
	"github.com/eskills-store/backend/pkg/constants"
)

var (
	cartColumns = []string{
		constants.FieldID, constants.FieldUserID, constants.FieldCreatedAt, constants.FieldUpdatedAt,
	}
	cartItemColumns = []string{
		constants.FieldID, constants.FieldCartID, constants.FieldCourseID, constants.FieldMode,
		constants.FieldPrice, constants.FieldCurrency, constants.FieldCourseJSON, constants.FieldCreatedAt,
	}
)

func newCartContext(w *httptest.ResponseRecorder, method, path string) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	c.Set(constants.ContextKeyUser, auth.UserSession{ID: "user-1", Username: "student", Email: "student@example.com"})
	return c
}

func TestCartHandler_GetCart(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Existing Cart", func(t *testing.T) {
		svcMgr, mock := newStoreFixture(t, nil)
		handler := rest.NewCartHandler(svcMgr)
		now := time.Now()

		mock.ExpectQuery("SELECT (.+) FROM carts").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows(cartColumns).AddRow("cart-1", "user-1", now, now))
		mock.ExpectQuery("SELECT (.+) FROM cart_items").
			WithArgs("cart-1").
			WillReturnRows(sqlmock.NewRows(cartItemColumns).
				AddRow("item-1", "cart-1", "course-v1:Edu+CS101+2026", "verified", 49.5, "usd", nil, now))

		w := httptest.NewRecorder()
		c := newCartContext(w, "GET", "/api/cart")

		handler.GetCart(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 49.5, resp["total"])
		assert.Equal(t, float64(1), resp["item_count"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("First Use Creates Empty Cart", func(t *testing.T) {
		svcMgr, mock := newStoreFixture(t, nil)
		handler := rest.NewCartHandler(svcMgr)

		mock.ExpectQuery("SELECT (.+) FROM carts").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows(cartColumns))
		mock.ExpectExec("INSERT INTO carts").
			WithArgs(sqlmock.AnyArg(), "user-1").
			WillReturnResult(sqlmock.NewResult(1, 1))

		w := httptest.NewRecorder()
		c := newCartContext(w, "GET", "/api/cart")

		handler.GetCart(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(0), resp["total"])
		assert.Equal(t, float64(0), resp["item_count"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		svcMgr, _ := newStoreFixture(t, nil)
		handler := rest.NewCartHandler(svcMgr)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/api/cart", nil)

		handler.GetCart(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCartHandler_RemoveItem(t *testing.T) {
	gin.SetMode(gin.TestMode)
	courseID := "course-v1:Edu+CS101+2026"

	t.Run("Success", func(t *testing.T) {
		svcMgr, mock := newStoreFixture(t, nil)
		handler := rest.NewCartHandler(svcMgr)
		now := time.Now()

		mock.ExpectQuery("SELECT (.+) FROM carts").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows(cartColumns).AddRow("cart-1", "user-1", now, now))
		mock.ExpectQuery("SELECT (.+) FROM cart_items").
			WithArgs("cart-1").
			WillReturnRows(sqlmock.NewRows(cartItemColumns).
				AddRow("item-1", "cart-1", courseID, "verified", 49.5, "usd", nil, now))
		mock.ExpectExec("DELETE FROM cart_items").
			WithArgs("cart-1", courseID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// The handler returns the reloaded cart
		mock.ExpectQuery("SELECT (.+) FROM carts").
			WithArgs("cart-1").
			WillReturnRows(sqlmock.NewRows(cartColumns).AddRow("cart-1", "user-1", now, now))
		mock.ExpectQuery("SELECT (.+) FROM cart_items").
			WithArgs("cart-1").
			WillReturnRows(sqlmock.NewRows(cartItemColumns))

		w := httptest.NewRecorder()
		c := newCartContext(w, "DELETE", "/api/cart/items/"+courseID)
		c.Params = gin.Params{{Key: "course_id", Value: courseID}}

		handler.RemoveItem(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(0), resp["item_count"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Item", func(t *testing.T) {
		svcMgr, mock := newStoreFixture(t, nil)
		handler := rest.NewCartHandler(svcMgr)
		now := time.Now()

		mock.ExpectQuery("SELECT (.+) FROM carts").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows(cartColumns).AddRow("cart-1", "user-1", now, now))
		mock.ExpectQuery("SELECT (.+) FROM cart_items").
			WithArgs("cart-1").
			WillReturnRows(sqlmock.NewRows(cartItemColumns))
		mock.ExpectExec("DELETE FROM cart_items").
			WithArgs("cart-1", courseID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := httptest.NewRecorder()
		c := newCartContext(w, "DELETE", "/api/cart/items/"+courseID)
		c.Params = gin.Params{{Key: "course_id", Value: courseID}}

		handler.RemoveItem(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCartHandler_Clear(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		svcMgr, mock := newStoreFixture(t, nil)
		handler := rest.NewCartHandler(svcMgr)
		now := time.Now()

		mock.ExpectQuery("SELECT (.+) FROM carts").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows(cartColumns).AddRow("cart-1", "user-1", now, now))
		mock.ExpectQuery("SELECT (.+) FROM cart_items").
			WithArgs("cart-1").
			WillReturnRows(sqlmock.NewRows(cartItemColumns))
		mock.ExpectExec("DELETE FROM cart_items").
			WithArgs("cart-1").
			WillReturnResult(sqlmock.NewResult(0, 2))

		w := httptest.NewRecorder()
		c := newCartContext(w, "DELETE", "/api/cart")

		handler.Clear(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Cart cleared")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No Cart Is A NoOp", func(t *testing.T) {
		svcMgr, mock := newStoreFixture(t, nil)
		handler := rest.NewCartHandler(svcMgr)

		mock.ExpectQuery("SELECT (.+) FROM carts").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows(cartColumns))

		w := httptest.NewRecorder()
		c := newCartContext(w, "DELETE", "/api/cart")

		handler.Clear(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
