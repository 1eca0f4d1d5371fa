package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"shopapi/pkg/client"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	e          *echo.Echo
	srv        *httptest.Server
	lastAuth   string
	lastAdmin  string
	lastQuery  map[string]string
	lastOrder  client.PlaceOrderRequest
	orderFails bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{e: echo.New()}
	api := f.e.Group("/api")

	api.POST("/login", func(c echo.Context) error {
		f.lastAdmin = c.Request().Header.Get("X-Admin-Login")
		var body map[string]string
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
		}
		if body["password"] != "Secr3t!pw" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid login credentials"})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"user":  map[string]interface{}{"id": 2, "email": body["email"], "role": "user"},
			"token": "tok-123",
		})
	})
	api.POST("/logout", func(c echo.Context) error {
		f.lastAuth = c.Request().Header.Get("Authorization")
		return c.JSON(http.StatusOK, map[string]string{"message": "Successfully logged out"})
	})
	api.GET("/products", func(c echo.Context) error {
		f.lastQuery = map[string]string{}
		for k := range c.QueryParams() {
			f.lastQuery[k] = c.QueryParam(k)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"products": []map[string]interface{}{{"id": 1, "name": "Keyboard", "price": "100.5", "quantity": 3}},
		})
	})
	api.POST("/products", func(c echo.Context) error {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "The given data was invalid.",
			"errors": map[string]string{"barcode": "The barcode has already been taken."},
		})
	})
	api.GET("/admin/products/export", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/octet-stream", []byte("PK\x03\x04"))
	})
	api.POST("/orders", func(c echo.Context) error {
		f.lastAuth = c.Request().Header.Get("Authorization")
		if err := c.Bind(&f.lastOrder); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
		}
		if f.orderFails {
			return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
				"error":   "Insufficient stock for Keyboard. Available: 1",
				"details": map[string]interface{}{"available": 1},
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message": "Order placed successfully",
			"order":   map[string]interface{}{"id": 42, "status": "pending", "total": "300"},
		})
	})

	f.srv = httptest.NewServer(f.e)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) client(opts ...client.Option) *client.Client {
	return client.New(f.srv.URL+"/api/", opts...)
}

func TestClient_LoginKeepsTokenAndLogoutDropsIt(t *testing.T) {
	f := newFakeAPI(t)
	c := f.client()

	out, err := c.Login(context.Background(), "hanako@example.com", "Secr3t!pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", out.Token)
	assert.Equal(t, "tok-123", c.Token())
	assert.Empty(t, f.lastAdmin)

	_, err = c.Logout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", f.lastAuth)
	assert.Empty(t, c.Token())
}

func TestClient_LoginAdminSendsHeader(t *testing.T) {
	f := newFakeAPI(t)
	c := f.client()

	_, err := c.LoginAdmin(context.Background(), "admin@example.com", "Secr3t!pw")
	require.NoError(t, err)
	assert.Equal(t, "true", f.lastAdmin)
}

func TestClient_ErrorsBecomeAPIError(t *testing.T) {
	f := newFakeAPI(t)
	c := f.client(client.WithToken("tok"))

	_, err := c.Login(context.Background(), "hanako@example.com", "wrong")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
	assert.Equal(t, "tok", c.Token())

	_, err = c.CreateProduct(context.Background(), client.CreateProductRequest{Barcode: "dup"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "The barcode has already been taken.", apiErr.Fields["barcode"])

	// 本文がJSONでなくてもステータスは分かる
	_, err = c.GetCart(context.Background())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
}

func TestClient_ListProductsSendsOnlySetFilters(t *testing.T) {
	f := newFakeAPI(t)
	c := f.client()

	products, err := c.ListProducts(context.Background(), client.ProductFilter{Search: "key", MinPrice: "10", InStock: true})

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("100.5")))
	assert.Equal(t, map[string]string{"search": "key", "min_price": "10", "in_stock": "true"}, f.lastQuery)
}

func TestClient_ExportProductsReturnsBytes(t *testing.T) {
	f := newFakeAPI(t)

	data, err := f.client().ExportProducts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04"), data)
}

func keyboard() client.Product {
	return client.Product{ID: 1, Name: "Keyboard", Price: decimal.NewFromInt(100), Quantity: 3}
}

func TestLocalCart_AddMergesUpToStock(t *testing.T) {
	lc, err := client.OpenLocalCart(filepath.Join(t.TempDir(), "cart.json"))
	require.NoError(t, err)

	ok, err := lc.Add(keyboard(), 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lc.Add(keyboard(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// 在庫3を超える
	ok, err = lc.Add(keyboard(), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int64(3), lc.Count())
	assert.Equal(t, "300", lc.Total().String())
}

func TestLocalCart_SetQuantityAndRemove(t *testing.T) {
	lc, err := client.OpenLocalCart(filepath.Join(t.TempDir(), "cart.json"))
	require.NoError(t, err)

	_, err = lc.Add(keyboard(), 1)
	require.NoError(t, err)
	_, err = lc.Add(client.Product{ID: 2, Name: "Mouse", Price: decimal.RequireFromString("25.5"), Quantity: 5}, 1)
	require.NoError(t, err)

	ok, err := lc.SetQuantity(1, 9)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = lc.SetQuantity(1, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lc.Remove(99))
	require.Len(t, lc.Items(), 1)
	assert.Equal(t, int64(2), lc.Items()[0].ProductID)
}

func TestLocalCart_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cart.json")

	lc, err := client.OpenLocalCart(path)
	require.NoError(t, err)
	_, err = lc.Add(keyboard(), 2)
	require.NoError(t, err)

	again, err := client.OpenLocalCart(path)
	require.NoError(t, err)

	require.Len(t, again.Items(), 1)
	assert.Equal(t, "Keyboard", again.Items()[0].Name)
	assert.Equal(t, int64(2), again.Items()[0].Quantity)
	assert.Equal(t, int64(3), again.Items()[0].MaxQuantity)
}

func TestLocalCart_Checkout(t *testing.T) {
	t.Run("success clears the cart", func(t *testing.T) {
		f := newFakeAPI(t)
		c := f.client(client.WithToken("tok"))
		lc, err := client.OpenLocalCart(filepath.Join(t.TempDir(), "cart.json"))
		require.NoError(t, err)
		_, err = lc.Add(keyboard(), 3)
		require.NoError(t, err)

		out, err := lc.Checkout(context.Background(), c, client.CheckoutRequest{
			ShippingAddress: "Tokyo",
			PaymentMethod:   "cash on delivery",
			ShippingFee:     decimal.NewFromInt(100),
		})

		require.NoError(t, err)
		assert.Equal(t, int64(42), out.Order.ID)
		assert.Equal(t, []client.OrderLine{{ProductID: 1, Quantity: 3}}, f.lastOrder.CartItems)
		assert.Equal(t, "Bearer tok", f.lastAuth)
		assert.Empty(t, lc.Items())
	})

	t.Run("failure keeps the cart", func(t *testing.T) {
		f := newFakeAPI(t)
		f.orderFails = true
		lc, err := client.OpenLocalCart(filepath.Join(t.TempDir(), "cart.json"))
		require.NoError(t, err)
		_, err = lc.Add(keyboard(), 3)
		require.NoError(t, err)

		_, err = lc.Checkout(context.Background(), f.client(), client.CheckoutRequest{ShippingAddress: "Tokyo", PaymentMethod: "online payment"})

		var apiErr *client.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.EqualValues(t, 1, apiErr.Details["available"])
		assert.Equal(t, int64(3), lc.Count())
	})

	t.Run("empty cart", func(t *testing.T) {
		lc, err := client.OpenLocalCart(filepath.Join(t.TempDir(), "cart.json"))
		require.NoError(t, err)

		_, err = lc.Checkout(context.Background(), client.New("http://127.0.0.1:0"), client.CheckoutRequest{})
		assert.ErrorIs(t, err, client.ErrEmptyCart)
	})
}

func TestViewFor(t *testing.T) {
	var guest client.Role

	tests := []struct {
		name    string
		role    client.Role
		want    client.View
		view    client.View
		message string
	}{
		{"guest sees catalog", guest, client.ViewCatalog, client.ViewCatalog, ""},
		{"guest cart goes to login", guest, client.ViewCart, client.ViewLogin, ""},
		{"guest admin goes to login", guest, client.ViewAdminProducts, client.ViewLogin, ""},
		{"customer cart", client.Customer, client.ViewCheckout, client.ViewCheckout, ""},
		{"customer admin denied", client.Customer, client.ViewAdminProductForm, client.ViewCatalog, "Access denied. Admin privileges required."},
		{"admin home is dashboard", client.Admin, client.ViewCatalog, client.ViewAdminProducts, ""},
		{"admin customer view redirected", client.Admin, client.ViewOrders, client.ViewAdminProducts, "Redirected to admin dashboard."},
		{"admin product form", client.Admin, client.ViewAdminProductForm, client.ViewAdminProductForm, ""},
		{"unknown view customer", client.Customer, client.View("nope"), client.ViewCatalog, ""},
		{"unknown view admin", client.Admin, client.View("nope"), client.ViewAdminProducts, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := client.ViewFor(tt.role, tt.want)
			assert.Equal(t, tt.view, r.View)
			assert.Equal(t, tt.view != tt.want, r.Redirected)
			assert.Equal(t, tt.message, r.Message)
		})
	}
}

func TestRoleOf(t *testing.T) {
	assert.Equal(t, client.Admin, client.RoleOf(client.User{Role: "admin"}))
	assert.Equal(t, client.Customer, client.RoleOf(client.User{Role: "user"}))
	assert.Equal(t, "guest", client.Role{}.String())
	assert.True(t, client.Customer.SignedIn())
}
