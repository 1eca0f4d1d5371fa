package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Register は登録して、返ってきたトークンを保持する
func (c *Client) Register(ctx context.Context, in RegisterRequest) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/register", body: in}, &out); err != nil {
		return AuthResponse{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	return c.login(ctx, email, password, nil)
}

// 管理画面からのログイン。admin以外は403
func (c *Client) LoginAdmin(ctx context.Context, email, password string) (AuthResponse, error) {
	return c.login(ctx, email, password, map[string]string{adminLoginHeader: "true"})
}

func (c *Client) login(ctx context.Context, email, password string, header map[string]string) (AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var out AuthResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/login", body: body, header: header}, &out); err != nil {
		return AuthResponse{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// Logout は成功したらトークンを捨てる
func (c *Client) Logout(ctx context.Context) (MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/logout"}, &out); err != nil {
		return MessageResponse{}, err
	}
	c.SetToken("")
	return out, nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, request{method: http.MethodGet, path: "/me"}, &out)
	return out, err
}

func (c *Client) ForceLogout(ctx context.Context, userID int64) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/admin/users/" + itoa(userID) + "/force-logout"}, &out)
	return out, err
}

// 商品

func (c *Client) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := url.Values{}
	setIf(q, "search", f.Search)
	setIf(q, "category", f.Category)
	setIf(q, "min_price", f.MinPrice)
	setIf(q, "max_price", f.MaxPrice)
	if f.InStock {
		q.Set("in_stock", "true")
	}

	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/products", query: q}, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out struct {
		Categories []string `json:"categories"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/products/categories"}, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	var out Product
	err := c.do(ctx, request{method: http.MethodGet, path: "/products/" + itoa(id)}, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, in CreateProductRequest) (Product, error) {
	var out Product
	err := c.do(ctx, request{method: http.MethodPost, path: "/products", body: in}, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in UpdateProductRequest) (Product, error) {
	var out Product
	err := c.do(ctx, request{method: http.MethodPut, path: "/products/" + itoa(id), body: in}, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodDelete, path: "/products/" + itoa(id)}, &out)
	return out, err
}

// ExportProducts はxlsxのバイト列を返す
func (c *Client) ExportProducts(ctx context.Context) ([]byte, error) {
	return c.doRaw(ctx, request{method: http.MethodGet, path: "/admin/products/export"})
}

// サーバー側カート

func (c *Client) GetCart(ctx context.Context) (Cart, error) {
	var out Cart
	err := c.do(ctx, request{method: http.MethodGet, path: "/cart"}, &out)
	return out, err
}

func (c *Client) CartCount(ctx context.Context) (int64, error) {
	var out struct {
		CartCount int64 `json:"cart_count"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/cart/count"}, &out); err != nil {
		return 0, err
	}
	return out.CartCount, nil
}

func (c *Client) AddToCart(ctx context.Context, productID, quantity int64) (CartItemResponse, error) {
	var out CartItemResponse
	body := OrderLine{ProductID: productID, Quantity: quantity}
	err := c.do(ctx, request{method: http.MethodPost, path: "/cart", body: body}, &out)
	return out, err
}

func (c *Client) UpdateCartItem(ctx context.Context, cartItemID, quantity int64) (CartItemResponse, error) {
	var out CartItemResponse
	body := map[string]int64{"quantity": quantity}
	err := c.do(ctx, request{method: http.MethodPut, path: "/cart/" + itoa(cartItemID), body: body}, &out)
	return out, err
}

func (c *Client) RemoveCartItem(ctx context.Context, cartItemID int64) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodDelete, path: "/cart/" + itoa(cartItemID)}, &out)
	return out, err
}

// 注文

func (c *Client) PlaceOrder(ctx context.Context, in PlaceOrderRequest) (OrderResponse, error) {
	var out OrderResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/orders", body: in}, &out)
	return out, err
}

func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var out struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders"}, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (Order, error) {
	var out struct {
		Order Order `json:"order"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders/" + itoa(id)}, &out); err != nil {
		return Order{}, err
	}
	return out.Order, nil
}

// 管理者

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (OrderResponse, error) {
	var out OrderResponse
	body := map[string]string{"status": status}
	err := c.do(ctx, request{method: http.MethodPut, path: "/orders/" + itoa(orderID) + "/status", body: body}, &out)
	return out, err
}

func (c *Client) AdminListOrders(ctx context.Context, f AdminOrderQuery) (AdminOrderList, error) {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	setIf(q, "status", f.Status)
	if f.UserID > 0 {
		q.Set("user_id", itoa(f.UserID))
	}

	var out AdminOrderList
	err := c.do(ctx, request{method: http.MethodGet, path: "/admin/orders", query: q}, &out)
	return out, err
}

func (c *Client) ListAuditLogs(ctx context.Context, f AuditLogQuery) ([]AuditLog, error) {
	q := url.Values{}
	if f.ActorUserID > 0 {
		q.Set("actor_user_id", itoa(f.ActorUserID))
	}
	setIf(q, "action", f.Action)
	setIf(q, "resource_type", f.ResourceType)
	if f.ResourceID > 0 {
		q.Set("resource_id", itoa(f.ResourceID))
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}

	var out struct {
		AuditLogs []AuditLog `json:"audit_logs"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/audit-logs", query: q}, &out); err != nil {
		return nil, err
	}
	return out.AuditLogs, nil
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func setIf(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}
