package client

import "strings"

// Role は画面の出し分けに使うロール。CustomerとAdminの2つだけ。
// ゼロ値は未ログイン扱い
type Role struct {
	name string
}

var (
	Customer = Role{name: "user"}
	Admin    = Role{name: "admin"}
)

// RoleOf はサーバーが返したユーザーのロール。未知の値はCustomer扱い
func RoleOf(u User) Role {
	if strings.EqualFold(u.Role, Admin.name) {
		return Admin
	}
	return Customer
}

func (r Role) SignedIn() bool { return r != Role{} }

func (r Role) String() string {
	if !r.SignedIn() {
		return "guest"
	}
	return r.name
}

type View string

const (
	ViewCatalog           View = "catalog"
	ViewLogin             View = "login"
	ViewAdminLogin        View = "admin_login"
	ViewRegister          View = "register"
	ViewCart              View = "cart"
	ViewCheckout          View = "checkout"
	ViewOrderConfirmation View = "order_confirmation"
	ViewOrders            View = "orders"
	ViewAdminProducts     View = "admin_products"
	ViewAdminProductForm  View = "admin_product_form"
)

type viewAccess int

const (
	accessPublic viewAccess = iota
	accessCustomer
	accessAdmin
)

var views = map[View]viewAccess{
	ViewCatalog:           accessPublic,
	ViewLogin:             accessPublic,
	ViewAdminLogin:        accessPublic,
	ViewRegister:          accessPublic,
	ViewCart:              accessCustomer,
	ViewCheckout:          accessCustomer,
	ViewOrderConfirmation: accessCustomer,
	ViewOrders:            accessCustomer,
	ViewAdminProducts:     accessAdmin,
	ViewAdminProductForm:  accessAdmin,
}

// Route は実際に出す画面
type Route struct {
	View       View
	Redirected bool
	Message    string
}

const (
	msgAdminRequired   = "Access denied. Admin privileges required."
	msgAdminRedirected = "Redirected to admin dashboard."
)

// ViewFor はロールと要求された画面から、出す画面を決める。
// サーバー側の権限チェックの代わりにはならない
func ViewFor(role Role, want View) Route {
	home := ViewCatalog
	if role == Admin {
		home = ViewAdminProducts
	}

	access, ok := views[want]
	if !ok {
		return Route{View: home, Redirected: true}
	}

	switch access {
	case accessCustomer:
		if !role.SignedIn() {
			return Route{View: ViewLogin, Redirected: true}
		}
		if role == Admin {
			return Route{View: ViewAdminProducts, Redirected: true, Message: msgAdminRedirected}
		}
	case accessAdmin:
		if !role.SignedIn() {
			return Route{View: ViewLogin, Redirected: true}
		}
		if role != Admin {
			return Route{View: ViewCatalog, Redirected: true, Message: msgAdminRequired}
		}
	default:
		// 管理者のトップは管理画面
		if want == ViewCatalog && role == Admin {
			return Route{View: ViewAdminProducts, Redirected: true}
		}
	}
	return Route{View: want}
}
