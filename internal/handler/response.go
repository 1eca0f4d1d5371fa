package handler

import (
	"net/http"
	"strconv"

	"shopapi/internal/middleware"
	"shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error   string                 `json:"error"`
	Errors  map[string]string      `json:"errors,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{
			Error:   he.Message,
			Errors:  he.Fields,
			Details: he.Details,
		})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	if v == nil {
		return 0, false
	}

	id, ok := v.(int64)
	if !ok || id <= 0 {
		return 0, false
	}

	return id, true
}

// パスの :id を正の整数として読む
func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Guards は認証まわりのミドルウェア一式
type Guards struct {
	Auth  []echo.MiddlewareFunc // JWT必須 + token_version一致
	Admin []echo.MiddlewareFunc // Auth + ADMIN限定
}

func NewGuards(tokens middleware.TokenParser, userRepo repository.UserRepository) Guards {
	auth := []echo.MiddlewareFunc{
		middleware.AuthJWT(tokens),
		middleware.TokenVersionGuard(userRepo),
	}
	admin := append(append([]echo.MiddlewareFunc{}, auth...), middleware.AdminRoleGuard())
	return Guards{Auth: auth, Admin: admin}
}
