package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"shopapi/internal/infra/export"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 商品の作成/更新/削除とxlsx出力（ADMIN限定）
type AdminProductHandler struct {
	uc  *usecase.ProductUsecase
	now func() time.Time
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc, now: time.Now}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(api *echo.Group, guards Guards) {
	api.POST("/products", h.createProduct, guards.Admin...)
	api.PUT("/products/:id", h.updateProduct, guards.Admin...)
	api.DELETE("/products/:id", h.deleteProduct, guards.Admin...)

	api.GET("/admin/products/export", h.exportProducts, guards.Admin...)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req usecase.CreateProductInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	p, err := h.uc.Create(c.Request().Context(), adminID, req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, p)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Product not found"})
	}

	var req usecase.UpdateProductInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	p, err := h.uc.Update(c.Request().Context(), adminID, id, req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Product not found"})
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.Delete(c.Request().Context(), adminID, id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) exportProducts(c echo.Context) error {
	products, err := h.uc.ListAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	var buf bytes.Buffer
	if err := export.WriteProductsXLSX(&buf, products); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}

	filename := fmt.Sprintf("products_%s.xlsx", h.now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, export.XLSXContentType, buf.Bytes())
}
