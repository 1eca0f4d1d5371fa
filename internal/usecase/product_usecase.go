package usecase

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ProductUsecase struct {
	products  repo.ProductRepository
	tx        repo.TransactionManager
	cache     CategoryCache
	validator InputValidator
	log       *zap.Logger
}

// DI
func NewProductUsecase(
	products repo.ProductRepository,
	tx repo.TransactionManager,
	cache CategoryCache,
	validator InputValidator,
	log *zap.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		products:  products,
		tx:        tx,
		cache:     cache,
		validator: validator,
		log:       log,
	}
}

// GET /productsのクエリ（文字列のまま受ける）
type ListProductsInput struct {
	Search   string
	Category string
	MinPrice string
	MaxPrice string
	InStock  string
}

type ProductListOutput struct {
	Products []model.Product `json:"products"`
}

type CategoriesOutput struct {
	Categories []string `json:"categories"`
}

type CreateProductInput struct {
	Barcode     string           `json:"barcode" validate:"required,max=100"`
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0,lte=99999999.99"`
	Quantity    *int64           `json:"quantity" validate:"required,gte=0,lte=1000000"`
	Category    string           `json:"category" validate:"required,max=100"`
}

// 部分更新。nilの項目は変えない
type UpdateProductInput struct {
	Barcode     *string          `json:"barcode" validate:"omitempty,min=1,max=100"`
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description" validate:"omitempty,min=1"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0,lte=99999999.99"`
	Quantity    *int64           `json:"quantity" validate:"omitempty,gte=0,lte=1000000"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=100"`
}

func (u *ProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	q := repo.ProductListQuery{
		Search:   strings.TrimSpace(in.Search),
		Category: strings.TrimSpace(in.Category),
	}

	fields := map[string]string{}
	if s := strings.TrimSpace(in.InStock); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			fields["in_stock"] = "in_stock must be true or false"
		} else {
			q.InStock = b
		}
	}
	if s := strings.TrimSpace(in.MinPrice); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			fields["min_price"] = "min_price must be a number"
		} else {
			q.MinPrice = &d
		}
	}
	if s := strings.TrimSpace(in.MaxPrice); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			fields["max_price"] = "max_price must be a number"
		} else {
			q.MaxPrice = &d
		}
	}
	if len(fields) > 0 {
		return ProductListOutput{}, NewValidationError(fields)
	}

	products, err := u.products.List(ctx, q)
	if err != nil {
		u.log.Error("list products failed", zap.Error(err))
		return ProductListOutput{}, errInternal()
	}
	return ProductListOutput{Products: products}, nil
}

func (u *ProductUsecase) Get(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}
	if err != nil {
		u.log.Error("find product failed", zap.Error(err), zap.Int64("product_id", productID))
		return model.Product{}, errInternal()
	}
	return p, nil
}

// カテゴリ一覧。キャッシュ優先
func (u *ProductUsecase) Categories(ctx context.Context) (CategoriesOutput, error) {
	if cached, ok := u.cache.Get(ctx); ok {
		return CategoriesOutput{Categories: cached}, nil
	}

	categories, err := u.products.Categories(ctx)
	if err != nil {
		u.log.Error("list categories failed", zap.Error(err))
		return CategoriesOutput{}, errInternal()
	}
	u.cache.Set(ctx, categories)
	return CategoriesOutput{Categories: categories}, nil
}

// エクスポート用
func (u *ProductUsecase) ListAll(ctx context.Context) ([]model.Product, error) {
	products, err := u.products.ListAll(ctx)
	if err != nil {
		u.log.Error("list all products failed", zap.Error(err))
		return nil, errInternal()
	}
	return products, nil
}

func (u *ProductUsecase) Create(ctx context.Context, adminUserID int64, in CreateProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)

	fields, err := u.validator.Struct(in)
	if err != nil {
		u.log.Error("product validation failed", zap.Error(err))
		return model.Product{}, errInternal()
	}
	if len(fields) > 0 {
		return model.Product{}, NewValidationError(fields)
	}

	var created model.Product
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		exists, err := r.Products().BarcodeExists(ctx, in.Barcode, 0)
		if err != nil {
			return err
		}
		if exists {
			return barcodeTakenError()
		}

		created, err = r.Products().Create(ctx, model.Product{
			Barcode:     in.Barcode,
			Name:        in.Name,
			Description: in.Description,
			Price:       in.Price.Round(2),
			Quantity:    *in.Quantity,
			Category:    in.Category,
		})
		if err != nil {
			return err
		}

		return r.AuditLogs().Append(ctx, productAudit(adminUserID, model.AuditActionCreateProduct, created.ID, nil, &created))
	})
	if err != nil {
		return model.Product{}, u.productWriteError(err, "create product failed")
	}

	u.cache.Invalidate(ctx)
	return created, nil
}

func (u *ProductUsecase) Update(ctx context.Context, adminUserID int64, productID int64, in UpdateProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}

	trimPtr(in.Barcode)
	trimPtr(in.Name)
	trimPtr(in.Category)

	fields, err := u.validator.Struct(in)
	if err != nil {
		u.log.Error("product validation failed", zap.Error(err))
		return model.Product{}, errInternal()
	}
	if len(fields) > 0 {
		return model.Product{}, NewValidationError(fields)
	}

	var updated model.Product
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		//自分以外と重複していないか
		if in.Barcode != nil && *in.Barcode != before.Barcode {
			exists, err := r.Products().BarcodeExists(ctx, *in.Barcode, productID)
			if err != nil {
				return err
			}
			if exists {
				return barcodeTakenError()
			}
		}

		updated = applyProductUpdate(before, in)
		if err := r.Products().Update(ctx, updated); err != nil {
			return err
		}

		return r.AuditLogs().Append(ctx, productAudit(adminUserID, model.AuditActionUpdateProduct, productID, &before, &updated))
	})
	if err != nil {
		return model.Product{}, u.productWriteError(err, "update product failed")
	}

	u.cache.Invalidate(ctx)
	return updated, nil
}

// 論理削除。カートからも消す（注文明細はスナップショットなので残す）
func (u *ProductUsecase) Delete(ctx context.Context, adminUserID int64, productID int64) (MessageOutput, error) {
	if adminUserID <= 0 {
		return MessageOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return MessageOutput{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if err := r.CartItems().DeleteByProductID(ctx, productID); err != nil {
			return err
		}
		if err := r.Products().Delete(ctx, productID); err != nil {
			return err
		}
		return r.AuditLogs().Append(ctx, productAudit(adminUserID, model.AuditActionDeleteProduct, productID, &before, nil))
	})
	if err != nil {
		return MessageOutput{}, u.productWriteError(err, "delete product failed")
	}

	u.cache.Invalidate(ctx)
	return MessageOutput{Message: "Product deleted successfully"}, nil
}

func (u *ProductUsecase) productWriteError(err error, msg string) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "Product not found")
	case errors.Is(err, repo.ErrDuplicate):
		// チェック後に別リクエストが同じバーコードを入れた
		return barcodeTakenError()
	}
	u.log.Error(msg, zap.Error(err))
	return errInternal()
}

func barcodeTakenError() error {
	return newFieldError("barcode", "The barcode has already been taken.")
}

func applyProductUpdate(p model.Product, in UpdateProductInput) model.Product {
	if in.Barcode != nil {
		p.Barcode = *in.Barcode
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	return p
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// before/afterはJSONで残す（nilは空）
func productAudit(actorID int64, action model.AuditAction, productID int64, before, after *model.Product) model.AuditLog {
	return model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   toAuditJSON(before),
		AfterJSON:    toAuditJSON(after),
		CreatedAt:    time.Now(),
	}
}

func toAuditJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	if p, ok := v.(*model.Product); ok && p == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
