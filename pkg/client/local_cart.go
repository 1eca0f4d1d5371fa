package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
)

// LocalCartItem は手元に持つカート1行。
// MaxQuantity は追加した時点の在庫。サーバーの在庫とは同期しない
type LocalCartItem struct {
	ProductID   int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	MaxQuantity int64           `json:"max_quantity"`
}

// LocalCart はJSONファイルに保存するカートのコピー。
// 正しさはチェックアウト時にサーバーが判断する。
type LocalCart struct {
	path string

	mu    sync.Mutex
	items []LocalCartItem
}

// OpenLocalCart はファイルから読む。無ければ空のカート
func OpenLocalCart(path string) (*LocalCart, error) {
	lc := &LocalCart{path: path, items: []LocalCartItem{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return lc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local cart: %w", err)
	}
	if len(data) == 0 {
		return lc, nil
	}
	if err := json.Unmarshal(data, &lc.items); err != nil {
		return nil, fmt.Errorf("decode local cart: %w", err)
	}
	return lc, nil
}

// Items はコピーを返す
func (lc *LocalCart) Items() []LocalCartItem {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	out := make([]LocalCartItem, len(lc.items))
	copy(out, lc.items)
	return out
}

// Add は同じ商品なら数量を足す。在庫を超えるなら変えずにfalse
func (lc *LocalCart) Add(p Product, quantity int64) (bool, error) {
	if quantity <= 0 {
		return false, nil
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	for i, it := range lc.items {
		if it.ProductID != p.ID {
			continue
		}
		if it.Quantity+quantity > it.MaxQuantity {
			return false, nil
		}
		lc.items[i].Quantity += quantity
		return true, lc.saveLocked()
	}

	if quantity > p.Quantity {
		return false, nil
	}
	lc.items = append(lc.items, LocalCartItem{
		ProductID:   p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    quantity,
		MaxQuantity: p.Quantity,
	})
	return true, lc.saveLocked()
}

// SetQuantity は0以下なら行を消す。在庫を超えるなら変えずにfalse
func (lc *LocalCart) SetQuantity(productID, quantity int64) (bool, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	for i, it := range lc.items {
		if it.ProductID != productID {
			continue
		}
		if quantity <= 0 {
			lc.items = append(lc.items[:i], lc.items[i+1:]...)
			return true, lc.saveLocked()
		}
		if quantity > it.MaxQuantity {
			return false, nil
		}
		lc.items[i].Quantity = quantity
		return true, lc.saveLocked()
	}
	return false, nil
}

func (lc *LocalCart) Remove(productID int64) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	kept := lc.items[:0]
	for _, it := range lc.items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	lc.items = kept
	return lc.saveLocked()
}

func (lc *LocalCart) Clear() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.items = []LocalCartItem{}
	return lc.saveLocked()
}

// Total は手元の価格での合計（表示用）
func (lc *LocalCart) Total() decimal.Decimal {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	total := decimal.Zero
	for _, it := range lc.items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total
}

func (lc *LocalCart) Count() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	var n int64
	for _, it := range lc.items {
		n += it.Quantity
	}
	return n
}

// OrderLines は注文APIに送る cart_items
func (lc *LocalCart) OrderLines() []OrderLine {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lines := make([]OrderLine, 0, len(lc.items))
	for _, it := range lc.items {
		lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

type CheckoutRequest struct {
	ShippingAddress string
	PaymentMethod   string
	ShippingFee     decimal.Decimal
}

var ErrEmptyCart = errors.New("local cart is empty")

// Checkout は手元のカートで注文する。成功したときだけカートを空にする
func (lc *LocalCart) Checkout(ctx context.Context, c *Client, in CheckoutRequest) (OrderResponse, error) {
	lines := lc.OrderLines()
	if len(lines) == 0 {
		return OrderResponse{}, ErrEmptyCart
	}

	out, err := c.PlaceOrder(ctx, PlaceOrderRequest{
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ShippingFee:     in.ShippingFee,
		CartItems:       lines,
	})
	if err != nil {
		return OrderResponse{}, err
	}

	if err := lc.Clear(); err != nil {
		return out, fmt.Errorf("order %d placed but clearing local cart failed: %w", out.Order.ID, err)
	}
	return out, nil
}

// 一時ファイルに書いてrenameする
func (lc *LocalCart) saveLocked() error {
	data, err := json.Marshal(lc.items)
	if err != nil {
		return fmt.Errorf("encode local cart: %w", err)
	}

	dir := filepath.Dir(lc.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cart dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return fmt.Errorf("create temp cart file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write local cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close local cart: %w", err)
	}
	if err := os.Rename(tmp.Name(), lc.path); err != nil {
		return fmt.Errorf("save local cart: %w", err)
	}
	return nil
}
