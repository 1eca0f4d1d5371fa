package export

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"

	"shopapi/internal/domain/model"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout      = "2006-01-02 15:04:05"
)

var productHeaders = []string{
	"ID", "Barcode", "Name", "Description", "Category", "Price", "Quantity", "CreatedAt", "UpdatedAt",
}

// WriteProductsXLSX は商品一覧を1シートのxlsxにしてwに書く
func WriteProductsXLSX(w io.Writer, products []model.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range productHeaders {
		headerRow.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt64(p.ID)
		row.AddCell().SetString(p.Barcode)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Category)
		// 金額は文字列で（丸めない）
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt64(p.Quantity)
		row.AddCell().SetString(p.CreatedAt.UTC().Format(timeLayout))
		row.AddCell().SetString(p.UpdatedAt.UTC().Format(timeLayout))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
