package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/service"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Catalog sheet headers. Only name and price are required; the rest fall
// back to the product defaults.
const (
	colName           = "name"
	colSlug           = "slug"
	colDescription    = "description"
	colPrice          = "price"
	colCompareAtPrice = "compare_at_price"
	colBundleType     = "bundle_type"
	colTier2Pct       = "tier2_pct"
	colTier3PlusPct   = "tier3plus_pct"
	colStock          = "stock"
	colImageURL       = "image_url"
	colGallery        = "gallery"
	colActive         = "active"
)

type catalogReport struct {
	Products []service.ProductInput
	Skipped  []error
}

type rowError struct {
	Row int
	Err error
}

func (e *rowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *rowError) Unwrap() error { return e.Err }

func readProductsFromXLSX(filePath string) (*catalogReport, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colName, colPrice} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	report := &catalogReport{}
	for i, row := range rows[1:] {
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if cell(colName) == "" && cell(colPrice) == "" {
			continue
		}

		input, err := parseProductRow(cell)
		if err != nil {
			// Spreadsheet rows are 1-based and the header is row 1.
			report.Skipped = append(report.Skipped, &rowError{Row: i + 2, Err: err})
			continue
		}
		report.Products = append(report.Products, input)
	}
	return report, nil
}

func parseProductRow(cell func(string) string) (service.ProductInput, error) {
	input := service.ProductInput{
		Name:        cell(colName),
		Slug:        cell(colSlug),
		Description: cell(colDescription),
		ImageURL:    cell(colImageURL),
	}
	if input.Name == "" {
		return input, fmt.Errorf("name is empty")
	}

	price, err := decimal.NewFromString(cell(colPrice))
	if err != nil || price.Sign() <= 0 {
		return input, fmt.Errorf("invalid price %q", cell(colPrice))
	}
	input.Price = price

	if v := cell(colCompareAtPrice); v != "" {
		compareAt, err := decimal.NewFromString(v)
		if err != nil {
			return input, fmt.Errorf("invalid compare_at_price %q", v)
		}
		input.CompareAtPrice = &compareAt
	}

	if v := strings.ToLower(cell(colBundleType)); v != "" {
		bt := model.BundleType(v)
		if bt != model.BundleDiscount && bt != model.BundleQuantity {
			return input, fmt.Errorf("unknown bundle_type %q", v)
		}
		input.BundleType = bt
	}

	for _, field := range []struct {
		col string
		dst **int
	}{
		{colTier2Pct, &input.Tier2Pct},
		{colTier3PlusPct, &input.Tier3PlusPct},
		{colStock, &input.StockQuantity},
	} {
		v := cell(field.col)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return input, fmt.Errorf("invalid %s %q", field.col, v)
		}
		*field.dst = &n
	}

	if v := cell(colGallery); v != "" {
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				input.Gallery = append(input.Gallery, u)
			}
		}
	}

	if v := cell(colActive); v != "" {
		active, err := parseActive(v)
		if err != nil {
			return input, err
		}
		input.IsActive = &active
	}
	return input, nil
}

func parseActive(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "si", "sí", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid active %q", v)
}
