// Command seed imports a product catalog from an xlsx workbook.
//
// The workbook's first sheet must have a header row followed by one
// row per product with the columns:
//
//	name | slug | description | price | stock | image_url | category
//
// Unknown categories are created on the fly. Existing slugs are
// skipped so the import can be re-run safely.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/config"
	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/db"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

func main() {
	var path string
	flag.StringVar(&path, "file", "products.xlsx", "path to the product workbook")
	flag.Parse()

	logger.Initialize(logger.Config{
		Level:       "info",
		Format:      "console",
		EnableColor: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	imported, skipped, err := importWorkbook(db.GetDB(), path)
	if err != nil {
		logger.Fatal("Import failed", err, map[string]interface{}{
			"file": path,
		})
	}

	logger.Info("Import finished", map[string]interface{}{
		"file":     path,
		"imported": imported,
		"skipped":  skipped,
	})
}

func importWorkbook(gdb *gorm.DB, path string) (imported, skipped int, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, 0, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return 0, 0, errors.New("workbook has no data rows")
	}

	categoryCache := make(map[string]uint)

	for i, row := range rows[1:] {
		rowNum := i + 2
		product, categoryName, err := parseRow(row)
		if err != nil {
			fmt.Fprintf(os.Stderr, "row %d: %v, skipping\n", rowNum, err)
			skipped++
			continue
		}

		categoryID, err := ensureCategory(gdb, categoryCache, categoryName)
		if err != nil {
			return imported, skipped, fmt.Errorf("row %d: %w", rowNum, err)
		}
		product.CategoryID = categoryID

		var existing model.Product
		err = gdb.Where("slug = ?", product.Slug).First(&existing).Error
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return imported, skipped, err
		}

		if err := gdb.Create(product).Error; err != nil {
			return imported, skipped, fmt.Errorf("row %d: %w", rowNum, err)
		}
		imported++
	}

	return imported, skipped, nil
}

func parseRow(row []string) (*model.Product, string, error) {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	name := get(0)
	if name == "" {
		return nil, "", errors.New("missing name")
	}

	slug := get(1)
	if slug == "" {
		slug = slugify(name)
	}

	price, err := strconv.ParseFloat(get(3), 64)
	if err != nil || price <= 0 {
		return nil, "", fmt.Errorf("invalid price %q", get(3))
	}

	stock, err := strconv.Atoi(get(4))
	if err != nil || stock < 0 {
		return nil, "", fmt.Errorf("invalid stock %q", get(4))
	}

	category := get(6)
	if category == "" {
		return nil, "", errors.New("missing category")
	}

	return &model.Product{
		Name:        name,
		Slug:        slug,
		Description: get(2),
		Price:       price,
		Stock:       stock,
		ImageURL:    get(5),
	}, category, nil
}

func ensureCategory(gdb *gorm.DB, cache map[string]uint, name string) (uint, error) {
	slug := slugify(name)
	if id, ok := cache[slug]; ok {
		return id, nil
	}

	var category model.Category
	err := gdb.Where("slug = ?", slug).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		category = model.Category{Name: name, Slug: slug}
		err = gdb.Create(&category).Error
	}
	if err != nil {
		return 0, err
	}

	cache[slug] = category.ID
	return category.ID, nil
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
