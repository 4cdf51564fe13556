package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/kiplystart/kiplystart-backend/config"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/app/service"
	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/internal/db"
)

// seed imports a product catalog spreadsheet into the store.
//
//	go run ./cmd/seed catalogo.xlsx
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}
	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	productService := service.NewProductService(
		repository.NewProductRepository(db.GetDB()),
		cart.Tiers{Tier2Pct: cfg.Cart.Tier2Pct, Tier3PlusPct: cfg.Cart.Tier3PlusPct},
	)

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	report, err := readProductsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	for _, rowErr := range report.Skipped {
		fmt.Printf("  skipped %v\n", rowErr)
	}
	fmt.Printf("Total products to import: %d\n", len(report.Products))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	created, existing := 0, 0
	for _, input := range report.Products {
		product, err := productService.CreateProduct(input)
		switch {
		case errors.Is(err, service.ErrSlugExists):
			existing++
			continue
		case err != nil:
			log.Fatalf("Failed to create product %q: %v", input.Name, err)
		}
		created++
		fmt.Printf("  %s -> /products/%s\n", product.Name, product.Slug)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("  Created: %d\n", created)
	fmt.Printf("  Already present: %d\n", existing)
}
