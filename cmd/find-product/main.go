package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/config"
	"github.com/popupmarket/proxybuy/internal/pricing"
	"github.com/popupmarket/proxybuy/internal/repository/postgres"
)

const pageSize = 50

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/find-product/main.go <name>")
		fmt.Println("Example: go run cmd/find-product/main.go \"photocard\"")
		os.Exit(1)
	}

	query := os.Args[1]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	repos := postgres.NewRepositories(db, logger)

	fmt.Printf("Searching for products matching: %s\n\n", query)

	found := 0
	for offset := 0; ; offset += pageSize {
		products, err := repos.Product.SearchByName(ctx, query, pageSize, offset)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to search products: %v\n", err)
			os.Exit(1)
		}

		for _, p := range products {
			found++
			fmt.Printf("%s\n", p.Name)
			fmt.Printf("  Product ID: %s\n", p.ID)
			fmt.Printf("  Event ID:   %s\n", p.EventID)
			fmt.Printf("  Price:      %s (%s)\n", pricing.FormatAmount(p.Price), p.Status)

			options, err := repos.Option.ListByProduct(ctx, p.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to list options: %v\n", err)
				os.Exit(1)
			}
			for _, o := range options {
				fmt.Printf("    - %s  %s  [%s]\n", o.Name, pricing.FormatAmount(pricing.UnitPrice(p, o)), o.ID)
			}
			fmt.Println()
		}

		if len(products) < pageSize {
			break
		}
	}

	if found == 0 {
		fmt.Printf("No product matches '%s'.\n", query)
		os.Exit(1)
	}
	fmt.Printf("%d product(s) found\n", found)
}
