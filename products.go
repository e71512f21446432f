package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/prrathnayake/stock-system-sub001/internal/api"
)

func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the product catalogue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all products",
		RunE:  runProductsList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE:  runProductsGet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search products by name, SKU, or category",
		Args:  cobra.ExactArgs(1),
		RunE:  runProductsSearch,
	})
	cmd.AddCommand(newProductsCreateCmd())
	cmd.AddCommand(newProductsUpdateCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE:  runProductsDelete,
	})

	return cmd
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Look up a product by barcode",
		Args:  cobra.ExactArgs(1),
		RunE:  runLookup,
	}
}

func newStockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Adjust stock levels",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "adjust <id> <delta>",
		Short: "Adjust a product's quantity by a signed delta",
		Args:  cobra.ExactArgs(2),
		RunE:  runStockAdjust,
	})

	return cmd
}

func runProductsList(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.client.Products(ctx)
	if err != nil {
		return fmt.Errorf("listing products: %w", err)
	}

	return printProducts(products)
}

func runProductsGet(_ *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := context.Background()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	product, err := a.client.Product(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("product %d not found", id)
		}

		return err
	}

	return printProduct(product)
}

func runProductsSearch(_ *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := context.Background()

	// Normalise to NFC so accented input matches regardless of how the
	// terminal composed it.
	query := norm.NFC.String(strings.TrimSpace(args[0]))
	if query == "" {
		return fmt.Errorf("empty search query")
	}

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.client.SearchProducts(ctx, query)
	if err != nil {
		return fmt.Errorf("searching products: %w", err)
	}

	return printProducts(products)
}

func newProductsCreateCmd() *cobra.Command {
	var product api.Product

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		RunE: func(_ *cobra.Command, _ []string) error {
			if product.Name == "" {
				return fmt.Errorf("--name is required")
			}

			logger := buildLogger()

			a, err := newApp(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.client.CreateProduct(context.Background(), product)
			if err != nil {
				return fmt.Errorf("creating product: %w", err)
			}

			reportMutation(resp, "Product created.")

			return nil
		},
	}

	bindProductFlags(cmd, &product)

	return cmd
}

func newProductsUpdateCmd() *cobra.Command {
	var product api.Product

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			logger := buildLogger()

			a, err := newApp(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.client.UpdateProduct(context.Background(), id, product)
			if err != nil {
				return fmt.Errorf("updating product: %w", err)
			}

			reportMutation(resp, "Product updated.")

			return nil
		},
	}

	bindProductFlags(cmd, &product)

	return cmd
}

// bindProductFlags binds the shared create/update field flags.
func bindProductFlags(cmd *cobra.Command, product *api.Product) {
	cmd.Flags().StringVar(&product.SKU, "sku", "", "stock keeping unit")
	cmd.Flags().StringVar(&product.Barcode, "barcode", "", "barcode")
	cmd.Flags().StringVar(&product.Name, "name", "", "product name")
	cmd.Flags().StringVar(&product.Category, "category", "", "category")
	cmd.Flags().Int64Var(&product.PriceCents, "price", 0, "unit price in cents")
	cmd.Flags().Int64Var(&product.Quantity, "qty", 0, "stock quantity")
}

func runProductsDelete(_ *cobra.Command, args []string) error {
	logger := buildLogger()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.client.DeleteProduct(context.Background(), id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}

	reportMutation(resp, "Product deleted.")

	return nil
}

func runLookup(_ *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := context.Background()

	code := strings.TrimSpace(args[0])
	if code == "" {
		return fmt.Errorf("empty barcode")
	}

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	product, err := a.client.ProductByBarcode(ctx, code)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("no product with barcode %q", code)
		}

		return err
	}

	return printProduct(product)
}

func runStockAdjust(_ *cobra.Command, args []string) error {
	logger := buildLogger()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid delta %q", args[1])
	}

	if delta == 0 {
		return fmt.Errorf("delta must be non-zero")
	}

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.client.AdjustStock(context.Background(), id, delta)
	if err != nil {
		return fmt.Errorf("adjusting stock: %w", err)
	}

	reportMutation(resp, fmt.Sprintf("Stock adjusted by %+d.", delta))

	return nil
}

// reportMutation prints the outcome of a write, distinguishing a live server
// acknowledgement from an offline-queued mutation.
func reportMutation(resp *api.Response, done string) {
	if resp.Queued {
		statusf("Server unreachable — queued locally, will sync on reconnect.\n")

		return
	}

	statusf("%s\n", done)
}

// parseID parses a positive numeric entity ID from a CLI argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}

	return id, nil
}

func printProducts(products []api.Product) error {
	if flagJSON {
		return printJSON(products)
	}

	if len(products) == 0 {
		fmt.Println("No products.")

		return nil
	}

	relative := stdoutIsTTY()
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.SKU,
			p.Name,
			p.Category,
			formatCents(p.PriceCents),
			strconv.FormatInt(p.Quantity, 10),
			formatTime(p.UpdatedAt, relative),
		})
	}

	printTable(os.Stdout, []string{"ID", "SKU", "NAME", "CATEGORY", "PRICE", "QTY", "UPDATED"}, rows)

	return nil
}

func printProduct(p *api.Product) error {
	if flagJSON {
		return printJSON(p)
	}

	fmt.Printf("Product: %s (id %d)\n", p.Name, p.ID)
	fmt.Printf("  SKU:      %s\n", p.SKU)
	fmt.Printf("  Barcode:  %s\n", p.Barcode)
	fmt.Printf("  Category: %s\n", p.Category)
	fmt.Printf("  Price:    %s\n", formatCents(p.PriceCents))
	fmt.Printf("  Qty:      %d\n", p.Quantity)

	return nil
}
