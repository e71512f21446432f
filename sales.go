package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prrathnayake/stock-system-sub001/internal/api"
)

func newSalesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Record and list point-of-sale transactions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sales",
		RunE:  runSalesList,
	})
	cmd.AddCommand(newSalesCreateCmd())

	return cmd
}

func newInvoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "List and show invoices",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List invoices",
		RunE:  runInvoicesList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one invoice",
		Args:  cobra.ExactArgs(1),
		RunE:  runInvoicesGet,
	})

	return cmd
}

func runSalesList(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sales, err := a.client.Sales(ctx)
	if err != nil {
		return fmt.Errorf("listing sales: %w", err)
	}

	if flagJSON {
		return printJSON(sales)
	}

	if len(sales) == 0 {
		fmt.Println("No sales.")

		return nil
	}

	relative := stdoutIsTTY()
	rows := make([][]string, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			strconv.FormatInt(s.CustomerID, 10),
			strconv.Itoa(len(s.Items)),
			formatCents(s.TotalCents),
			formatTime(s.CreatedAt, relative),
		})
	}

	printTable(os.Stdout, []string{"ID", "CUSTOMER", "ITEMS", "TOTAL", "CREATED"}, rows)

	return nil
}

func newSalesCreateCmd() *cobra.Command {
	var customerID int64
	var itemSpecs []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a sale",
		Long: `Record a sale with one or more line items.

Each --item takes the form product_id:quantity:unit_cents, repeated per line:

  stockctl sales create --customer 7 --item 12:2:1999 --item 31:1:4900`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if len(itemSpecs) == 0 {
				return fmt.Errorf("at least one --item is required")
			}

			items := make([]api.SaleItem, 0, len(itemSpecs))
			for _, spec := range itemSpecs {
				item, err := parseSaleItem(spec)
				if err != nil {
					return err
				}

				items = append(items, item)
			}

			logger := buildLogger()

			a, err := newApp(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			sale := api.Sale{CustomerID: customerID, Items: items, TotalCents: saleTotal(items)}

			resp, err := a.client.CreateSale(context.Background(), sale)
			if err != nil {
				return fmt.Errorf("recording sale: %w", err)
			}

			reportMutation(resp, fmt.Sprintf("Sale recorded (%s).", formatCents(sale.TotalCents)))

			return nil
		},
	}

	cmd.Flags().Int64Var(&customerID, "customer", 0, "customer ID")
	cmd.Flags().StringArrayVar(&itemSpecs, "item", nil, "line item as product_id:quantity:unit_cents (repeatable)")

	return cmd
}

// parseSaleItem parses a product_id:quantity:unit_cents line item spec.
func parseSaleItem(spec string) (api.SaleItem, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return api.SaleItem{}, fmt.Errorf("invalid item %q: want product_id:quantity:unit_cents", spec)
	}

	productID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || productID <= 0 {
		return api.SaleItem{}, fmt.Errorf("invalid item %q: bad product id", spec)
	}

	quantity, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || quantity <= 0 {
		return api.SaleItem{}, fmt.Errorf("invalid item %q: bad quantity", spec)
	}

	unitCents, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || unitCents < 0 {
		return api.SaleItem{}, fmt.Errorf("invalid item %q: bad unit price", spec)
	}

	return api.SaleItem{ProductID: productID, Quantity: quantity, UnitCents: unitCents}, nil
}

// saleTotal sums line totals in cents.
func saleTotal(items []api.SaleItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Quantity * item.UnitCents
	}

	return total
}

func runInvoicesList(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	invoices, err := a.client.Invoices(ctx)
	if err != nil {
		return fmt.Errorf("listing invoices: %w", err)
	}

	if flagJSON {
		return printJSON(invoices)
	}

	if len(invoices) == 0 {
		fmt.Println("No invoices.")

		return nil
	}

	relative := stdoutIsTTY()
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, []string{
			strconv.FormatInt(inv.ID, 10),
			inv.Number,
			strconv.FormatInt(inv.SaleID, 10),
			formatCents(inv.TotalCents),
			formatTime(inv.IssuedAt, relative),
		})
	}

	printTable(os.Stdout, []string{"ID", "NUMBER", "SALE", "TOTAL", "ISSUED"}, rows)

	return nil
}

func runInvoicesGet(_ *cobra.Command, args []string) error {
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

	invoice, err := a.client.Invoice(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("invoice %d not found", id)
		}

		return err
	}

	if flagJSON {
		return printJSON(invoice)
	}

	fmt.Printf("Invoice: %s (id %d)\n", invoice.Number, invoice.ID)
	fmt.Printf("  Sale:   %d\n", invoice.SaleID)
	fmt.Printf("  Total:  %s\n", formatCents(invoice.TotalCents))
	fmt.Printf("  Issued: %s\n", formatTime(invoice.IssuedAt, false))

	return nil
}
