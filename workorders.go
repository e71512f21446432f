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

// workOrderStages lists valid kanban stages in board order.
var workOrderStages = []string{
	api.StageIntake,
	api.StageDiagnosis,
	api.StageRepair,
	api.StageTesting,
	api.StageReady,
	api.StageDelivered,
}

func newWorkOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workorders",
		Short: "Manage repair work orders",
	}

	cmd.AddCommand(newWorkOrdersListCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one work order",
		Args:  cobra.ExactArgs(1),
		RunE:  runWorkOrdersGet,
	})
	cmd.AddCommand(newWorkOrdersCreateCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move a work order to another kanban stage",
		Args:  cobra.ExactArgs(2),
		RunE:  runWorkOrdersMove,
	})

	return cmd
}

func newWorkOrdersListCmd() *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work orders, optionally filtered by stage",
		RunE: func(_ *cobra.Command, _ []string) error {
			if stage != "" {
				if err := validateStage(stage); err != nil {
					return err
				}
			}

			return runWorkOrdersList(stage)
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "filter by stage ("+strings.Join(workOrderStages, ", ")+")")

	return cmd
}

func runWorkOrdersList(stage string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	orders, err := a.client.WorkOrders(ctx, stage)
	if err != nil {
		return fmt.Errorf("listing work orders: %w", err)
	}

	if flagJSON {
		return printJSON(orders)
	}

	if len(orders) == 0 {
		fmt.Println("No work orders.")

		return nil
	}

	relative := stdoutIsTTY()
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			strconv.FormatInt(o.ID, 10),
			o.Stage,
			o.Title,
			o.Device,
			strconv.FormatInt(o.CustomerID, 10),
			formatTime(o.CreatedAt, relative),
		})
	}

	printTable(os.Stdout, []string{"ID", "STAGE", "TITLE", "DEVICE", "CUSTOMER", "CREATED"}, rows)

	return nil
}

func runWorkOrdersGet(_ *cobra.Command, args []string) error {
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

	order, err := a.client.WorkOrder(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("work order %d not found", id)
		}

		return err
	}

	if flagJSON {
		return printJSON(order)
	}

	fmt.Printf("Work order: %s (id %d)\n", order.Title, order.ID)
	fmt.Printf("  Stage:    %s\n", order.Stage)
	fmt.Printf("  Device:   %s\n", order.Device)
	fmt.Printf("  Customer: %d\n", order.CustomerID)

	if order.Notes != "" {
		fmt.Printf("  Notes:    %s\n", order.Notes)
	}

	return nil
}

func newWorkOrdersCreateCmd() *cobra.Command {
	var order api.WorkOrder

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a work order in the intake stage",
		RunE: func(_ *cobra.Command, _ []string) error {
			if order.Title == "" {
				return fmt.Errorf("--title is required")
			}

			order.Stage = api.StageIntake

			logger := buildLogger()

			a, err := newApp(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.client.CreateWorkOrder(context.Background(), order)
			if err != nil {
				return fmt.Errorf("creating work order: %w", err)
			}

			reportMutation(resp, "Work order created.")

			return nil
		},
	}

	cmd.Flags().StringVar(&order.Title, "title", "", "short problem summary")
	cmd.Flags().StringVar(&order.Device, "device", "", "device make and model")
	cmd.Flags().Int64Var(&order.CustomerID, "customer", 0, "customer ID")
	cmd.Flags().StringVar(&order.Notes, "notes", "", "intake notes")

	return cmd
}

func runWorkOrdersMove(_ *cobra.Command, args []string) error {
	logger := buildLogger()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	stage := strings.ToLower(strings.TrimSpace(args[1]))
	if err := validateStage(stage); err != nil {
		return err
	}

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.client.MoveWorkOrder(context.Background(), id, stage)
	if err != nil {
		return fmt.Errorf("moving work order: %w", err)
	}

	reportMutation(resp, fmt.Sprintf("Work order moved to %s.", stage))

	return nil
}

// validateStage rejects stage names the board does not have.
func validateStage(stage string) error {
	for _, s := range workOrderStages {
		if stage == s {
			return nil
		}
	}

	return fmt.Errorf("unknown stage %q (valid: %s)", stage, strings.Join(workOrderStages, ", "))
}
