package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/entrhq/pcbuilder/pkg/budget"
)

func budgetCmd() *cobra.Command {
	var (
		purpose    string
		categories []string
		spent      float64
	)

	cmd := &cobra.Command{
		Use:   "budget <amount>",
		Short: "Print the per-category budget split for a build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := strconv.ParseFloat(strings.TrimPrefix(args[0], "$"), 64)
			if err != nil || total <= 0 {
				return fmt.Errorf("budget must be a positive number, got %q", args[0])
			}

			cats := make([]budget.Category, 0, len(categories))
			for _, s := range categories {
				c, err := budget.ParseCategory(s)
				if err != nil {
					return err
				}
				cats = append(cats, c)
			}

			p := budget.ParsePurpose(purpose)
			printAllocations(cmd.OutOrStdout(), total, p, budget.Allocate(total, p, cats))
			if spent > 0 {
				printOverBudget(cmd.OutOrStdout(), budget.CheckOverBudget(total, spent))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&purpose, "purpose", "p", string(budget.PurposeGeneral), "Build purpose: gaming, workstation or general")
	cmd.Flags().StringSliceVarP(&categories, "categories", "c", nil, "Only split across these categories")
	cmd.Flags().Float64Var(&spent, "spent", 0, "Compare a build total against the budget")
	return cmd
}

func printAllocations(w io.Writer, total float64, purpose budget.Purpose, allocs []budget.Allocation) {
	fmt.Fprintln(w, color.CyanString("Budget split for a $%.0f %s build", total, purpose))
	fmt.Fprintln(w, strings.Repeat("─", 44))
	for _, a := range allocs {
		fmt.Fprintf(w, "  %-18s %s\n", a.Category, color.GreenString("$%d – $%d", a.Min, a.Max))
	}
}

func printOverBudget(w io.Writer, ob budget.OverBudget) {
	fmt.Fprintln(w)
	switch {
	case ob.Over:
		fmt.Fprintln(w, color.RedString("Over budget by $%.2f (%.1f%%)", ob.Amount, ob.Percentage))
	case ob.Amount > 0:
		fmt.Fprintln(w, color.YellowString("Slightly over budget by $%.2f (%.1f%%)", ob.Amount, ob.Percentage))
	default:
		fmt.Fprintln(w, color.GreenString("Within budget ($%.2f to spare)", -ob.Amount))
	}
}
