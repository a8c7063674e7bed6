package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the escrow tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := models.MigrateTable(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo escrows with participants, timeline, financials and documents",
		Long: `seed inserts the bundled demo escrows. Escrows whose property address
already exists are skipped, so the command can be rerun.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrate {
				if err := models.MigrateTable(cmd.Context()); err != nil {
					return err
				}
			}
			created, err := models.SeedDemoData(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(created) == 0 {
				fmt.Fprintln(out, "nothing to seed; demo escrows already present")
				return nil
			}
			for _, displayId := range created {
				fmt.Fprintf(out, "created %s\n", displayId)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run migrations before seeding")
	return cmd
}

func newBackfillChecklistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-checklists",
		Short: "Seed the default checklist for escrows that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := models.BackfillChecklists(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d checklist(s)\n", n)
			return nil
		},
	}
}

func newProbeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report which key scheme each escrow child table uses",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := models.DetectChildSchema(cmd.Context(), config.GetDB())
			out := cmd.OutOrStdout()
			if asJSON {
				type row struct {
					models.ChildSchemaReport
					Generation string `json:"generation"`
				}
				rows := make([]row, 0, len(reports))
				for _, r := range reports {
					rows = append(rows, row{ChildSchemaReport: r, Generation: r.Generation()})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tGENERATION\tescrow_display_id\tescrow_id")
			for _, r := range reports {
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", r.Table, r.Generation(), r.DisplayKeyed, r.NumericKeyed)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
