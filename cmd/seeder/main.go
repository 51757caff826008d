package main

import (
	"fmt"
	"os"

	"geo-attendance/config"
	"geo-attendance/internal/database"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var fixturePath string
	var dryRun bool

	root := &cobra.Command{
		Use:           "seeder",
		Short:         "Seed organisation, geofence zones and employees",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println("🌱 Memulai Database Seeding...")

			fixture := database.DefaultFixture()
			if fixturePath != "" {
				f, err := database.LoadFixture(fixturePath)
				if err != nil {
					return err
				}
				fixture = f
			}
			if dryRun {
				fmt.Printf("Fixture valid: %d zona, %d pegawai\n", len(fixture.Zones), len(fixture.Employees))
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.ConnectDB(cfg); err != nil {
				return err
			}

			fmt.Println("🚀 Menjalankan SeedAll...")
			if err := database.SeedAll(config.DB, fixture); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Println("✅ Seeding Selesai!")
			return nil
		},
	}
	root.Flags().StringVarP(&fixturePath, "fixture", "f", "", "YAML fixture file (default: built-in sample)")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "validate the fixture without touching the database")
	return root
}
