package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Jmsandi/newmedtech1-sub002/internal/config"
	"github.com/Jmsandi/newmedtech1-sub002/internal/domain/maternallab"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/db"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/docstore"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/lock"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/messaging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "maternal-lab",
		Short:        "Maternal lab test risk scoring service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(patientsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the maternal lab API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientsFile, _ := cmd.Flags().GetString("patients-file")
			return runServer(patientsFile)
		},
	}
	cmd.Flags().String("patients-file", "", "JSON file of maternal patients to load at startup (memory store only)")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	run := func(action func(context.Context, *db.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrations only apply to STORE_DRIVER=%s (current %q)", config.DriverPostgres, cfg.StoreDriver)
			}
			migrator, err := db.OpenMigrator(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer migrator.Close()
			return action(cmd.Context(), migrator)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: run(func(ctx context.Context, m *db.Migrator) error {
			if err := m.Up(ctx); err != nil {
				return err
			}
			fmt.Println("Migrations applied successfully.")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: run(func(ctx context.Context, m *db.Migrator) error {
			return m.Down(ctx)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: run(func(ctx context.Context, m *db.Migrator) error {
			return m.Status(ctx)
		}),
	})

	return cmd
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the lab test catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := json.MarshalIndent(maternallab.DefaultCatalog().Categories(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a lab test request offline without persisting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			t, err := scoreOffline(cmd.Context(), data, zerolog.New(os.Stderr).With().Timestamp().Logger())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(t, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to a JSON lab test request")
	return cmd
}

// scoreOffline previews a request against an in-memory store. The request's
// gestational age stands in for the patient record.
func scoreOffline(ctx context.Context, data []byte, logger zerolog.Logger) (*maternallab.LabTest, error) {
	var req maternallab.SubmitTestRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if req.PatientID == uuid.Nil {
		req.PatientID = uuid.New()
	}

	store := docstore.NewMemoryStore()
	patients := maternallab.NewPatientDirectoryStore(store)
	stub := &maternallab.MaternalPatient{ID: req.PatientID}
	if req.GestationalAgeWeeks != nil {
		stub.GestationalAgeWeeks = *req.GestationalAgeWeeks
	}
	if err := patients.Register(ctx, stub); err != nil {
		return nil, err
	}

	svc := maternallab.NewService(
		maternallab.DefaultCatalog(),
		maternallab.NewLabTestRepoStore(store),
		maternallab.NewRiskProfileRepoStore(store),
		maternallab.NewAlertRepoStore(store),
		patients,
		lock.NewLocalLocker(),
		messaging.NoopPublisher{},
		logger,
	)
	return svc.PreviewTest(ctx, &req)
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Manage the maternal patient registry",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import maternal patients from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.DriverMemory {
				return fmt.Errorf("patients import needs a persistent store; use serve --patients-file with STORE_DRIVER=memory")
			}
			logger := newLogger(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			b, err := openBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.close()

			n, err := importPatients(ctx, maternallab.NewPatientDirectoryStore(b.store), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d patient(s).\n", n)
			return nil
		},
	}
	importCmd.Flags().String("file", "", "Path to a JSON array of maternal patients")
	cmd.AddCommand(importCmd)

	return cmd
}

func importPatients(ctx context.Context, dir *maternallab.PatientDirectoryStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	var patients []*maternallab.MaternalPatient
	if err := json.Unmarshal(data, &patients); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	for i, p := range patients {
		if err := dir.Register(ctx, p); err != nil {
			return i, fmt.Errorf("register patient %s: %w", p.ID, err)
		}
	}
	return len(patients), nil
}
