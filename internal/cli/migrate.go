package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/docsign/internal/store/awsconfig"
	"github.com/information-sharing-networks/docsign/internal/store/dynamodb"
	"github.com/information-sharing-networks/docsign/internal/store/postgres"
	"github.com/information-sharing-networks/docsign/internal/store/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the document store",
	Long: `Apply the embedded schema migrations for the configured STORE_BACKEND.

  postgres  goose migrations from sql/schema
  sqlite    goose migrations embedded in the sqlite store
  dynamodb  create DYNAMODB_TABLE if it does not exist
  memory    nothing to do`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context(), cmd.OutOrStdout())
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of each postgres migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StoreBackend != "postgres" {
			return fmt.Errorf("migration status is only tracked for STORE_BACKEND=postgres (got %s)", cfg.StoreBackend)
		}
		return runMigrateStatus(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrate(ctx context.Context, out io.Writer) error {
	switch cfg.StoreBackend {
	case "postgres":
		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		results, err := postgres.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "database is up to date")
		}
		for _, r := range results {
			fmt.Fprintf(out, "applied %s (%s)\n", r.Source.Path, r.Duration.Round(time.Millisecond))
		}

	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer s.Close()
		fmt.Fprintf(out, "sqlite database %s is up to date\n", cfg.SQLitePath)

	case "dynamodb":
		awsCfg, err := awsconfig.Load(ctx, awsconfig.Options{Region: cfg.AWSRegion, EndpointURL: cfg.AWSEndpointURL})
		if err != nil {
			return err
		}
		client := dynamodb.NewClient(awsCfg, cfg.AWSEndpointURL)
		if err := dynamodb.CreateTable(ctx, client, cfg.DynamoDBTable); err != nil {
			return err
		}
		fmt.Fprintf(out, "dynamodb table %s is ready\n", cfg.DynamoDBTable)

	default:
		fmt.Fprintf(out, "nothing to migrate for STORE_BACKEND=%s\n", cfg.StoreBackend)
	}

	appLogger.Info("migrate complete", slog.String("store", cfg.StoreBackend))
	return nil
}

func runMigrateStatus(ctx context.Context, out io.Writer) error {
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	statuses, err := postgres.MigrationStatus(ctx, pool)
	if err != nil {
		return err
	}
	printMigrationStatus(out, statuses)
	return nil
}

func printMigrationStatus(out io.Writer, statuses []*goose.MigrationStatus) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
	}
	_ = tw.Flush()
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DatabasePingTimeout)
	defer cancel()

	return postgres.NewPool(pingCtx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxConns:       2,
		ConnectTimeout: cfg.DBConnectTimeout,
	})
}
