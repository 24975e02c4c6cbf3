// Command copydb copies MongoDB collections from one database to another in
// batches of 500 documents.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/database"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/dbcopy"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
)

const connectAttempts = 3

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "copydb",
	Short: "Copy MongoDB collections between databases",
	Long: `Copy every document of the selected collections from a source database
into a target database. Collections are copied one at a time in batches;
the first failure aborts the run with a non-zero exit status.

Flags may also be given as environment variables (COPY_SOURCE_URI,
COPY_TARGET_DB, ...). The source URI defaults to MONGODB_URI.

Examples:
  copydb --source-db fisheries_college --target-uri mongodb://backup:27017
  copydb --collection news --collection programs --drop --target-db staging`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	f := rootCmd.Flags()
	f.String("source-uri", "", "source MongoDB URI (default $MONGODB_URI)")
	f.String("source-db", "", "source database name (default $MONGODB_DATABASE)")
	f.String("target-uri", "", "target MongoDB URI (default: same as source)")
	f.String("target-db", "", "target database name (required)")
	f.StringSlice("collection", nil, "collection to copy; repeatable (default: all)")
	f.Int("batch-size", dbcopy.DefaultBatchSize, "documents per insert batch")
	f.Bool("drop", false, "drop each target collection before copying")
	f.Duration("timeout", 10*time.Second, "connect timeout")
	f.Bool("json", false, "print results as JSON")
	f.String("log-level", "info", "log level")

	v.SetEnvPrefix("COPY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(f)
}

func firstNonEmpty(vals ...string) string {
	for _, s := range vals {
		if s != "" {
			return s
		}
	}
	return ""
}

func run(ctx context.Context) error {
	logger.Init(v.GetString("log-level"))
	defer logger.Sync()

	sourceURI := firstNonEmpty(v.GetString("source-uri"), os.Getenv("MONGODB_URI"))
	sourceDB := firstNonEmpty(v.GetString("source-db"), os.Getenv("MONGODB_DATABASE"))
	targetURI := firstNonEmpty(v.GetString("target-uri"), sourceURI)
	targetDB := v.GetString("target-db")
	switch {
	case sourceURI == "":
		return fmt.Errorf("--source-uri or MONGODB_URI is required")
	case sourceDB == "":
		return fmt.Errorf("--source-db is required")
	case targetDB == "":
		return fmt.Errorf("--target-db is required")
	case sourceURI == targetURI && sourceDB == targetDB:
		return fmt.Errorf("source and target are the same database")
	}

	timeout := v.GetDuration("timeout")
	srcClient, err := database.ConnectWithRetry(ctx, sourceURI, timeout, connectAttempts)
	if err != nil {
		return fmt.Errorf("connect source: %w", err)
	}
	defer func() { _ = srcClient.Disconnect(context.Background()) }()

	dstClient := srcClient
	if targetURI != sourceURI {
		if dstClient, err = database.ConnectWithRetry(ctx, targetURI, timeout, connectAttempts); err != nil {
			return fmt.Errorf("connect target: %w", err)
		}
		defer func() { _ = dstClient.Disconnect(context.Background()) }()
	}

	copier := dbcopy.New(
		dbcopy.NewMongoDB(srcClient.Database(sourceDB)),
		dbcopy.NewMongoDB(dstClient.Database(targetDB)),
		dbcopy.WithBatchSize(v.GetInt("batch-size")),
		dbcopy.WithDrop(v.GetBool("drop")),
	)
	logger.Infof("copying %s -> %s", sourceDB, targetDB)
	results, runErr := copier.Run(ctx, v.GetStringSlice("collection"))

	if v.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "COLLECTION\tSOURCE\tCOPIED\tBATCHES")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", r.Collection, r.Source, r.Copied, r.Batches)
		}
		_ = w.Flush()
	}
	return runErr
}

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
