package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/dimitrije/nikode-engine/internal/config"
	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/dimitrije/nikode-engine/internal/importer"
	"github.com/dimitrije/nikode-engine/internal/normalize"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	ownerID string
	name    string
	dryRun  bool
)

type documentImporter interface {
	Import(content []byte, name string) (*normalize.ImportResult, error)
}

var rootCmd = &cobra.Command{
	Use:   "nikode-import",
	Short: "Import API descriptions into nikode collections",
	Long: `Import an OpenAPI 3, Swagger 2 or Postman v2 document as a new collection.
Pass "-" as the file to read the document from stdin.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var openapiCmd = &cobra.Command{
	Use:   "openapi [file]",
	Short: "Import an OpenAPI 3.x or Swagger 2.0 document (JSON or YAML)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), importer.NewOpenAPIImporter(), args[0])
	},
}

var postmanCmd = &cobra.Command{
	Use:   "postman [file]",
	Short: "Import a Postman v2.0/v2.1 collection (JSON)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), importer.NewPostmanImporter(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "", "Owner user ID for the new collection")
	rootCmd.PersistentFlags().StringVar(&name, "name", "", "Collection name, overriding the document title")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print the normalized collection instead of storing it")

	rootCmd.AddCommand(openapiCmd)
	rootCmd.AddCommand(postmanCmd)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runImport(ctx context.Context, imp documentImporter, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	content, err := readInput(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := imp.Import(content, name)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	if dryRun {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return fmt.Errorf("--owner must be a user id: %w", err)
	}

	db, err := database.New(ctx, config.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	collection, err := services.NewImportService(db).Persist(ctx, owner, result)
	if err != nil {
		return err
	}

	slog.Info("collection imported",
		"collection_id", collection.ID,
		"name", collection.Name,
		"folders", len(result.Folders),
		"requests", len(result.Requests),
	)
	fmt.Printf("Imported '%s' (ID: %s): %d folders, %d requests\n",
		collection.Name, collection.ID, len(result.Folders), len(result.Requests))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Import failed: %v", err)
	}
}
