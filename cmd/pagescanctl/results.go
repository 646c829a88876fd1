package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"

	gcsadapter "github.com/ericfisherdev/pagescan/internal/adapter/driven/gcs"
	"github.com/ericfisherdev/pagescan/internal/adapter/driven/imagefs"
	sqliteadapter "github.com/ericfisherdev/pagescan/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/pagescan/internal/domain/model"
	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// resultsCmd represents the results command
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect and prune stored OCR results",
	Long: `Inspect and prune stored OCR results.

The database is located through PAGESCAN_DB_PATH (default storage/app.db).`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'results' requires a subcommand (list, delete)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored results, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		db, err := openResultDB(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to open database:", err)
			os.Exit(1)
		}
		defer db.Close()

		results, err := sqliteadapter.NewResultRepo(db).ListAll(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to list results:", err)
			os.Exit(1)
		}

		printResults(cmd, results)
	},
}

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored result",
	Long: `Delete a stored result.

Only the metadata row is removed unless --with-image is given, in which case
the source image is deleted from the image store as well.

Example:
  pagescanctl results delete 42
  pagescanctl results delete 42 --with-image`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			fmt.Fprintf(os.Stderr, "Invalid result id %q\n", args[0])
			os.Exit(1)
		}

		db, err := openResultDB(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to open database:", err)
			os.Exit(1)
		}
		defer db.Close()

		withImage, _ := cmd.Flags().GetBool("with-image")

		var images driven.ImageStore
		if withImage {
			store, closeImages, err := openImageStore(ctx)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Unable to open image store:", err)
				os.Exit(1)
			}
			defer closeImages()
			images = store
		}

		if err := deleteResult(ctx, cmd.OutOrStdout(), sqliteadapter.NewResultRepo(db), images, id); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsDeleteCmd)

	resultsDeleteCmd.Flags().Bool("with-image", false, "also delete the source image")
}

// deleteResult removes result id and, when images is non-nil, its source image.
func deleteResult(ctx context.Context, out io.Writer, results driven.ResultStore, images driven.ImageStore, id int64) error {
	row, err := results.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("unable to read result: %w", err)
	}
	if row == nil {
		return fmt.Errorf("result %d not found", id)
	}

	if _, err := results.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("unable to delete result: %w", err)
	}
	fmt.Fprintf(out, "Deleted result %d\n", id)

	if images == nil {
		return nil
	}

	exists, err := images.Exists(ctx, row.ImageFilename)
	if err != nil {
		return fmt.Errorf("unable to check image: %w", err)
	}
	if !exists {
		fmt.Fprintf(out, "Image %s already absent\n", row.ImageFilename)
		return nil
	}

	if err := images.Delete(ctx, row.ImageFilename); err != nil {
		return fmt.Errorf("unable to delete image: %w", err)
	}
	fmt.Fprintf(out, "Deleted image %s\n", row.ImageFilename)
	return nil
}

func openResultDB(ctx context.Context) (*sqliteadapter.DB, error) {
	db, err := sqliteadapter.NewDB(ctx, envOr("PAGESCAN_DB_PATH", "storage/app.db"))
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer, nil); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openImageStore(ctx context.Context) (driven.ImageStore, func(), error) {
	if bucket := strings.TrimSpace(os.Getenv("PAGESCAN_GCS_BUCKET")); bucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		prefix := strings.TrimSpace(os.Getenv("PAGESCAN_GCS_PREFIX"))
		return gcsadapter.New(client, bucket, prefix), func() { _ = client.Close() }, nil
	}

	store, err := imagefs.New(envOr("PAGESCAN_IMAGE_DIR", "storage/images"))
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

func printResults(cmd *cobra.Command, results []model.OCRResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No results stored.")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tIMAGE\tFIRST LINE")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.ImageFilename, firstLine(r.MarkdownText))
	}
	_ = tw.Flush()
}

func firstLine(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#-* "))
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > 50 {
			return string(r[:50]) + "..."
		}
		return line
	}
	return ""
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
