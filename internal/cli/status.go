package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/docsign/internal/store"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Show the workflow status of a document",
	Long: `Load a document from the configured store and print its workflow status.

The payload is never decrypted. Logically deleted documents are shown with their deletion time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		backend, err := store.Open(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer backend.Close()

		return printStatus(ctx, cmd.OutOrStdout(), backend.Store, args[0], time.Now().UTC())
	},
}

func printStatus(ctx context.Context, out io.Writer, s workflow.Store, id string, now time.Time) error {
	doc, err := s.Load(ctx, id)
	if errors.Is(err, workflow.ErrNotFound) {
		return fmt.Errorf("document %s not found", id)
	}
	if err != nil {
		return err
	}

	recipients := make([]string, 0, len(doc.Recipients))
	for _, r := range doc.Recipients {
		recipients = append(recipients, r.Email)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", doc.ID)
	fmt.Fprintf(tw, "file\t%s (%d bytes)\n", doc.FileName, doc.SizeBytes)
	fmt.Fprintf(tw, "owner\t%s\n", doc.OwnerEmail)
	fmt.Fprintf(tw, "recipients\t%s\n", strings.Join(recipients, ", "))
	fmt.Fprintf(tw, "state\t%s\n", doc.State)
	fmt.Fprintf(tw, "status\t%s\n", doc.Status(now))
	fmt.Fprintf(tw, "expires\t%s\n", formatOptionalTime(doc.ExpiryAt))
	fmt.Fprintf(tw, "signature ready\t%t (%d fields)\n", doc.SignatureReady, len(doc.InputFields))
	fmt.Fprintf(tw, "uploaded\t%s\n", doc.UploadedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "signed\t%s\n", formatOptionalTime(doc.SignedAt))
	fmt.Fprintf(tw, "version\t%d\n", doc.Version)
	if doc.IsDeleted() {
		fmt.Fprintf(tw, "deleted\t%s\n", formatOptionalTime(doc.DeletedAt))
	}
	return tw.Flush()
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
