package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func ReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the embedding index",
		Long:  "Reindex every note of an owner, or a single note with --document",
		RunE:  runReindex,
	}

	cmd.Flags().String("owner", "", "Owner whose notes are reindexed")
	cmd.Flags().String("document", "", "Reindex only this note")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ownerID, _ := cmd.Flags().GetString("owner")
	documentID, _ := cmd.Flags().GetString("document")
	outputFormat, _ := cmd.Flags().GetString("output")

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireDatabase(); err != nil {
		return err
	}

	if documentID != "" {
		result, err := a.rag.IndexDocument(ctx, documentID, ownerID)
		if err != nil {
			return fmt.Errorf("failed to reindex note: %w", err)
		}
		if outputFormat == "json" {
			return printJSON(cmd, map[string]interface{}{
				"document_id":    result.DocumentID,
				"chunks_created": result.ChunksCreated,
				"state":          result.State,
				"skipped":        result.Skipped,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %s: %d chunks (%s)\n", result.DocumentID, result.ChunksCreated, result.State)
		return nil
	}

	summary, err := a.rag.ReindexAll(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to reindex notes: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(cmd, map[string]interface{}{
			"success_count":   summary.SuccessCount,
			"error_count":     summary.ErrorCount,
			"total_documents": summary.TotalDocuments,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d of %d notes (%d errors)\n",
		summary.SuccessCount, summary.TotalDocuments, summary.ErrorCount)
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
