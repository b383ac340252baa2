package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/spf13/cobra"
)

// ContextCmd prints the retrieval context for a query, the same text the
// chat endpoint would prepend to its prompt.
func ContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Show retrieved context for a query",
		Long:  "Embed the query, search the owner's notes and print the assembled context",
		Args:  cobra.ExactArgs(1),
		RunE:  runContext,
	}

	cmd.Flags().String("owner", "", "Owner whose notes are searched")
	cmd.Flags().IntP("limit", "n", 0, "Maximum chunks to retrieve (default from config)")
	cmd.Flags().Float64("threshold", 0, "Minimum similarity (default from config)")
	cmd.Flags().Int("max-length", 0, "Context length cap in characters (default from config)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runContext(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ownerID, _ := cmd.Flags().GetString("owner")
	limit, _ := cmd.Flags().GetInt("limit")
	maxLength, _ := cmd.Flags().GetInt("max-length")
	outputFormat, _ := cmd.Flags().GetString("output")

	in := service.RetrieveInput{
		Query:            args[0],
		OwnerID:          ownerID,
		Limit:            limit,
		MaxContextLength: maxLength,
	}
	if cmd.Flags().Changed("threshold") {
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		in.Threshold = &threshold
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireDatabase(); err != nil {
		return err
	}

	out, err := a.rag.RetrieveContext(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to retrieve context: %w", err)
	}

	if outputFormat == "json" {
		results := make([]map[string]interface{}, 0, len(out.Results))
		for _, r := range out.Results {
			results = append(results, map[string]interface{}{
				"chunk_id":    r.Chunk.ID,
				"document_id": r.Chunk.DocumentID,
				"similarity":  r.Similarity,
			})
		}
		return printJSON(cmd, map[string]interface{}{
			"context":           out.Context,
			"used_document_ids": out.UsedDocumentIDs,
			"results":           results,
		})
	}

	if out.Context == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No relevant notes found.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.Context)
	return nil
}
