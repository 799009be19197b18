package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloo-solutions/textbook-vault/internal/config"
	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/cloo-solutions/textbook-vault/internal/service"
	"github.com/spf13/cobra"
)

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search ingested chunks",
		Long:  "Embeds the query and returns the closest stored chunks by cosine similarity.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd.Context(), args[0], searchFilters(cmd), outputJSON)
		},
	}

	cmd.Flags().StringP("subject", "s", "", "Filter by subject")
	cmd.Flags().StringP("chapter", "c", "", "Filter by chapter")
	cmd.Flags().Float64("threshold", service.DefaultMatchThreshold, "Minimum cosine similarity")
	cmd.Flags().IntP("limit", "n", service.DefaultMatchCount, "Maximum number of results")

	return cmd
}

// searchFilters reads the filter flags. An explicit --threshold 0 is kept.
func searchFilters(cmd *cobra.Command) service.SearchFilters {
	subject, _ := cmd.Flags().GetString("subject")
	chapter, _ := cmd.Flags().GetString("chapter")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	limit, _ := cmd.Flags().GetInt("limit")

	return service.SearchFilters{
		Subject:   subject,
		Chapter:   chapter,
		Threshold: service.Threshold(threshold),
		Limit:     limit,
	}
}

func runSearch(ctx context.Context, query string, filters service.SearchFilters, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(appOptions{validate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Store != config.StorePostgres {
		return domain.ErrSearchNotSupport
	}

	embedder, _, err := a.newEmbedder(ctx)
	if err != nil {
		return err
	}
	st, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}

	results, err := service.NewSearchService(embedder, st.searcher).Search(ctx, query, filters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printResults(results)
	return nil
}

func printResults(results []*service.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. %s p.%d (%.2f)\n", i+1, result.SourceFile, result.PageNumber, result.Similarity)
		fmt.Printf("   %s / %s\n", result.Subject, result.Chapter)
		fmt.Printf("   %s\n", truncate(result.Content, 100))
		if i < len(results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
