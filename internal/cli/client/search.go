package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// SearchResult represents one scored passage.
type SearchResult struct {
	ID       string  `json:"id"`
	Ordinal  int     `json:"ordinal"`
	Location string  `json:"location"`
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Context string         `json:"context"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		k           int
		showContext bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the book index",
		Long:  "Runs retrieval against the server's passage index and prints the scored passages.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			resp, err := search(cmd.Context(), api, args[0], k)
			if err != nil {
				return err
			}
			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Println(string(output))
				return nil
			}
			printSearch(os.Stdout, resp, showContext)
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "limit", "n", 0, "Number of passages (server default when 0)")
	cmd.Flags().BoolVar(&showContext, "context", false, "Print the formatted context block the tutor would see")

	return cmd
}

func search(ctx context.Context, api *APIClient, query string, k int) (*SearchResponse, error) {
	resp, err := api.Post(ctx, "/search", SearchRequest{Query: query, K: k})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := resp.decode(&searchResp); err != nil {
		return nil, err
	}
	return &searchResp, nil
}

func printSearch(w io.Writer, resp *SearchResponse, showContext bool) {
	if showContext {
		fmt.Fprintln(w, resp.Context)
		return
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "Found %d results:\n\n", len(resp.Results))
	for i, result := range resp.Results {
		fmt.Fprintf(w, "%d. Page %s (%.2f)\n", i+1, result.Location, result.Score)
		fmt.Fprintf(w, "   %s\n", preview(result.Text, 160))
		if i < len(resp.Results)-1 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
	}
}

// preview flattens whitespace and truncates to limit runes.
func preview(text string, limit int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-3]) + "..."
}
