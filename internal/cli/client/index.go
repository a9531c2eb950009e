package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// IndexInfo describes the server's passage index.
type IndexInfo struct {
	Name                string `json:"name"`
	SourceName          string `json:"source_name"`
	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	ChunkSize           int    `json:"chunk_size"`
	ChunkOverlap        int    `json:"chunk_overlap"`
	PassageCount        int    `json:"passage_count"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// IndexCmd creates the index command.
func IndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Show the server's index manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(cmd.Context(), "/index")
			if err != nil {
				return fmt.Errorf("failed to fetch index: %w", err)
			}
			var info IndexInfo
			if err := resp.decode(&info); err != nil {
				return err
			}

			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				output, _ := json.MarshalIndent(info, "", "  ")
				fmt.Println(string(output))
				return nil
			}
			printIndex(os.Stdout, &info)
			return nil
		},
	}
}

func printIndex(w io.Writer, info *IndexInfo) {
	fmt.Fprintf(w, "Index:      %s\n", info.Name)
	fmt.Fprintf(w, "Source:     %s\n", info.SourceName)
	fmt.Fprintf(w, "Passages:   %d\n", info.PassageCount)
	fmt.Fprintf(w, "Embedding:  %s (%d dims)\n", info.EmbeddingModel, info.EmbeddingDimensions)
	fmt.Fprintf(w, "Chunking:   %d chars, %d overlap\n", info.ChunkSize, info.ChunkOverlap)
	fmt.Fprintf(w, "Updated:    %s\n", info.UpdatedAt)
}
