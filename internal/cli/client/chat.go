package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

// Session is the response to POST /sessions.
type Session struct {
	ID       string `json:"id"`
	Greeting string `json:"greeting"`
}

// TurnRequest is the body of POST /sessions/{id}/turns.
type TurnRequest struct {
	Utterance string `json:"utterance"`
}

// RetrievalSummary reports what the retrieval side of a turn did.
type RetrievalSummary struct {
	GatePassed   bool     `json:"gate_passed"`
	PassageCount int      `json:"passage_count"`
	Locations    []string `json:"locations"`
	FactKind     string   `json:"fact_kind"`
	Injected     bool     `json:"injected"`
	Degraded     []string `json:"degraded"`
	DurationMs   int64    `json:"duration_ms"`
}

// TurnResponse is the response to a turn.
type TurnResponse struct {
	Reply     string           `json:"reply"`
	Retrieval RetrievalSummary `json:"retrieval"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a tutoring session with the server",
		Long:  "Opens a session on the server and reads questions from stdin. Type /quit to leave.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runChat(ctx, api, os.Stdin, os.Stdout, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print retrieval details after each reply")

	return cmd
}

func runChat(ctx context.Context, api *APIClient, in io.Reader, out io.Writer, verbose bool) error {
	resp, err := api.Post(ctx, "/sessions", nil)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	var session Session
	if err := resp.decode(&session); err != nil {
		return err
	}
	defer func() {
		// the server reaps idle sessions anyway; closing early frees them now
		_, _ = api.Delete(context.WithoutCancel(ctx), "/sessions/"+session.ID)
	}()

	fmt.Fprintf(out, "Tutor: %s\n", session.Greeting)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		turn, err := sendTurn(ctx, api, session.ID, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
				fmt.Fprintf(out, "(%s)\n", apiErr.Message)
				continue
			}
			return err
		}

		fmt.Fprintf(out, "Tutor: %s\n", turn.Reply)
		if verbose {
			printRetrieval(out, &turn.Retrieval)
		}
	}
}

func sendTurn(ctx context.Context, api *APIClient, sessionID, utterance string) (*TurnResponse, error) {
	resp, err := api.Post(ctx, "/sessions/"+sessionID+"/turns", TurnRequest{Utterance: utterance})
	if err != nil {
		return nil, fmt.Errorf("turn failed: %w", err)
	}
	var turn TurnResponse
	if err := resp.decode(&turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

func printRetrieval(w io.Writer, r *RetrievalSummary) {
	if !r.GatePassed {
		fmt.Fprintln(w, "  [retrieval skipped]")
		return
	}
	fmt.Fprintf(w, "  [%s: %d passages, pages %s, %dms]\n",
		r.FactKind, r.PassageCount, strings.Join(r.Locations, ", "), r.DurationMs)
	if len(r.Degraded) > 0 {
		fmt.Fprintf(w, "  [degraded: %s]\n", strings.Join(r.Degraded, ", "))
	}
}
