package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloo-solutions/sanad/internal/config"
	"github.com/cloo-solutions/sanad/internal/domain"
	"github.com/cloo-solutions/sanad/internal/service"
	"github.com/cloo-solutions/sanad/internal/vector"
	"github.com/spf13/cobra"
)

// ChatCmd returns the local chat command. It indexes a document into memory
// and talks to the tutor without Postgres or the HTTP server.
func ChatCmd() *cobra.Command {
	var (
		documentPath string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the tutor locally over an in-memory index",
		Long: `Index a document into an in-memory vector store and start an interactive
tutoring session in the terminal. Type /quit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), documentPath, verbose)
		},
	}

	cmd.Flags().StringVarP(&documentPath, "document", "d", "", "Source document to index (PDF, markdown or text)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print retrieval details after each reply")
	_ = cmd.MarkFlagRequired("document")

	return cmd
}

func runChat(ctx context.Context, documentPath string, verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RequireOpenAI(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm := newOpenAIClient(cfg)
	store := vector.NewMemoryStore()

	indexer := service.NewIndexer(llm, store, cfg.IndexName, service.NewChunkConfig(cfg.ChunkSize, cfg.ChunkOverlap))
	fmt.Fprintf(os.Stderr, "Indexing %s...\n", documentPath)
	stats, err := indexer.IndexFile(ctx, documentPath)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Indexed %d passages from %d pages.\n\n", stats.Passages, stats.Pages)

	stack := buildTurnStack(cfg, llm, store, store, nil)
	session, greeting := stack.sessions.Create(ctx)
	defer stack.sessions.CloseAll()

	r := &repl{
		session:   session,
		agentName: persona(cfg).AgentName,
		in:        os.Stdin,
		out:       os.Stdout,
		verbose:   verbose,
	}
	return r.run(ctx, greeting)
}

type repl struct {
	session   *service.Session
	agentName string
	in        io.Reader
	out       io.Writer
	verbose   bool
}

func (r *repl) run(ctx context.Context, greeting string) error {
	fmt.Fprintf(r.out, "%s: %s\n", r.agentName, greeting)

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		result, err := r.session.Turn(ctx, line)
		if err != nil {
			if errors.Is(err, domain.ErrTurnAbandoned) {
				return nil
			}
			return err
		}

		fmt.Fprintf(r.out, "%s: %s\n", r.agentName, result.Reply)
		if r.verbose {
			r.printOutcome(result.Outcome)
		}
	}
}

func (r *repl) printOutcome(out *domain.TurnOutcome) {
	if !out.GatePassed {
		fmt.Fprintln(r.out, "  [retrieval skipped]")
		return
	}
	fmt.Fprintf(r.out, "  [%s: %d passages, pages %s, %s]\n",
		out.Label(), out.PassageCount, strings.Join(out.Locations, ", "), out.Duration.Round(time.Millisecond))
	if len(out.Degraded) > 0 {
		fmt.Fprintf(r.out, "  [degraded: %s]\n", strings.Join(out.Degraded, ", "))
	}
}
