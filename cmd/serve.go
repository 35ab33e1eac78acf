package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maitred-ai/maitred/internal/config"
	"github.com/maitred-ai/maitred/internal/dependency"
	"github.com/maitred-ai/maitred/internal/reminder"
	"github.com/maitred-ai/maitred/internal/schema"
)

var (
	servePort  int
	serveStdio bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the maitred tool server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (overrides config)")
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "Serve JSON-RPC over stdin/stdout instead of HTTP")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	server := container.Server()

	if serveStdio {
		// Stdio hosts own the process lifetime; no reminder loop here.
		return server.ServeStdio(context.Background(), os.Stdin, os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("%s maitred listening on http://%s/mcp (ws at /mcp/ws)\n", logo, addr)
	g.Go(func() error { return server.ListenAndServe(gctx, addr) })

	if cfg.Reminders.Enabled {
		reminders := container.Reminders()
		notifier := container.Notifier()
		store := container.Store()

		reminders.SetOnFire(func(fctx context.Context, job reminder.Job) error {
			text := job.Message
			if job.Kind == reminder.KindCron {
				text = digestText(job.Message, store.List())
			}
			if !notifier.Enabled() {
				fmt.Println(text)
				return nil
			}
			return notifier.Notify(fctx, text)
		})
		if expr := cfg.Reminders.DigestCron; expr != "" {
			if _, err := reminders.ScheduleDigest("daily-digest", "Your reservations:", expr); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: daily digest not scheduled: %v\n", err)
			}
		}
		g.Go(func() error { return reminders.Start(gctx) })
	}

	fmt.Printf("%s Server running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}

// digestText lists confirmed upcoming reservations under the digest header.
func digestText(header string, records []*schema.ReservationRequest) string {
	var lines []string
	for _, rec := range records {
		if rec.State != schema.StateConfirmed || rec.VenueFound == nil {
			continue
		}
		date, at := "", ""
		if rec.Date != nil {
			date = *rec.Date
		}
		if rec.Time != nil {
			at = *rec.Time
		}
		lines = append(lines, fmt.Sprintf("- %s on %s at %s", rec.VenueFound.Name, date, at))
	}
	if len(lines) == 0 {
		return header + " none."
	}
	return header + "\n" + strings.Join(lines, "\n")
}
