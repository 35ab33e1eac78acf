package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maitred-ai/maitred/internal/config"
	"github.com/maitred-ai/maitred/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show maitred status and open reservations",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s maitred Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:    %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	ws := cfg.WorkspacePath()
	_, wsErr := os.Stat(ws)
	wsMark := "✗"
	if wsErr == nil {
		wsMark = "✓"
	}
	fmt.Printf("Workspace: %s %s\n\n", ws, wsMark)

	fmt.Println("Credentials:")
	printKey("Mistral", cfg.Providers.Mistral.APIKey != "")
	printKey("Voice", cfg.Voice.APIKey != "")
	printKey("Telegram", cfg.Notifications.Telegram.Enabled && cfg.Notifications.Telegram.Token != "")
	printKey("Slack", cfg.Notifications.Slack.Enabled && cfg.Notifications.Slack.BotToken != "")
	fmt.Println()

	store, err := session.NewStore(ws)
	if err != nil {
		fmt.Printf("(could not open session store: %v)\n", err)
		return nil
	}
	records := store.List()
	if len(records) == 0 {
		fmt.Println("No reservations yet.")
		return nil
	}

	fmt.Printf("Reservations (%d):\n", len(records))
	for _, rec := range records {
		venue := "-"
		if rec.VenueFound != nil {
			venue = rec.VenueFound.Name
		}
		date := "-"
		if rec.Date != nil {
			date = *rec.Date
		}
		fmt.Printf("  %-20s %-26s %-12s %s\n", rec.SessionID, venue, date, rec.State)
	}
	return nil
}

func printKey(name string, set bool) {
	if set {
		fmt.Printf("  %-10s ✓\n", name)
	} else {
		fmt.Printf("  %-10s (not set)\n", name)
	}
}
