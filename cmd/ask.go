package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maitred-ai/maitred/internal/config"
	"github.com/maitred-ai/maitred/internal/dependency"
)

var (
	askSession string
	askArgs    string
)

var askCmd = &cobra.Command{
	Use:   "ask <tool> [request...]",
	Short: "Invoke a tool once from the command line",
	Long: `Invoke a tool once without a host attached.

Examples:
  maitred ask find_restaurant "italian in Lyon for 4, Oct 19 at 7:30pm"
  maitred ask book_table
  maitred ask make_calendar_link --args '{"title":"Dinner","start_time":"2025-10-19T19:00:00"}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "cli:direct", "Session ID")
	askCmd.Flags().StringVar(&askArgs, "args", "", "Raw JSON arguments (overrides positional request)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	name := args[0]
	tool := container.Registry().Get(name)
	if tool == nil {
		return fmt.Errorf("unknown tool %q (available: %s)",
			name, strings.Join(container.Registry().Names(), ", "))
	}

	params := map[string]any{}
	if askArgs != "" {
		if err := json.Unmarshal([]byte(askArgs), &params); err != nil {
			return fmt.Errorf("parse --args: %w", err)
		}
	} else {
		params["session_id"] = askSession
		if len(args) > 1 {
			params["request"] = strings.Join(args[1:], " ")
		}
	}

	out, err := tool.Execute(cmd.Context(), params)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
