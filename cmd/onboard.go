package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maitred-ai/maitred/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and workspace",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	def := config.DefaultConfig()
	workspace := def.WorkspacePath()
	if err := os.MkdirAll(filepath.Join(workspace, "sessions"), 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	fmt.Printf("✓ Workspace at %s\n", workspace)

	fmt.Printf("\n%s maitred is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your Mistral API key to %s (providers.mistral.apiKey)\n", cfgPath)
	fmt.Println("     Get one at: https://console.mistral.ai/api-keys")
	fmt.Printf("  2. Add your voice API key (voice.apiKey) to place booking calls\n")
	fmt.Printf("  3. Try it: maitred ask find_restaurant \"italian in Lyon for 4, tomorrow at 8pm\"\n")
	return nil
}
