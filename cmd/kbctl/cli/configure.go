package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Validate the configured credentials against the remote store",
	Long: `Configure loads OPENAI_API_KEY (from the environment or a .env file) and
probes the remote store with it. Fails fast on a rejected key so later
commands do not discover the problem mid-operation.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	_, cfg, err := newSession(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("credentials accepted by %s\n", cfg.OpenAI.BaseURL)
	return nil
}
