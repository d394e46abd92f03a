package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"showclip/internal/services"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "showclip <url>",
		Short:        "Cut a long-form video into clips from a setlist or AI-selected highlights",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().String("prompt", "default", "Prompt persona preset name")
	root.Flags().String("context", "", "Additional context for the AI prompt")
	root.Flags().String("setlist", "", "Path to a manual setlist file")
	root.Flags().Bool("no-subtitles", false, "Generate clips without burned-in subtitles")
	root.Flags().String("out", "", "Output directory")
	root.Flags().String("config", "", "Path to a showclip.yaml config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if services.UserFixable(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
