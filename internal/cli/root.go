// Package cli implements the assistant command line. Every command runs the
// same core as the HTTP server, in process.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arturoeanton/bizreg-assistant/internal/bootstrap"
	"github.com/arturoeanton/bizreg-assistant/pkg/config"
	"github.com/arturoeanton/bizreg-assistant/pkg/logging"
)

var (
	systemTag  = color.New(color.FgYellow).SprintFunc()
	generalTag = color.New(color.FgCyan).SprintFunc()
	sourceTag  = color.New(color.FgGreen).SprintFunc()
	failedTag  = color.New(color.FgRed).SprintFunc()
	heading    = color.New(color.Bold).SprintFunc()
)

// state is shared by the subcommands of one invocation.
type state struct {
	envFile string
	cfg     *config.Config
	core    *bootstrap.Core
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "assistant",
		Short:         "Delhi business compliance assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.init()
		},
	}
	root.PersistentFlags().StringVar(&st.envFile, "env", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newQueryCmd(st),
		newIndexCmd(st),
		newSuggestionsCmd(st),
		newEligibilityCmd(st),
		newTokenCmd(st),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failedTag("error:"), err)
		os.Exit(1)
	}
}

func (s *state) init() error {
	if s.envFile != "" {
		_ = godotenv.Load(s.envFile) // a missing file is fine
	}
	s.cfg = config.Load()
	logging.Setup(s.cfg.LogLevel, s.cfg.LogFormat)

	core, err := bootstrap.NewCore(s.cfg)
	if err != nil {
		return err
	}
	s.core = core
	return nil
}
