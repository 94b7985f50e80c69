package check

import (
	"github.com/spf13/cobra"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "commands to check artifacts used by the agent",
	}

	cmd.AddCommand(NewCheckLabelMapCmd())
	cmd.AddCommand(NewCheckModelCmd())

	return cmd
}
