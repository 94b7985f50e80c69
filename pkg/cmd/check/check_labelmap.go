package check

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/owlracer-agent-go/pkg/labelmap"
)

func NewCheckLabelMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "labelmap file",
		Short:        "display the flattened label map",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := labelmap.Load(args[0])
			if err != nil {
				return err
			}
			renderLabelMap(cmd.OutOrStdout(), labels)
			return nil
		},
	}
	return cmd
}

func renderLabelMap(w io.Writer, labels *labelmap.LabelMap) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Label", "Command", "Name"})
	entries := labels.Entries()
	for _, label := range labels.Labels() {
		cmd := entries[label]
		t.AppendRow(table.Row{label, int(cmd), cmd.String()})
	}
	t.AppendFooter(table.Row{"", "entries", labels.Len()})
	t.Render()

	if len(labels.Duplicates()) == 0 {
		return
	}
	d := table.NewWriter()
	d.SetOutputMirror(w)
	d.SetStyle(table.StyleRounded)
	d.SetTitle("Duplicates (last entry wins)")
	d.AppendHeader(table.Row{"Label", "Group", "Command", "Overwritten by", "Command"})
	for _, dup := range labels.Duplicates() {
		d.AppendRow(table.Row{
			dup.Label, dup.PreviousGroup, dup.Previous.String(),
			dup.Group, dup.Current.String(),
		})
	}
	d.Render()
}
