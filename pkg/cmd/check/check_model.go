package check

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/mpapenbr/owlracer-agent-go/pkg/classifier"
	"github.com/mpapenbr/owlracer-agent-go/pkg/classifier/onnx"
	"github.com/mpapenbr/owlracer-agent-go/pkg/config"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
	"github.com/mpapenbr/owlracer-agent-go/pkg/utils"
)

type modelArgs struct {
	model   string
	version string
	libPath string
}

func NewCheckModelCmd() *cobra.Command {
	args := modelArgs{}
	cmd := &cobra.Command{
		Use:          "model",
		Short:        "display the columns of a model and check them against a schema",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkModel(cmd.OutOrStdout(), &args)
		},
	}
	cmd.Flags().StringVar(&args.model, "model", "", "path to the classifier model")
	cmd.Flags().StringVar(&args.version, "version", config.DefaultVersion(),
		"telemetry schema version of the model (1: packed, 2: named)")
	cmd.Flags().StringVar(&args.libPath, "onnxruntime-lib", "",
		"path to the onnxruntime shared library")
	//nolint:errcheck // flag exists
	cmd.MarkFlagRequired("model")
	return cmd
}

func checkModel(w io.Writer, args *modelArgs) error {
	version, ok := schema.ParseVersion(args.version)
	if !ok {
		fmt.Fprintf(w, "unknown schema version %q, using %s\n", args.version, version)
	}
	adapter, err := schema.ForVersion(version)
	if err != nil {
		return err
	}
	fail := func(err error) error {
		return &classifier.ModelLoadError{Path: args.model, Err: err}
	}
	digest, err := utils.FileDigest(args.model)
	if err != nil {
		return fail(err)
	}
	if err = onnx.Init(args.libPath); err != nil {
		return fail(err)
	}
	//nolint:errcheck // process ends here
	defer onnx.Shutdown()

	inputs, outputs, err := onnx.Describe(args.model)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(w, "model:  %s\ndigest: %s\n", args.model, digest)
	renderColumns(w, "Inputs", inputs)
	renderColumns(w, "Outputs", outputs)

	if err := classifier.CheckLayout(adapter,
		onnx.ColumnNames(inputs), onnx.ColumnNames(outputs)); err != nil {
		return fail(err)
	}
	fmt.Fprintf(w, "bound outputs: %v\n",
		classifier.BoundOutputs(adapter, onnx.ColumnNames(outputs)))
	fmt.Fprintf(w, "model is compatible with schema %s\n", adapter.Version())
	return nil
}

func renderColumns(w io.Writer, title string, infos []ort.InputOutputInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Name", "Type", "Element", "Shape"})
	for i := range infos {
		t.AppendRow(table.Row{
			infos[i].Name,
			fmt.Sprintf("%v", infos[i].OrtValueType),
			fmt.Sprintf("%v", infos[i].DataType),
			fmt.Sprintf("%v", infos[i].Dimensions),
		})
	}
	t.Render()
}
