// Package onnx runs classifier artifacts with the ONNX runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aarondl/opt/omit"
	"github.com/samber/lo"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/classifier"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
)

var (
	ErrNoLabel = errors.New("model returned no label")

	envMu sync.Mutex
)

type (
	Classifier struct {
		modelPath string
		libPath   string
		adapter   schema.Adapter
		outputs   []string
		session   *ort.DynamicAdvancedSession
		log       *log.Logger
	}
	Option func(*Classifier)
)

var _ classifier.Port = (*Classifier)(nil)

// WithSharedLibrary sets the path of the onnxruntime shared library.
// If omitted the platform default lookup of onnxruntime_go is used.
func WithSharedLibrary(path string) Option {
	return func(c *Classifier) {
		c.libPath = path
	}
}

// New loads the artifact at modelPath. The input and output columns are bound
// to the names of adapter here and nowhere else.
// All failures are reported as *classifier.ModelLoadError.
//
//nolint:whitespace // editor/linter issue
func New(
	modelPath string, adapter schema.Adapter, opts ...Option,
) (*Classifier, error) {
	c := &Classifier{
		modelPath: modelPath,
		adapter:   adapter,
		log:       log.Default().Named("classifier.onnx"),
	}
	for _, opt := range opts {
		opt(c)
	}
	fail := func(err error) (*Classifier, error) {
		return nil, &classifier.ModelLoadError{Path: modelPath, Err: err}
	}

	if _, err := os.Stat(modelPath); err != nil {
		return fail(err)
	}
	if err := initEnvironment(c.libPath); err != nil {
		return fail(fmt.Errorf("onnxruntime: %w", err))
	}
	inputs, outputs, err := Describe(modelPath)
	if err != nil {
		return fail(err)
	}
	declared := ColumnNames(outputs)
	if err = classifier.CheckLayout(adapter, ColumnNames(inputs), declared); err != nil {
		return fail(err)
	}
	// only declared outputs may be bound, the runtime checks names on Run only
	c.outputs = classifier.BoundOutputs(adapter, declared)
	c.session, err = ort.NewDynamicAdvancedSession(
		modelPath, adapter.InputNames(), c.outputs, nil)
	if err != nil {
		return fail(err)
	}
	c.log.Info("model loaded",
		log.String("path", modelPath),
		log.Stringer("schema", adapter.Version()),
		log.Strings("inputs", adapter.InputNames()),
		log.Strings("outputs", c.outputs))
	return c, nil
}

// Describe returns the declared inputs and outputs of an artifact.
// The runtime environment must be initialized.
//
//nolint:whitespace // editor/linter issue
func Describe(modelPath string) (
	inputs, outputs []ort.InputOutputInfo, err error,
) {
	return ort.GetInputOutputInfo(modelPath)
}

// Init prepares the runtime environment without loading a model
func Init(libPath string) error {
	return initEnvironment(libPath)
}

// Shutdown releases the runtime environment. Call it once all classifiers
// are closed.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	return ort.InitializeEnvironment()
}

// ColumnNames returns the names of the declared columns
func ColumnNames(infos []ort.InputOutputInfo) []string {
	return lo.Map(infos, func(info ort.InputOutputInfo, _ int) string {
		return info.Name
	})
}

//nolint:whitespace // editor/linter issue
func (c *Classifier) Predict(ctx context.Context, in *schema.Input) (
	*classifier.Prediction, error,
) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inputs, err := toValues(in)
	defer destroyAll(inputs)
	if err != nil {
		return nil, err
	}

	// nil entries are allocated by the runtime
	outputs := make([]ort.Value, len(c.outputs))
	if err = c.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer destroyAll(outputs)

	labels, ok := outputs[0].(*ort.Tensor[int64])
	if !ok {
		return nil, fmt.Errorf("%w: unexpected output type %T", ErrNoLabel, outputs[0])
	}
	data := labels.GetData()
	if len(data) == 0 {
		return nil, ErrNoLabel
	}
	ret := &classifier.Prediction{Label: data[0]}
	if len(outputs) > 1 {
		if scores, sErr := readScores(outputs[1]); sErr == nil {
			ret.Scores = omit.From(scores)
		} else {
			c.log.Debug("no scores available", log.ErrorField(sErr))
		}
	}
	return ret, nil
}

func (c *Classifier) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Destroy()
}

func toValues(in *schema.Input) ([]ort.Value, error) {
	ret := make([]ort.Value, 0, len(in.Features()))
	for _, f := range in.Features() {
		var v ort.Value
		var err error
		switch f.Type {
		case schema.Float32:
			v, err = ort.NewTensor(ort.NewShape(f.Shape...), f.Float32)
		case schema.Int64:
			v, err = ort.NewTensor(ort.NewShape(f.Shape...), f.Int64)
		default:
			err = fmt.Errorf("unsupported element type %s", f.Type)
		}
		if err != nil {
			return ret, fmt.Errorf("feature %s: %w", f.Name, err)
		}
		ret = append(ret, v)
	}
	return ret, nil
}

// readScores unpacks the seq(map(int64,float)) layout produced by
// converted scikit-learn classifiers.
func readScores(v ort.Value) (map[int64]float32, error) {
	seq, ok := v.(*ort.Sequence)
	if !ok {
		return nil, fmt.Errorf("unexpected probability type %T", v)
	}
	items, err := seq.GetValues()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("empty probability sequence")
	}
	m, ok := items[0].(*ort.Map)
	if !ok {
		return nil, fmt.Errorf("unexpected probability entry type %T", items[0])
	}
	keys, values, err := m.GetKeysAndValues()
	if err != nil {
		return nil, err
	}
	k, kOk := keys.(*ort.Tensor[int64])
	p, pOk := values.(*ort.Tensor[float32])
	if !kOk || !pOk {
		return nil, fmt.Errorf("unexpected probability map types %T/%T", keys, values)
	}
	ret := make(map[int64]float32, len(k.GetData()))
	for i, label := range k.GetData() {
		if i < len(p.GetData()) {
			ret[label] = p.GetData()[i]
		}
	}
	return ret, nil
}

func destroyAll(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			//nolint:errcheck // by design
			v.Destroy()
		}
	}
}
