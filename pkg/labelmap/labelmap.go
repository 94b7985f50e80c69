// Package labelmap loads the table that translates raw classifier labels
// into driving commands.
//
// The file is a YAML mapping of arbitrary group names to mappings of
// raw label -> command:
//
//	actions:
//	  0: 1
//	  1: 2
//	steering:
//	  2: 5
//
// All groups are flattened into one table. A label occurring more than once
// keeps the value seen last in document order.
package labelmap

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
)

var (
	ErrInvalidFormat = errors.New("invalid label map format")
	ErrEmpty         = errors.New("label map contains no entries")
)

type (
	LabelMap struct {
		entries    map[int64]model.DrivingCommand
		duplicates []Duplicate
	}
	// Duplicate describes a label which was overwritten by a later entry
	Duplicate struct {
		Label         int64
		PreviousGroup string
		Previous      model.DrivingCommand
		Group         string
		Current       model.DrivingCommand
	}
)

func Load(path string) (*LabelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ret, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ret, nil
}

//nolint:funlen,cyclop // by design
func Parse(data []byte) (*LabelMap, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrEmpty
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected mapping of groups (line %d)",
			ErrInvalidFormat, root.Line)
	}

	ret := &LabelMap{entries: make(map[int64]model.DrivingCommand)}
	origin := make(map[int64]string)
	for i := 0; i+1 < len(root.Content); i += 2 {
		group := root.Content[i].Value
		items := root.Content[i+1]
		if items.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: group %q is not a mapping (line %d)",
				ErrInvalidFormat, group, items.Line)
		}
		for j := 0; j+1 < len(items.Content); j += 2 {
			var label, command int64
			if err := items.Content[j].Decode(&label); err != nil {
				return nil, fmt.Errorf("%w: group %q label (line %d): %w",
					ErrInvalidFormat, group, items.Content[j].Line, err)
			}
			if err := items.Content[j+1].Decode(&command); err != nil {
				return nil, fmt.Errorf("%w: group %q command (line %d): %w",
					ErrInvalidFormat, group, items.Content[j+1].Line, err)
			}
			if prev, ok := ret.entries[label]; ok {
				ret.duplicates = append(ret.duplicates, Duplicate{
					Label:         label,
					PreviousGroup: origin[label],
					Previous:      prev,
					Group:         group,
					Current:       model.DrivingCommand(command),
				})
			}
			ret.entries[label] = model.DrivingCommand(command)
			origin[label] = group
		}
	}
	if len(ret.entries) == 0 {
		return nil, ErrEmpty
	}
	return ret, nil
}

func (m *LabelMap) Lookup(label int64) (model.DrivingCommand, bool) {
	cmd, ok := m.entries[label]
	return cmd, ok
}

func (m *LabelMap) Len() int {
	return len(m.entries)
}

// Labels returns all known labels in ascending order
func (m *LabelMap) Labels() []int64 {
	ret := lo.Keys(m.entries)
	slices.Sort(ret)
	return ret
}

func (m *LabelMap) Entries() map[int64]model.DrivingCommand {
	return maps.Clone(m.entries)
}

func (m *LabelMap) Duplicates() []Duplicate {
	return slices.Clone(m.duplicates)
}
