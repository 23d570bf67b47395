// Package document loads the persisted reconciliation config file spec.md
// §6 names: {version, mappings, virtualFields, transformations,
// sortConfiguration}, accepted as either JSON or YAML, and converts it into
// the runtime types the other domain packages consume.
package document

import (
	"encoding/json"
	"fmt"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/gmhafiz/reconcile/internal/apperr"
	"github.com/gmhafiz/reconcile/internal/domain/expr"
	"github.com/gmhafiz/reconcile/internal/domain/match"
	"github.com/gmhafiz/reconcile/internal/domain/recon"
	"github.com/gmhafiz/reconcile/internal/domain/transform"
)

// FieldRefSpec is the wire shape of an expr.FieldRef.
type FieldRefSpec struct {
	Name    string `json:"name" yaml:"name"`
	Virtual bool   `json:"virtual" yaml:"virtual"`
}

// VirtualFieldSpec is the wire shape of an expr.VirtualField.
type VirtualFieldSpec struct {
	Name       string         `json:"name" yaml:"name"`
	Side       string         `json:"side" yaml:"side"`
	DataType   string         `json:"dataType" yaml:"dataType"`
	Fields     []FieldRefSpec `json:"fields" yaml:"fields"`
	Operations []string       `json:"operations" yaml:"operations"`
}

// ToleranceSpec is the wire shape of a match.Config override on one mapping.
type ToleranceSpec struct {
	Tolerance     float64 `json:"tolerance" yaml:"tolerance"`
	ToleranceUnit string  `json:"toleranceUnit" yaml:"toleranceUnit"`
}

// FormulaSpec is the wire shape of a recon.Formula mapping-level descriptor.
type FormulaSpec struct {
	Kind         string `json:"kind" yaml:"kind"`
	DebitColumn  string `json:"debitColumn,omitempty" yaml:"debitColumn,omitempty"`
	CreditColumn string `json:"creditColumn,omitempty" yaml:"creditColumn,omitempty"`
	AmountColumn string `json:"amountColumn,omitempty" yaml:"amountColumn,omitempty"`
}

// ColumnMappingSpec is the wire shape of a recon.ColumnMapping.
type ColumnMappingSpec struct {
	ID        string         `json:"id" yaml:"id"`
	Source    []string       `json:"source" yaml:"source"`
	Target    string         `json:"target" yaml:"target"`
	Kind      string         `json:"kind" yaml:"kind"`
	Tolerance *ToleranceSpec `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Formula   *FormulaSpec   `json:"formula,omitempty" yaml:"formula,omitempty"`
}

// SortConfigurationSpec names the two sides' sort keys and the overall
// match strategy the streaming engine runs under.
type SortConfigurationSpec struct {
	SourceSortKey string  `json:"sourceSortKey" yaml:"sourceSortKey"`
	TargetSortKey string  `json:"targetSortKey" yaml:"targetSortKey"`
	Tolerance     float64 `json:"tolerance" yaml:"tolerance"`
	ToleranceUnit string  `json:"toleranceUnit" yaml:"toleranceUnit"`
	MatchStrategy string  `json:"matchStrategy" yaml:"matchStrategy"`
}

// Document is the full persisted reconciliation setup (spec.md §6).
type Document struct {
	Version           string                  `json:"version" yaml:"version"`
	Mappings          []ColumnMappingSpec     `json:"mappings" yaml:"mappings"`
	VirtualFields     []VirtualFieldSpec      `json:"virtualFields" yaml:"virtualFields"`
	Transformations   map[string][]transform.StepSpec `json:"transformations" yaml:"transformations"`
	SortConfiguration SortConfigurationSpec   `json:"sortConfiguration" yaml:"sortConfiguration"`
}

// minSupportedVersion is the earliest document schema version this build
// reads. Raise it, never lower it, when a breaking field change ships.
const minSupportedVersion = "v1.0.0"

// ParseJSON decodes a JSON-encoded document and validates it eagerly.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.NewConfigInvalid(fmt.Sprintf("invalid JSON: %v", err))
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseYAML decodes a YAML-encoded document and validates it eagerly.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperr.NewConfigInvalid(fmt.Sprintf("invalid YAML: %v", err))
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document's version and rejects an empty mapping list
// before any row is processed (spec.md §7 "Configuration errors").
func (d *Document) Validate() error {
	if !semver.IsValid(d.Version) {
		return apperr.NewConfigInvalid(fmt.Sprintf("version %q is not a valid semantic version", d.Version))
	}
	if semver.Compare(d.Version, minSupportedVersion) < 0 {
		return apperr.NewConfigInvalid(fmt.Sprintf("version %q predates the minimum supported %q", d.Version, minSupportedVersion))
	}
	if len(d.Mappings) == 0 {
		return apperr.NewConfigInvalid("mapping list is empty")
	}
	if d.SortConfiguration.SourceSortKey == "" && d.SortConfiguration.TargetSortKey == "" {
		return apperr.NewConfigInvalid("sort key absent from both sides")
	}

	for _, vf := range d.BuildVirtualFields() {
		if err := vf.Validate(); err != nil {
			return apperr.NewConfigInvalid(err.Error())
		}
	}

	for side, specs := range d.Transformations {
		if err := transform.ValidatePipeline(specs); err != nil {
			return apperr.NewConfigInvalid(fmt.Sprintf("transformations[%s]: %v", side, err))
		}
	}

	return nil
}

// BuildVirtualFields converts the document's virtual-field specs into
// runtime expr.VirtualField values.
func (d *Document) BuildVirtualFields() []*expr.VirtualField {
	out := make([]*expr.VirtualField, 0, len(d.VirtualFields))
	for _, spec := range d.VirtualFields {
		fields := make([]expr.FieldRef, 0, len(spec.Fields))
		for _, f := range spec.Fields {
			fields = append(fields, expr.FieldRef{Name: f.Name, Virtual: f.Virtual})
		}
		ops := make([]expr.Op, 0, len(spec.Operations))
		for _, op := range spec.Operations {
			ops = append(ops, expr.Op(op))
		}
		out = append(out, &expr.VirtualField{
			Name:       spec.Name,
			Side:       spec.Side,
			DataType:   expr.DataType(spec.DataType),
			Fields:     fields,
			Operations: ops,
		})
	}
	return out
}

// Pipelines converts one side's transformation specs into transform.Step
// chains keyed by column.
func (d *Document) Pipelines(side string) []transform.Step {
	return transform.ToSteps(d.Transformations[side])
}

// ColumnMappings converts the document's mapping specs into runtime
// recon.ColumnMapping values.
func (d *Document) ColumnMappings() []recon.ColumnMapping {
	out := make([]recon.ColumnMapping, 0, len(d.Mappings))
	for _, spec := range d.Mappings {
		m := recon.ColumnMapping{
			ID:     spec.ID,
			Source: spec.Source,
			Target: spec.Target,
			Kind:   recon.MatchKind(spec.Kind),
		}
		if spec.Tolerance != nil {
			m.Tolerance = &match.Config{
				Tolerance:     spec.Tolerance.Tolerance,
				ToleranceUnit: match.ToleranceUnit(spec.Tolerance.ToleranceUnit),
			}
		}
		if spec.Formula != nil {
			m.Formula = &recon.Formula{
				Kind:         recon.FormulaKind(spec.Formula.Kind),
				DebitColumn:  spec.Formula.DebitColumn,
				CreditColumn: spec.Formula.CreditColumn,
				AmountColumn: spec.Formula.AmountColumn,
			}
		}
		out = append(out, m)
	}
	return out
}

// ReconConfig converts the document's sort configuration into a
// recon.Config.
func (d *Document) ReconConfig() recon.Config {
	sc := d.SortConfiguration
	return recon.Config{
		Tolerance:     sc.Tolerance,
		ToleranceUnit: match.ToleranceUnit(sc.ToleranceUnit),
		MatchStrategy: recon.Strategy(sc.MatchStrategy),
	}
}
