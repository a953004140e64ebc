package core

import "fmt"

// NoOpStatement is returned by MergeInitializationQuery when a backend needs no pre-merge step.
const NoOpStatement = ""

// LoadExistStrategy decides what happens when the load target already exists.
type LoadExistStrategy string

// Load strategies.
const (
	LoadReplace LoadExistStrategy = "replace"
	LoadAppend  LoadExistStrategy = "append"
)

// ParseLoadExistStrategy validates s; empty means replace.
func ParseLoadExistStrategy(s string) (LoadExistStrategy, error) {
	switch LoadExistStrategy(s) {
	case "", LoadReplace:
		return LoadReplace, nil
	case LoadAppend:
		return LoadAppend, nil
	}
	return "", fmt.Errorf("invalid if_exists %q: expected replace or append", s)
}

// MergeConflictStrategy decides what happens to source rows whose conflict columns match a target row.
type MergeConflictStrategy string

// Merge conflict strategies.
const (
	ConflictException MergeConflictStrategy = "exception"
	ConflictIgnore    MergeConflictStrategy = "ignore"
	ConflictUpdate    MergeConflictStrategy = "update"
)

// ParseMergeConflictStrategy validates s; empty means exception.
func ParseMergeConflictStrategy(s string) (MergeConflictStrategy, error) {
	switch MergeConflictStrategy(s) {
	case "", ConflictException:
		return ConflictException, nil
	case ConflictIgnore:
		return ConflictIgnore, nil
	case ConflictUpdate:
		return ConflictUpdate, nil
	}
	return "", fmt.Errorf("invalid if_conflicts %q: expected exception, ignore or update", s)
}

// ColumnPair maps a source column onto a target column.
type ColumnPair struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// MergeParams describes a merge of Source into Target.
type MergeParams struct {
	Source          Table
	Target          Table
	Columns         []ColumnPair
	ConflictColumns []string
	IfConflicts     MergeConflictStrategy
}

// Validate checks that the merge is well formed.
func (p MergeParams) Validate() error {
	if len(p.Columns) == 0 {
		return fmt.Errorf("merge requires at least one column mapping")
	}
	if len(p.ConflictColumns) == 0 {
		return fmt.Errorf("merge requires at least one conflict column")
	}
	switch p.IfConflicts {
	case ConflictException, ConflictIgnore, ConflictUpdate:
	default:
		return fmt.Errorf("invalid merge conflict strategy %q", p.IfConflicts)
	}
	return nil
}

// SourceColumns returns the mapped source columns in order.
func (p MergeParams) SourceColumns() []string {
	cols := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		cols[i] = c.Source
	}
	return cols
}

// TargetColumns returns the mapped target columns in order.
func (p MergeParams) TargetColumns() []string {
	cols := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		cols[i] = c.Target
	}
	return cols
}

// SourceFor returns the source column mapped to target. Unmapped targets are
// assumed to carry the same name on both sides.
func (p MergeParams) SourceFor(target string) string {
	for _, c := range p.Columns {
		if c.Target == target {
			return c.Source
		}
	}
	return target
}

// ColumnsFromMap builds an ordered mapping from parallel source and target lists.
func ColumnsFromMap(source, target []string) ([]ColumnPair, error) {
	if len(source) != len(target) {
		return nil, fmt.Errorf("column mapping has %d source and %d target columns", len(source), len(target))
	}
	pairs := make([]ColumnPair, len(source))
	for i := range source {
		pairs[i] = ColumnPair{Source: source[i], Target: target[i]}
	}
	return pairs, nil
}

// LoadOptions controls dataframe loads.
type LoadOptions struct {
	IfExists  LoadExistStrategy
	ChunkSize int
}

// WithDefaults fills unset options.
func (o LoadOptions) WithDefaults() LoadOptions {
	if o.IfExists == "" {
		o.IfExists = LoadReplace
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	return o
}

// NativeLoadOptions carries backend-specific overrides for native file loads.
// Nil fields keep the backend default.
type NativeLoadOptions struct {
	AutoDetect          *bool
	SkipLeadingRows     *int64
	FieldDelimiter      *string
	AllowJaggedRows     *bool
	AllowQuotedNewlines *bool
	IgnoreUnknownValues *bool
	MaxBadRecords       *int64

	// Labels are merged over the backend's default job labels.
	Labels map[string]string

	// Wait blocks until the load job completes.
	Wait bool
}
