package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// Provider returns the database for a connection id.
// adapter.Connections implements it.
type Provider interface {
	Database(ctx context.Context, connID string) (core.Database, error)
}

// Operator runs a Func for one task invocation.
type Operator struct {
	Func *Func

	// Args and Kwargs are the call arguments. Table values of any supported
	// representation are converted to core.Table before binding.
	Args   []any
	Kwargs map[string]any

	// ConnID, Schema, Database and Warehouse address input tables that leave
	// them unset. When empty they are taken from the first table argument.
	ConnID    string
	Schema    string
	Database  string
	Warehouse string

	// OutputTable, when set, receives the returned dataframe and is returned in its place.
	OutputTable any

	// IdentifiersAsLower lower-cases exported column names. Nil means true.
	IdentifiersAsLower *bool
	ChunkSize          int

	Provider Provider
	Logger   *slog.Logger
}

// Execute converts inputs, materializes dataframe arguments, invokes the
// function and persists or returns its result. The operator itself is not modified.
func (o *Operator) Execute(ctx context.Context) (any, error) {
	run := *o
	return run.execute(ctx)
}

func (o *Operator) execute(ctx context.Context) (any, error) {
	if o.Func == nil {
		return nil, fmt.Errorf("operator has no function")
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	args, err := o.bindArgs()
	if err != nil {
		return nil, err
	}
	o.propagateContext(args)

	for i, arg := range args {
		resolved, err := o.materialize(ctx, i, arg)
		if err != nil {
			return nil, err
		}
		args[i] = resolved
	}

	logger.Debug("invoking function", slog.Int("args", len(args)))
	result, err := o.Func.call(ctx, args)
	if err != nil {
		return nil, err
	}

	if o.OutputTable == nil {
		return result, nil
	}
	return o.persist(ctx, logger, result)
}

// bindArgs places positional then keyword arguments by parameter position,
// converting table references on the way.
func (o *Operator) bindArgs() ([]any, error) {
	f := o.Func
	if len(o.Args) > f.NumParams() {
		return nil, argError(f.paramName(f.NumParams()), "too many positional arguments: got %d, want %d",
			len(o.Args), f.NumParams())
	}

	args := make([]any, f.NumParams())
	bound := make([]bool, f.NumParams())
	for i, arg := range o.Args {
		args[i] = convert(arg)
		bound[i] = true
	}
	for name, arg := range o.Kwargs {
		i, ok := f.paramIndex(name)
		if !ok {
			return nil, argError(name, "unexpected keyword argument")
		}
		if bound[i] {
			return nil, argError(name, "got multiple values")
		}
		args[i] = convert(arg)
		bound[i] = true
	}
	for i, ok := range bound {
		if !ok {
			return nil, argError(f.paramName(i), "missing argument")
		}
	}
	return args, nil
}

func convert(v any) any {
	if t, ok := core.ConvertTable(v); ok {
		return t
	}
	return v
}

// propagateContext fills unset operator addressing from the first table argument.
// Positional tables are tried first and keyword tables only when the positional
// ones yield no candidate; a group qualifies when all its tables share a conn id.
func (o *Operator) propagateContext(args []any) {
	npos := min(len(o.Args), len(args))
	first, ok := firstTable(args[:npos])
	if !ok {
		first, ok = firstTable(args[npos:])
	}
	if !ok {
		return
	}
	if o.ConnID == "" {
		o.ConnID = first.ConnID
	}
	if o.Schema == "" {
		o.Schema = first.Metadata.Schema
	}
	if o.Database == "" {
		o.Database = first.Metadata.Database
	}
	if o.Warehouse == "" {
		o.Warehouse = first.Metadata.Warehouse
	}
}

// firstTable returns the first table among args when every table there has the same conn id.
func firstTable(args []any) (core.Table, bool) {
	var tables []core.Table
	for _, arg := range args {
		if t, ok := arg.(core.Table); ok {
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		return core.Table{}, false
	}
	for _, t := range tables[1:] {
		if t.ConnID != tables[0].ConnID {
			return core.Table{}, false
		}
	}
	return tables[0], true
}

func (o *Operator) contextMetadata() core.Metadata {
	return core.Metadata{Schema: o.Schema, Database: o.Database, Warehouse: o.Warehouse}
}

// withContext fills the table's unset connection and metadata from the operator.
func (o *Operator) withContext(t core.Table) core.Table {
	if t.ConnID == "" {
		t.ConnID = o.ConnID
	}
	t.Metadata = t.Metadata.WithDefaults(o.contextMetadata())
	return t
}

func (o *Operator) lowerIdentifiers() bool {
	return o.IdentifiersAsLower == nil || *o.IdentifiersAsLower
}

// materialize exports a table bound to a dataframe parameter.
// Dataframes and nil pass through; any other value is an error.
func (o *Operator) materialize(ctx context.Context, i int, arg any) (any, error) {
	if !o.Func.takesDataframe(i) {
		return arg, nil
	}
	switch v := arg.(type) {
	case nil, *core.Dataframe:
		return v, nil
	case core.Table:
		return o.export(ctx, o.Func.paramName(i), o.withContext(v))
	default:
		return nil, argError(o.Func.paramName(i), "expected a table or dataframe, got %T", arg)
	}
}

func (o *Operator) export(ctx context.Context, param string, t core.Table) (*core.Dataframe, error) {
	if o.Provider == nil {
		return nil, argError(param, "no provider to materialize %s", t.Name)
	}
	db, err := o.Provider.Database(ctx, t.ConnID)
	if err != nil {
		return nil, err
	}
	df, err := db.ExportTable(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize %s: %w", param, err)
	}
	if o.lowerIdentifiers() {
		df = df.LowerColumnNames()
	}
	return df, nil
}

// persist loads the returned dataframe into the output table and returns the resolved table.
func (o *Operator) persist(ctx context.Context, logger *slog.Logger, result any) (core.Table, error) {
	out, ok := core.ConvertTable(o.OutputTable)
	if !ok {
		return core.Table{}, argError("output_table", "expected a table, got %T", o.OutputTable)
	}
	df, ok := result.(*core.Dataframe)
	if !ok || df == nil {
		return core.Table{}, fmt.Errorf("function returned %T, expected *core.Dataframe for output table %s", result, out.Name)
	}
	out = o.withContext(out)
	if o.Provider == nil {
		return core.Table{}, argError("output_table", "no provider to persist %s", out.Name)
	}

	db, err := o.Provider.Database(ctx, out.ConnID)
	if err != nil {
		return core.Table{}, err
	}
	if out.Metadata.Schema == "" {
		defaults, err := db.DefaultMetadata()
		if err != nil {
			return core.Table{}, err
		}
		out.Metadata.Schema = defaults.Schema
	}

	logger.Debug("persisting output",
		slog.String("table", out.Name),
		slog.String("conn_id", out.ConnID),
		slog.Int("rows", df.Len()))
	opts := core.LoadOptions{IfExists: core.LoadReplace, ChunkSize: o.ChunkSize}
	if err := db.LoadDataframe(ctx, df, out, opts); err != nil {
		return core.Table{}, err
	}
	return out, nil
}
