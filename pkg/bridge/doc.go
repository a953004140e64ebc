// Package bridge runs user functions over warehouse tables as dataframes.
//
// An Operator takes a wrapped user function and its arguments. Table
// arguments bound to *core.Dataframe parameters are exported from their
// warehouse, the function runs, and a returned dataframe is optionally
// persisted into an output table:
//
//	fn, _ := bridge.NewFunc(func(df *core.Dataframe) (*core.Dataframe, error) {
//		return df.Slice(0, 10), nil
//	})
//	op := &bridge.Operator{
//		Func:        fn,
//		Args:        []any{core.Table{ConnID: "warehouse", Name: "orders"}},
//		OutputTable: core.Table{Name: "top_orders"},
//		Provider:    conns,
//	}
//	result, err := op.Execute(ctx)
package bridge
