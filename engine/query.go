package engine

import (
	"context"
	"sort"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/system"
)

func (st *state) retrieve(ctx context.Context, n *elm.Retrieve) (system.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, diagnostics.New(
			diagnostics.KindResource, diagnostics.CodeCancelled,
			"evaluation cancelled before retrieve: %v", context.Cause(ctx))
	}

	params := RetrieveParams{
		ContextType:  n.Context,
		ContextValue: st.request.context,
		TargetType:   n.DataType,
		CodePath:     n.CodeProperty,
		DatePath:     n.DateProperty,
	}

	if n.Codes.Expression != nil {
		codes, err := st.eval(ctx, n.Codes.Expression)
		if err != nil {
			return nil, err
		}
		switch c := codes.(type) {
		case ValueSet:
			params.ValueSetID = c.ID
			// providers without valueset support get the expansion
			if expanded, ok, err := st.engineOptions().Terminology.ExpandValueSet(ctx, c.ID); err != nil {
				return nil, err
			} else if ok {
				params.Codes = expanded
			}
		case system.Code:
			params.Codes = []system.Code{c}
		case system.Concept:
			params.Codes = c.Codes
		case system.List:
			for _, e := range c {
				if code, ok := e.(system.Code); ok {
					params.Codes = append(params.Codes, code)
				}
			}
		}
	}
	if n.DateRange.Expression != nil {
		dateRange, err := st.eval(ctx, n.DateRange.Expression)
		if err != nil {
			return nil, err
		}
		if iv, ok := dateRange.(system.Interval); ok {
			params.DateRange = &iv
		}
	}

	st.request.logger.Debug().
		Str("target", params.TargetType).
		Str("code_path", params.CodePath).
		Msg("retrieve")

	result, err := st.engineOptions().DataProvider.Retrieve(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := st.checkListSize(len(result)); err != nil {
		return nil, err
	}
	return result, nil
}

// query evaluates the from/let/where/return/sort construct. Multiple
// sources iterate as a Cartesian product in declaration order.
func (st *state) query(ctx context.Context, n *elm.Query) (system.Value, error) {
	type source struct {
		alias  string
		values system.List
	}
	sources := make([]source, len(n.Sources))
	scalarSingle := false
	for i, s := range n.Sources {
		v, err := st.eval(ctx, s.Expression.Expression)
		if err != nil {
			return nil, err
		}
		list, ok := v.(system.List)
		if !ok {
			// scalar sources iterate once over their single value
			if len(n.Sources) == 1 {
				scalarSingle = true
			}
			if system.IsNull(v) {
				list = system.List{}
			} else {
				list = system.List{v}
			}
		}
		sources[i] = source{alias: s.Alias, values: list}
	}

	var rows []map[string]system.Value
	total := 1
	for _, s := range sources {
		total *= len(s.values)
		if err := st.checkListSize(total); err != nil {
			return nil, err
		}
	}
	rows = firstRows(sources[0].alias, sources[0].values)
	for _, s := range sources[1:] {
		var next []map[string]system.Value
		for _, row := range rows {
			for _, v := range s.values {
				merged := make(map[string]system.Value, len(row)+1)
				for k, val := range row {
					merged[k] = val
				}
				merged[s.alias] = v
				next = append(next, merged)
			}
		}
		rows = next
	}

	var out system.List
	var aggregateValue system.Value
	if n.Aggregate != nil {
		aggregateValue = system.Value(system.Null{})
		if n.Aggregate.Starting.Expression != nil {
			v, err := st.eval(ctx, n.Aggregate.Starting.Expression)
			if err != nil {
				return nil, err
			}
			aggregateValue = v
		}
	}

	for _, row := range rows {
		rowState := st.push(row)

		// let bindings extend the row scope
		for _, let := range n.Lets {
			v, err := rowState.eval(ctx, let.Expression.Expression)
			if err != nil {
				return nil, err
			}
			rowState.scopes.bindings[let.Identifier] = v
		}

		matched, err := rowState.relationships(ctx, n.Relationships)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}

		if n.Where.Expression != nil {
			cond, err := rowState.eval(ctx, n.Where.Expression)
			if err != nil {
				return nil, err
			}
			// a null condition filters the row out
			if b, ok := cond.(system.Boolean); !ok || !bool(b) {
				continue
			}
		}

		if n.Aggregate != nil {
			aggState := rowState.push(map[string]system.Value{
				n.Aggregate.Identifier: aggregateValue,
			})
			v, err := aggState.eval(ctx, n.Aggregate.Expression.Expression)
			if err != nil {
				return nil, err
			}
			aggregateValue = v
			continue
		}

		var element system.Value
		switch {
		case n.Return != nil:
			v, err := rowState.eval(ctx, n.Return.Expression.Expression)
			if err != nil {
				return nil, err
			}
			element = v
		case len(sources) == 1:
			element = row[sources[0].alias]
		default:
			tuple := system.Tuple{}
			for _, s := range sources {
				tuple.Elements = append(tuple.Elements, system.TupleElement{
					Name: s.alias, Value: row[s.alias],
				})
			}
			element = tuple
		}
		out = append(out, element)
		if err := st.checkListSize(len(out)); err != nil {
			return nil, err
		}
	}

	if n.Aggregate != nil {
		return aggregateValue, nil
	}

	if n.Return != nil && n.Return.Distinct {
		out = out.Distinct()
	}

	if n.Sort != nil {
		if err := st.sortList(ctx, out, n.Sort); err != nil {
			return nil, err
		}
	}

	if out == nil {
		out = system.List{}
	}
	if scalarSingle && n.Return == nil && n.Sort == nil && len(out) <= 1 {
		// a scalar source query yields a scalar
		if len(out) == 0 {
			return system.Null{}, nil
		}
		return out[0], nil
	}
	return out, nil
}

func firstRows(alias string, values system.List) []map[string]system.Value {
	rows := make([]map[string]system.Value, len(values))
	for i, v := range values {
		rows[i] = map[string]system.Value{alias: v}
	}
	return rows
}

// relationships applies with (semijoin) and without (antijoin) clauses.
func (st *state) relationships(ctx context.Context, clauses []elm.RelationshipClause) (bool, error) {
	for _, rel := range clauses {
		source, err := st.eval(ctx, rel.Expression.Expression)
		if err != nil {
			return false, err
		}
		list, ok := source.(system.List)
		if !ok {
			if system.IsNull(source) {
				list = system.List{}
			} else {
				list = system.List{source}
			}
		}
		found := false
		for _, candidate := range list {
			relState := st.push(map[string]system.Value{rel.Alias: candidate})
			cond, err := relState.eval(ctx, rel.SuchThat.Expression)
			if err != nil {
				return false, err
			}
			if b, isB := cond.(system.Boolean); isB && bool(b) {
				found = true
				break
			}
		}
		if rel.Type == "Without" {
			if found {
				return false, nil
			}
		} else if !found {
			return false, nil
		}
	}
	return true, nil
}

// sortList sorts in place, stably; nulls order low.
func (st *state) sortList(ctx context.Context, list system.List, clause *elm.SortClause) error {
	var sortErr error
	sort.SliceStable(list, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		for _, item := range clause.Items {
			ki, err := st.sortKey(ctx, list[i], item)
			if err != nil {
				sortErr = err
				return false
			}
			kj, err := st.sortKey(ctx, list[j], item)
			if err != nil {
				sortErr = err
				return false
			}
			cmp := cmpNullsLow(ki, kj)
			if cmp == 0 {
				continue
			}
			if item.Direction == "desc" {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}

func (st *state) sortKey(ctx context.Context, element system.Value, item elm.SortByItem) (system.Value, error) {
	if item.Type == "ByDirection" || item.Expr.Expression == nil {
		return element, nil
	}
	bindings := map[string]system.Value{"$this": element}
	if tuple, ok := element.(system.Tuple); ok {
		for _, el := range tuple.Elements {
			bindings[el.Name] = el.Value
		}
	}
	keyState := st.push(bindings)
	return keyState.eval(ctx, item.Expr.Expression)
}

func cmpNullsLow(a, b system.Value) int {
	aNull, bNull := system.IsNull(a), system.IsNull(b)
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	}
	cmp, ok, err := system.Compare(a, b)
	if err != nil || !ok {
		return 0
	}
	return cmp
}
