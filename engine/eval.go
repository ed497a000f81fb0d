package engine

import (
	"context"
	"strings"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/system"
)

func evalError(code diagnostics.Code, format string, args ...any) error {
	return diagnostics.New(diagnostics.KindEvaluation, code, format, args...)
}

// eval walks one ELM node. Cancellation and the depth bound are checked
// on every dispatch. Expr wrappers are unwrapped so callers may pass
// either form; an absent expression evaluates to null.
func (st *state) eval(ctx context.Context, e elm.Expression) (system.Value, error) {
	if w, ok := e.(elm.Expr); ok {
		e = w.Expression
	}
	if e == nil {
		return system.Null{}, nil
	}

	if err := st.enter(ctx); err != nil {
		return nil, err
	}
	defer st.leave()

	switch n := e.(type) {
	case *elm.Literal:
		return evalLiteral(n)
	case *elm.Null:
		return system.Null{}, nil
	case *elm.Quantity:
		value, err := system.NewDecimal(n.Value)
		if err != nil {
			return nil, evalError(diagnostics.CodeInvalidArgument, "invalid quantity value %q", n.Value)
		}
		return system.Quantity{Value: value, Unit: n.Unit}, nil
	case *elm.Ratio:
		num, err := st.eval(ctx, n.Numerator)
		if err != nil {
			return nil, err
		}
		den, err := st.eval(ctx, n.Denominator)
		if err != nil {
			return nil, err
		}
		return system.Ratio{Numerator: num.(system.Quantity), Denominator: den.(system.Quantity)}, nil
	case *elm.Code:
		return st.evalCodeNode(n)
	case *elm.Concept:
		concept := system.Concept{Display: n.Display}
		for _, c := range n.Codes {
			code, err := st.evalCodeNode(c)
			if err != nil {
				return nil, err
			}
			concept.Codes = append(concept.Codes, code.(system.Code))
		}
		return concept, nil

	case *elm.ExpressionRef:
		return st.expressionRef(ctx, n)
	case *elm.FunctionRef:
		return st.functionRef(ctx, n)
	case *elm.ParameterRef:
		return st.parameterRef(ctx, n)
	case *elm.OperandRef:
		if v, ok := st.lookup(n.Name); ok {
			return v, nil
		}
		return nil, evalError(diagnostics.CodeUnresolvedIdentifier, "operand `%s` is not bound", n.Name)
	case *elm.AliasRef:
		if v, ok := st.lookup(n.Name); ok {
			return v, nil
		}
		return nil, evalError(diagnostics.CodeUnresolvedIdentifier, "alias `%s` is not in scope", n.Name)
	case *elm.QueryLetRef:
		if v, ok := st.lookup(n.Name); ok {
			return v, nil
		}
		return nil, evalError(diagnostics.CodeUnresolvedIdentifier, "let `%s` is not in scope", n.Name)
	case *elm.IdentifierRef:
		return st.identifierRef(n)
	case *elm.ValueSetRef:
		return st.valueSetRef(n)
	case *elm.CodeSystemRef:
		return st.codeSystemRef(n)
	case *elm.CodeRef:
		return st.codeRef(n)
	case *elm.ConceptRef:
		return st.conceptRef(ctx, n)

	case *elm.Property:
		return st.property(ctx, n)

	case *elm.If:
		cond, err := st.eval(ctx, n.Condition)
		if err != nil {
			return nil, err
		}
		// a null condition selects the else branch without touching then
		if b, ok := cond.(system.Boolean); ok && bool(b) {
			return st.eval(ctx, n.Then)
		}
		return st.eval(ctx, n.Else)

	case *elm.Case:
		return st.caseExpr(ctx, n)

	case *elm.Interval:
		return st.intervalNode(ctx, n)

	case *elm.List:
		out := make(system.List, 0, len(n.Elements))
		for _, el := range n.Elements {
			v, err := st.eval(ctx, el)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if err := st.checkListSize(len(out)); err != nil {
			return nil, err
		}
		return out, nil

	case *elm.Tuple:
		tuple := system.Tuple{}
		for _, el := range n.Elements {
			v, err := st.eval(ctx, el.Value)
			if err != nil {
				return nil, err
			}
			tuple.Elements = append(tuple.Elements, system.TupleElement{Name: el.Name, Value: v})
		}
		return tuple, nil

	case *elm.Instance:
		return st.instance(ctx, n)

	case *elm.Is:
		v, err := st.eval(ctx, n.Operand)
		if err != nil {
			return nil, err
		}
		return system.Boolean(st.isOfType(v, n.IsType.TypeSpecifier)), nil

	case *elm.As:
		v, err := st.eval(ctx, n.Operand)
		if err != nil {
			return nil, err
		}
		if system.IsNull(v) || st.isOfType(v, n.AsType.TypeSpecifier) {
			return v, nil
		}
		if n.Strict {
			return nil, evalError(diagnostics.CodeInvalidArgument,
				"can not cast %s as %s", v.TypeName(), n.AsType.String())
		}
		return system.Null{}, nil

	case *elm.ConvertQuantity:
		v, err := st.eval(ctx, n.Operand)
		if err != nil {
			return nil, err
		}
		if system.IsNull(v) {
			return system.Null{}, nil
		}
		q, ok := v.(system.Quantity)
		if !ok {
			return nil, evalError(diagnostics.CodeInvalidArgument,
				"convert requires a quantity, got %s", v.TypeName())
		}
		converted, ok := q.ConvertTo(n.Unit)
		if !ok {
			return system.Null{}, nil
		}
		return converted, nil

	case *elm.MinValue:
		return minValueOf(n.ValueType)
	case *elm.MaxValue:
		return maxValueOf(n.ValueType)

	case *elm.Today:
		t := st.request.now
		return system.DateOf(t.Year(), intPtr(int(t.Month())), intPtr(t.Day())), nil
	case *elm.Now:
		t := st.request.now
		return system.DateTime{Value: t, Precision: system.PrecisionMillisecond, HasOffset: true}, nil
	case *elm.TimeOfDay:
		t := st.request.now
		ms := t.Nanosecond() / 1_000_000
		return system.TimeOf(t.Hour(), intPtr(t.Minute()), intPtr(t.Second()), intPtr(ms)), nil

	case *elm.Retrieve:
		return st.retrieve(ctx, n)
	case *elm.Query:
		return st.query(ctx, n)

	case *elm.Coalesce:
		for _, op := range n.Operands {
			v, err := st.eval(ctx, op)
			if err != nil {
				return nil, err
			}
			if !system.IsNull(v) {
				return v, nil
			}
		}
		return system.Null{}, nil

	case *elm.First:
		return st.firstLast(ctx, n.Source, true)
	case *elm.Last:
		return st.firstLast(ctx, n.Source, false)
	case *elm.Round:
		return st.round(ctx, n)

	case *elm.DateTimeComponentFrom:
		return st.componentFrom(ctx, n)

	case *elm.Count, *elm.Sum, *elm.Min, *elm.Max, *elm.Avg, *elm.Median,
		*elm.StdDev, *elm.AllTrue, *elm.AnyTrue:
		return st.aggregate(ctx, e)
	}

	if u, ok := unaryOf(e); ok {
		return st.unary(ctx, e, u)
	}
	if b, ok := binaryOf(e); ok {
		return st.binary(ctx, e, b)
	}

	return nil, evalError(diagnostics.CodeUnsupportedOperator,
		"unsupported ELM node %s at runtime", e.TypeName())
}

func intPtr(i int) *int { return &i }

func unaryOf(e elm.Expression) (*elm.UnaryExpression, bool) {
	type unaryNode interface{ UnaryOperand() *elm.UnaryExpression }
	if u, ok := e.(unaryNode); ok {
		return u.UnaryOperand(), true
	}
	return nil, false
}

func binaryOf(e elm.Expression) (*elm.BinaryExpression, bool) {
	type binaryNode interface{ BinaryOperands() *elm.BinaryExpression }
	if b, ok := e.(binaryNode); ok {
		return b.BinaryOperands(), true
	}
	return nil, false
}

func evalLiteral(n *elm.Literal) (system.Value, error) {
	short := n.ValueType
	if i := strings.LastIndexByte(short, '}'); i >= 0 {
		short = short[i+1:]
	}
	switch short {
	case "Boolean":
		return system.Boolean(n.Value == "true"), nil
	case "Integer":
		i, err := parseInt(n.Value)
		if err != nil {
			return nil, evalError(diagnostics.CodeInvalidArgument, "invalid integer literal %q", n.Value)
		}
		return system.Integer(i), nil
	case "Long":
		l, ok := parseLong(strings.TrimSuffix(n.Value, "L"))
		if !ok {
			return nil, evalError(diagnostics.CodeInvalidArgument, "invalid long literal %q", n.Value)
		}
		return l, nil
	case "Decimal":
		d, err := system.NewDecimal(n.Value)
		if err != nil {
			return nil, evalError(diagnostics.CodeInvalidArgument, "invalid decimal literal %q", n.Value)
		}
		return d, nil
	case "String":
		return system.String(n.Value), nil
	case "Date":
		d, err := system.ParseDate(n.Value)
		if err != nil {
			return nil, evalError(diagnostics.CodeInvalidArgument, "%v", err)
		}
		return d, nil
	case "DateTime":
		d, err := system.ParseDateTime(n.Value)
		if err != nil {
			return nil, evalError(diagnostics.CodeInvalidArgument, "%v", err)
		}
		return d, nil
	case "Time":
		t, err := system.ParseTime(n.Value)
		if err != nil {
			return nil, evalError(diagnostics.CodeInvalidArgument, "%v", err)
		}
		return t, nil
	default:
		return nil, evalError(diagnostics.CodeInvalidArgument, "unsupported literal type %s", n.ValueType)
	}
}

func (st *state) expressionRef(ctx context.Context, n *elm.ExpressionRef) (system.Value, error) {
	lib := st.library
	if n.LibraryName != "" {
		dep, err := st.resolveInclude(n.LibraryName)
		if err != nil {
			return nil, err
		}
		lib = dep
	}
	if def := findDefinition(lib.ELM, n.Name); def != nil {
		return st.definition(ctx, lib, def)
	}
	// the context resource, e.g. `Patient`
	if n.LibraryName == "" && hasContext(lib.ELM, n.Name) {
		if st.request.context == nil {
			return system.Null{}, nil
		}
		return st.request.context, nil
	}
	return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
		"no definition named `%s`", n.Name)
}

func hasContext(lib *elm.Library, name string) bool {
	for _, c := range lib.Contexts {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (st *state) parameterRef(ctx context.Context, n *elm.ParameterRef) (system.Value, error) {
	lib := st.library
	if n.LibraryName != "" {
		dep, err := st.resolveInclude(n.LibraryName)
		if err != nil {
			return nil, err
		}
		lib = dep
	}
	// explicit bindings apply to the root library
	if lib == st.request.engine.result.Root {
		if v, ok := st.request.params[n.Name]; ok {
			return v, nil
		}
	}
	for i := range lib.ELM.Parameters {
		p := &lib.ELM.Parameters[i]
		if p.Name != n.Name {
			continue
		}
		if p.Default.Expression != nil {
			return st.inLibrary(lib).eval(ctx, p.Default.Expression)
		}
		return system.Null{}, nil
	}
	return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
		"no parameter named `%s`", n.Name)
}

func (st *state) identifierRef(n *elm.IdentifierRef) (system.Value, error) {
	if v, ok := st.lookup(n.Name); ok {
		return v, nil
	}
	if this, ok := st.lookup("$this"); ok {
		return propertyOf(this, n.Name), nil
	}
	return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
		"could not resolve `%s` at runtime", n.Name)
}

func (st *state) property(ctx context.Context, n *elm.Property) (system.Value, error) {
	var source system.Value
	if n.Scope != "" {
		v, ok := st.lookup(n.Scope)
		if !ok {
			return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
				"scope `%s` is not bound", n.Scope)
		}
		source = v
	} else if n.Source.Expression != nil {
		v, err := st.eval(ctx, n.Source.Expression)
		if err != nil {
			return nil, err
		}
		source = v
	} else {
		return nil, evalError(diagnostics.CodeInvalidArgument, "property access has no source")
	}
	return propertyOf(source, n.Path), nil
}

// propertyOf projects a property from a runtime value. Dotted paths
// traverse nested values.
func propertyOf(v system.Value, path string) system.Value {
	head, rest, nested := strings.Cut(path, ".")
	out := singleProperty(v, head)
	if nested {
		return propertyOf(out, rest)
	}
	return out
}

func singleProperty(v system.Value, name string) system.Value {
	switch t := v.(type) {
	case nil, system.Null:
		return system.Null{}
	case system.Tuple:
		if out, ok := t.Get(name); ok {
			return out
		}
		return system.Null{}
	case system.Quantity:
		switch name {
		case "value":
			return t.Value
		case "unit":
			return system.String(t.Unit)
		}
	case system.Ratio:
		switch name {
		case "numerator":
			return t.Numerator
		case "denominator":
			return t.Denominator
		}
	case system.Code:
		switch name {
		case "code":
			return system.String(t.Code)
		case "system":
			return system.String(t.System)
		case "version":
			return system.String(t.Version)
		case "display":
			return system.String(t.Display)
		}
	case system.Concept:
		switch name {
		case "codes":
			out := make(system.List, len(t.Codes))
			for i, c := range t.Codes {
				out[i] = c
			}
			return out
		case "display":
			return system.String(t.Display)
		}
	case system.Interval:
		switch name {
		case "low":
			if t.Low == nil {
				return system.Null{}
			}
			return t.Low
		case "high":
			if t.High == nil {
				return system.Null{}
			}
			return t.High
		case "lowClosed":
			return system.Boolean(t.LowClosed)
		case "highClosed":
			return system.Boolean(t.HighClosed)
		}
	case system.List:
		// property access projects over list elements
		out := make(system.List, 0, len(t))
		for _, e := range t {
			p := singleProperty(e, name)
			if inner, ok := p.(system.List); ok {
				out = append(out, inner...)
			} else {
				out = append(out, p)
			}
		}
		return out
	}
	return system.Null{}
}

func (st *state) caseExpr(ctx context.Context, n *elm.Case) (system.Value, error) {
	var comparand system.Value
	if n.Comparand.Expression != nil {
		v, err := st.eval(ctx, n.Comparand.Expression)
		if err != nil {
			return nil, err
		}
		comparand = v
	}
	for _, item := range n.Items {
		when, err := st.eval(ctx, item.When)
		if err != nil {
			return nil, err
		}
		var matched bool
		if comparand != nil {
			eq := system.Equal(comparand, when)
			b, ok := eq.(system.Boolean)
			matched = ok && bool(b)
		} else {
			b, ok := when.(system.Boolean)
			matched = ok && bool(b)
		}
		if matched {
			return st.eval(ctx, item.Then)
		}
	}
	return st.eval(ctx, n.Else)
}

func (st *state) intervalNode(ctx context.Context, n *elm.Interval) (system.Value, error) {
	low := system.Value(system.Null{})
	if n.Low.Expression != nil {
		v, err := st.eval(ctx, n.Low.Expression)
		if err != nil {
			return nil, err
		}
		low = v
	}
	high := system.Value(system.Null{})
	if n.High.Expression != nil {
		v, err := st.eval(ctx, n.High.Expression)
		if err != nil {
			return nil, err
		}
		high = v
	}
	return system.NewInterval(low, high, n.LowClosed, n.HighClosed), nil
}

func (st *state) instance(ctx context.Context, n *elm.Instance) (system.Value, error) {
	values := map[string]system.Value{}
	order := make([]string, 0, len(n.Elements))
	for _, el := range n.Elements {
		v, err := st.eval(ctx, el.Value)
		if err != nil {
			return nil, err
		}
		values[el.Name] = v
		order = append(order, el.Name)
	}

	name := n.ClassType
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "Quantity":
		q := system.Quantity{}
		if v, ok := values["value"]; ok {
			if d, isD := v.(system.Decimal); isD {
				q.Value = d
			} else if i, isI := v.(system.Integer); isI {
				q.Value = i.ToDecimal()
			}
		}
		if v, ok := values["unit"]; ok {
			if s, isS := v.(system.String); isS {
				q.Unit = string(s)
			}
		}
		return q, nil
	case "Code":
		c := system.Code{}
		for key, into := range map[string]*string{
			"code": &c.Code, "system": &c.System, "version": &c.Version, "display": &c.Display,
		} {
			if v, ok := values[key]; ok {
				if s, isS := v.(system.String); isS {
					*into = string(s)
				}
			}
		}
		return c, nil
	default:
		tuple := system.Tuple{}
		for _, key := range order {
			tuple.Elements = append(tuple.Elements, system.TupleElement{Name: key, Value: values[key]})
		}
		return tuple, nil
	}
}

// isOfType checks a runtime value against a type specifier.
func (st *state) isOfType(v system.Value, spec elm.TypeSpecifier) bool {
	if system.IsNull(v) {
		return false
	}
	switch s := spec.(type) {
	case *elm.NamedTypeSpecifier:
		if s.Name == "System.Any" {
			return true
		}
		return v.TypeName() == s.Name
	case *elm.ListTypeSpecifier:
		list, ok := v.(system.List)
		if !ok {
			return false
		}
		for _, e := range list {
			if !system.IsNull(e) && !st.isOfType(e, s.ElementType.TypeSpecifier) {
				return false
			}
		}
		return true
	case *elm.IntervalTypeSpecifier:
		iv, ok := v.(system.Interval)
		if !ok {
			return false
		}
		point := iv.Start()
		if system.IsNull(point) {
			return true
		}
		return st.isOfType(point, s.PointType.TypeSpecifier)
	case *elm.TupleTypeSpecifier:
		_, ok := v.(system.Tuple)
		return ok
	case *elm.ChoiceTypeSpecifier:
		for _, c := range s.Choices {
			if st.isOfType(v, c.TypeSpecifier) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (st *state) firstLast(ctx context.Context, source elm.Expr, first bool) (system.Value, error) {
	v, err := st.eval(ctx, source.Expression)
	if err != nil {
		return nil, err
	}
	list, ok := v.(system.List)
	if !ok || len(list) == 0 {
		return system.Null{}, nil
	}
	if first {
		return list[0], nil
	}
	return list[len(list)-1], nil
}
