package engine

import (
	"context"
	"time"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/system"
	"github.com/DAMEDIC/cql-engine-go/translator"
)

func (st *state) functionRef(ctx context.Context, n *elm.FunctionRef) (system.Value, error) {
	args := make([]system.Value, len(n.Operands))
	for i, op := range n.Operands {
		v, err := st.eval(ctx, op.Expression)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if n.LibraryName == "" {
		switch n.Name {
		case "Date":
			return temporalFromComponents(args, buildDate)
		case "DateTime":
			return temporalFromComponents(args, buildDateTime)
		case "Time":
			return temporalFromComponents(args, buildTime)
		}
	}

	lib := st.library
	if n.LibraryName != "" {
		dep, err := st.resolveInclude(n.LibraryName)
		if err != nil {
			return nil, err
		}
		lib = dep
	}

	def := findFunction(lib, n.Name, len(args))
	if def == nil {
		return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
			"no function `%s` with %d operand(s)", n.Name, len(args))
	}
	if def.External {
		return nil, evalError(diagnostics.CodeUnsupportedOperator,
			"function `%s` is external and has no body", n.Name)
	}

	bindings := make(map[string]system.Value, len(args))
	for i, op := range def.Operands {
		bindings[op.Name] = args[i]
	}
	fnState := st.inLibrary(lib).push(bindings)
	return fnState.eval(ctx, def.Expression.Expression)
}

func findFunction(lib *translator.Translated, name string, arity int) *elm.ExpressionDef {
	for _, def := range lib.ELM.Statements {
		if def.Name == name && def.IsFunction() && len(def.Operands) == arity {
			return def
		}
	}
	return nil
}

// temporalFromComponents builds Date/DateTime/Time values from integer
// component arguments; a null component truncates the precision there.
func temporalFromComponents(args []system.Value, build func([]int) (system.Value, error)) (system.Value, error) {
	var components []int
	for _, a := range args {
		if system.IsNull(a) {
			break
		}
		i, ok := a.(system.Integer)
		if !ok {
			if d, isDecimal := a.(system.Decimal); isDecimal {
				truncated, err := d.Truncate()
				if err != nil {
					return nil, err
				}
				i = truncated
			} else {
				return nil, evalError(diagnostics.CodeInvalidArgument,
					"temporal component must be an integer, got %s", a.TypeName())
			}
		}
		components = append(components, int(i))
	}
	if len(components) == 0 {
		return system.Null{}, nil
	}
	return build(components)
}

func buildDate(c []int) (system.Value, error) {
	var month, day *int
	if len(c) > 1 {
		month = &c[1]
	}
	if len(c) > 2 {
		day = &c[2]
	}
	return system.DateOf(c[0], month, day), nil
}

func buildDateTime(c []int) (system.Value, error) {
	d, err := buildDate(c[:min(len(c), 3)])
	if err != nil {
		return nil, err
	}
	date := d.(system.Date)
	if len(c) <= 3 {
		return date.ToDateTime(), nil
	}
	dt := system.DateTime{Value: date.Value, Precision: system.PrecisionHour, HasOffset: false}
	timePart := c[3:]
	var minute, second, ms *int
	if len(timePart) > 1 {
		minute = &timePart[1]
		dt.Precision = system.PrecisionMinute
	}
	if len(timePart) > 2 {
		second = &timePart[2]
		dt.Precision = system.PrecisionSecond
	}
	if len(timePart) > 3 {
		ms = &timePart[3]
		dt.Precision = system.PrecisionMillisecond
	}
	t := system.TimeOf(timePart[0], minute, second, ms)
	dt.Value = dateWithTime(date, t)
	return dt, nil
}

func dateWithTime(date system.Date, t system.Time) time.Time {
	return time.Date(date.Value.Year(), date.Value.Month(), date.Value.Day(),
		t.Value.Hour(), t.Value.Minute(), t.Value.Second(), t.Value.Nanosecond(), time.UTC)
}

func buildTime(c []int) (system.Value, error) {
	var minute, second, ms *int
	if len(c) > 1 {
		minute = &c[1]
	}
	if len(c) > 2 {
		second = &c[2]
	}
	if len(c) > 3 {
		ms = &c[3]
	}
	return system.TimeOf(c[0], minute, second, ms), nil
}
