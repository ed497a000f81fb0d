package system

import (
	"github.com/cockroachdb/apd/v3"
	"github.com/iimos/ucum"
	"github.com/iimos/ucum/ucumapd"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
)

func unityUnit(unit string) string {
	if unit == "" {
		return "1"
	}
	return unit
}

// convertDecimalUnit converts value from one UCUM unit into another.
// Non-commensurable units fail; callers translate that failure into
// null where the CQL specification requires it.
func convertDecimalUnit(value *apd.Decimal, from, to string) (*apd.Decimal, error) {
	from, to = unityUnit(from), unityUnit(to)
	if from == to {
		return value, nil
	}
	if _, err := ucum.Parse([]byte(from)); err != nil {
		return nil, diagnostics.New(
			diagnostics.KindEvaluation, diagnostics.CodeInvalidUnit,
			"invalid UCUM unit '%s': %v", from, err)
	}
	if _, err := ucum.Parse([]byte(to)); err != nil {
		return nil, diagnostics.New(
			diagnostics.KindEvaluation, diagnostics.CodeInvalidUnit,
			"invalid UCUM unit '%s': %v", to, err)
	}
	converted, err := ucumapd.ConvDecimal(value, from, to, defaultAPDContext)
	if err != nil {
		return nil, diagnostics.New(
			diagnostics.KindEvaluation, diagnostics.CodeInvalidUnit,
			"can not convert '%s' to '%s': %v", from, to, err)
	}
	return converted, nil
}
