package translator

import (
	"github.com/DAMEDIC/cql-engine-go/ast"
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
)

func (lc *libContext) retrieve(x *ast.Retrieve) (elm.Expression, elm.TypeSpecifier) {
	if lc.model == nil {
		lc.errorAt(x.Span(), diagnostics.CodeNotRetrievable,
			"retrieve requires a data model; add a `using` declaration")
		return lc.nullNode(x.Span()), listOf(named(typeAny))
	}
	typeInfo, ok := lc.model.GetType(x.DataType.String())
	if !ok {
		lc.errorAt(x.Span(), diagnostics.CodeUnresolvedIdentifier,
			"could not resolve type `%s` in model %s", x.DataType.String(), lc.model.ModelName())
		return lc.nullNode(x.Span()), listOf(named(typeAny))
	}
	if !typeInfo.Retrievable {
		lc.errorAt(x.Span(), diagnostics.CodeNotRetrievable,
			"type %s is not retrievable", typeInfo.QualifiedName())
	}

	node := mustNew("Retrieve").(*elm.Retrieve)
	node.DataType = typeInfo.QualifiedName()
	node.Context = lc.currentContext

	if x.Terminology != nil {
		codes, _ := lc.expression(x.Terminology)
		node.Codes = elm.E(codes)
		if x.CodePath != "" {
			node.CodeProperty = x.CodePath
		} else if path, ok := lc.model.PrimaryCodePath(typeInfo.Name); ok {
			node.CodeProperty = path
		} else {
			lc.errorAt(x.Span(), diagnostics.CodeNotRetrievable,
				"type %s has no primary code path; specify one explicitly", typeInfo.QualifiedName())
		}
	}

	resultType := listOf(named(typeInfo.QualifiedName()))
	lc.annotate(node, x.Span(), resultType)
	return node, resultType
}

func (lc *libContext) query(x *ast.Query) (elm.Expression, elm.TypeSpecifier) {
	node := mustNew("Query").(*elm.Query)
	lc.pushScope()
	defer lc.popScope()

	singleSource := true
	var firstElemType elm.TypeSpecifier
	for i, src := range x.Sources {
		expr, sourceType := lc.expression(src.Source)
		// a scalar source iterates its single element
		elemType := sourceType
		if e, ok := elementType(sourceType); ok {
			elemType = e
		}
		if i == 0 {
			firstElemType = elemType
		} else {
			singleSource = false
		}
		lc.scopes.aliases[src.Alias] = elemType
		node.Sources = append(node.Sources, elm.AliasedQuerySource{
			Alias:      src.Alias,
			Expression: elm.E(expr),
		})
	}

	for _, let := range x.Lets {
		expr, letType := lc.expression(let.Expression)
		lc.scopes.lets[let.Name] = letType
		node.Lets = append(node.Lets, elm.LetClause{
			Identifier: let.Name,
			Expression: elm.E(expr),
		})
	}

	for _, rel := range x.Relationships {
		relExpr, relType := lc.expression(rel.Source)
		relElem := relType
		if e, ok := elementType(relType); ok {
			relElem = e
		}
		lc.pushScope()
		lc.scopes.aliases[rel.Alias] = relElem
		suchThat, suchThatType := lc.expression(rel.SuchThat)
		lc.requireBoolean(rel.SuchThat.Span(), suchThatType, "such that condition")
		lc.popScope()

		kind := "With"
		if rel.Kind == ast.RelationshipWithout {
			kind = "Without"
		}
		node.Relationships = append(node.Relationships, elm.RelationshipClause{
			Type:       kind,
			Alias:      rel.Alias,
			Expression: elm.E(relExpr),
			SuchThat:   elm.E(suchThat),
		})
	}

	if x.Where != nil {
		where, whereType := lc.expression(x.Where)
		lc.requireBoolean(x.Where.Span(), whereType, "where condition")
		node.Where = elm.E(where)
	}

	resultElem := firstElemType
	if !singleSource {
		// multi-source queries return tuples of the aliased elements
		spec := &elm.TupleTypeSpecifier{Type: "TupleTypeSpecifier"}
		for _, src := range x.Sources {
			spec.Elements = append(spec.Elements, elm.TupleElementDefinition{
				Name: src.Alias,
				Type: elm.TypeSpec{TypeSpecifier: lc.scopes.aliases[src.Alias]},
			})
		}
		resultElem = spec
	}

	if x.Return != nil {
		ret, retType := lc.expression(x.Return.Expression)
		node.Return = &elm.ReturnClause{
			Expression: elm.E(ret),
			Distinct:   !x.Return.All,
		}
		resultElem = retType
	}

	var resultType elm.TypeSpecifier = listOf(resultElem)

	if x.Aggregate != nil {
		var startType elm.TypeSpecifier = named(typeAny)
		agg := &elm.AggregateClause{
			Identifier: x.Aggregate.Identifier,
			Distinct:   x.Aggregate.Distinct,
		}
		if x.Aggregate.Starting != nil {
			starting, t := lc.expression(x.Aggregate.Starting)
			agg.Starting = elm.E(starting)
			startType = t
		}
		lc.pushScope()
		lc.scopes.lets[x.Aggregate.Identifier] = startType
		body, bodyType := lc.expression(x.Aggregate.Expression)
		lc.popScope()
		agg.Expression = elm.E(body)
		node.Aggregate = agg
		resultType = bodyType
	}

	if x.Sort != nil {
		sort := &elm.SortClause{}
		for _, item := range x.Sort.Items {
			direction := "asc"
			if item.Direction == ast.SortDescending {
				direction = "desc"
			}
			out := elm.SortByItem{Direction: direction}
			if item.Expression == nil {
				out.Type = "ByDirection"
			} else {
				out.Type = "ByExpression"
				// sort expressions resolve per-element at runtime;
				// bare identifiers are kept as identifier references
				expr := lc.sortExpression(item.Expression)
				out.Expr = elm.E(expr)
			}
			sort.Items = append(sort.Items, out)
		}
		node.Sort = sort
	}

	lc.annotate(node, x.Span(), resultType)
	return node, resultType
}

// sortExpression translates a sort key. Bare identifiers become
// IdentifierRef nodes resolved against each result element at
// evaluation time; anything else is translated in the query scope.
func (lc *libContext) sortExpression(e ast.Expression) elm.Expression {
	if ref, ok := e.(*ast.IdentifierRef); ok {
		out := mustNew("IdentifierRef").(*elm.IdentifierRef)
		out.Name = ref.Name
		return out
	}
	expr, _ := lc.expression(e)
	return expr
}

func (lc *libContext) resolves(name string) bool {
	if _, ok := lc.lookupAlias(name); ok {
		return true
	}
	if _, ok := lc.lookupLet(name); ok {
		return true
	}
	if _, ok := lc.lookupOperand(name); ok {
		return true
	}
	if _, ok := lc.defines[name]; ok {
		return true
	}
	if _, ok := lc.parameters[name]; ok {
		return true
	}
	return false
}
