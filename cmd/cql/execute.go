package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DAMEDIC/cql-engine-go/cql"
	"github.com/DAMEDIC/cql-engine-go/engine"
	"github.com/DAMEDIC/cql-engine-go/system"
)

func newExecuteCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "execute <file.cql>",
		Short: "Evaluate every public definition of a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cfg.session()
			if err != nil {
				return err
			}
			compiled, err := session.CompileFile(args[0])
			if err != nil {
				return err
			}
			params, err := parseParams(cfg.params)
			if err != nil {
				return err
			}
			results, err := compiled.EvaluateAll(context.Background(), cql.EvalOptions{
				Parameters: params,
			})
			if err != nil {
				return err
			}
			rendered, err := renderResults(results, cfg.format)
			if err != nil {
				return err
			}
			return cfg.write(rendered)
		},
	}
}

func renderResults(results []engine.NamedResult, format string) ([]byte, error) {
	switch format {
	case "json":
		out := make(map[string]json.RawMessage, len(results))
		for _, r := range results {
			data, err := json.Marshal(valueOrNull(r.Value))
			if err != nil {
				return nil, err
			}
			out[r.Name] = data
		}
		// stable key order for deterministic output
		var b strings.Builder
		b.WriteString("{\n")
		for i, r := range results {
			if i > 0 {
				b.WriteString(",\n")
			}
			key, _ := json.Marshal(r.Name)
			fmt.Fprintf(&b, "   %s: %s", key, out[r.Name])
		}
		b.WriteString("\n}\n")
		return []byte(b.String()), nil

	case "pretty":
		var b strings.Builder
		for _, r := range results {
			fmt.Fprintf(&b, "%s = %s\n", r.Name, valueOrNull(r.Value))
		}
		return []byte(b.String()), nil

	case "table":
		var b strings.Builder
		width := 0
		for _, r := range results {
			if len(r.Name) > width {
				width = len(r.Name)
			}
		}
		fmt.Fprintf(&b, "%-*s | value\n", width, "name")
		fmt.Fprintf(&b, "%s-+------\n", strings.Repeat("-", width))
		for _, r := range results {
			fmt.Fprintf(&b, "%-*s | %s\n", width, r.Name, valueOrNull(r.Value))
		}
		return []byte(b.String()), nil

	default:
		return nil, fmt.Errorf("unknown format %q, expected json, pretty or table", format)
	}
}

func valueOrNull(v system.Value) system.Value {
	if v == nil {
		return system.Null{}
	}
	return v
}
