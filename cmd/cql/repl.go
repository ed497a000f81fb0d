package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DAMEDIC/cql-engine-go/cql"
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/system"
)

// The REPL keeps a running list of declarations; every expression
// entered is wrapped into an anonymous define and the whole buffer is
// recompiled, so earlier definitions stay referencable.
func newREPLCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive CQL shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cfg.session()
			if err != nil {
				return err
			}
			params, err := parseParams(cfg.params)
			if err != nil {
				return err
			}
			r := &repl{session: session, params: params, out: cmd.OutOrStdout()}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprintln(r.out, "cql repl; type expressions or declarations, :quit to exit")
			fmt.Fprint(r.out, "> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
				case line == ":quit" || line == ":q":
					return nil
				case line == ":defs":
					for _, d := range r.declarations {
						fmt.Fprintln(r.out, d)
					}
				default:
					r.handle(line)
				}
				fmt.Fprint(r.out, "> ")
			}
			return scanner.Err()
		},
	}
}

type repl struct {
	session      *cql.Session
	params       map[string]system.Value
	out          io.Writer
	declarations []string
	counter      int
}

var declarationPrefixes = []string{
	"define ", "parameter ", "valueset ", "codesystem ", "code ",
	"concept ", "using ", "include ", "context ",
}

func (r *repl) handle(line string) {
	r.counter++
	resultName := fmt.Sprintf("$%d", r.counter)

	isDeclaration := false
	for _, prefix := range declarationPrefixes {
		if strings.HasPrefix(line, prefix) {
			isDeclaration = true
			break
		}
	}

	candidate := append(append([]string{}, r.declarations...), line)
	if !isDeclaration {
		candidate[len(candidate)-1] = fmt.Sprintf("define \"%s\": %s", resultName, line)
	}

	source := strings.Join(candidate, "\n")
	compiled, err := r.session.Compile(source)
	if err != nil {
		r.report(err, source)
		return
	}
	r.declarations = candidate

	if isDeclaration {
		return
	}
	value, err := compiled.Evaluate(context.Background(), resultName, cql.EvalOptions{Parameters: r.params})
	if err != nil {
		r.report(err, source)
		return
	}
	fmt.Fprintln(r.out, value)
}

func (r *repl) report(err error, source string) {
	var de *diagnostics.Error
	if errors.As(err, &de) {
		fmt.Fprintln(r.out, diagnostics.Render(de, source))
		return
	}
	fmt.Fprintln(r.out, err)
}
