package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTranslateCommand(cfg *cliConfig) *cobra.Command {
	var xml bool
	cmd := &cobra.Command{
		Use:   "translate <file.cql>",
		Short: "Translate a library to ELM",
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
			indent := cfg.format != "json" || cfg.output == ""
			var data []byte
			if xml {
				data, err = compiled.ELMXML(indent)
			} else {
				data, err = compiled.ELMJSON(indent)
			}
			if err != nil {
				return err
			}
			if len(data) > 0 && data[len(data)-1] != '\n' {
				data = append(data, '\n')
			}
			return cfg.write(data)
		},
	}
	cmd.Flags().BoolVar(&xml, "xml", false, "emit ELM XML instead of JSON")
	return cmd
}

func newValidateCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.cql>",
		Short: "Parse, resolve and type-check a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cfg.session()
			if err != nil {
				return err
			}
			if _, err := session.CompileFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
