// Command cql compiles and evaluates Clinical Quality Language
// libraries: execute definitions, translate to ELM, validate, or work
// interactively in a REPL.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DAMEDIC/cql-engine-go/cql"
	"github.com/DAMEDIC/cql-engine-go/engine"
	"github.com/DAMEDIC/cql-engine-go/modelinfo"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cliConfig struct {
	libraryPaths []string
	modelPaths   []string
	params       []string
	dataFile     string
	format       string
	output       string
	color        string
	verbose      bool
}

func newRootCommand() *cobra.Command {
	cfg := &cliConfig{}
	v := viper.New()

	root := &cobra.Command{
		Use:           "cql",
		Short:         "Compile and evaluate Clinical Quality Language libraries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			v.SetEnvPrefix("CQL")
			v.AutomaticEnv()
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringArrayVarP(&cfg.libraryPaths, "library-path", "L", nil, "library search path (repeatable)")
	flags.StringArrayVar(&cfg.modelPaths, "model", nil, "modelinfo file to load (repeatable)")
	flags.StringArrayVar(&cfg.params, "param", nil, "parameter binding name=value (repeatable)")
	flags.StringVar(&cfg.dataFile, "data", "", "JSON data bundle served to retrieves")
	flags.StringVar(&cfg.format, "format", "json", "output format: json, pretty or table")
	flags.StringVarP(&cfg.output, "output", "o", "", "write output to file instead of stdout")
	flags.StringVar(&cfg.color, "color", "auto", "colorize output: auto, always or never")
	flags.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newExecuteCommand(cfg))
	root.AddCommand(newTranslateCommand(cfg))
	root.AddCommand(newValidateCommand(cfg))
	root.AddCommand(newREPLCommand(cfg))
	return root
}

func (cfg *cliConfig) colorEnabled() bool {
	switch cfg.color {
	case "always":
		return true
	case "never":
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd())
	}
}

func (cfg *cliConfig) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if cfg.verbose {
		level = zerolog.TraceLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !cfg.colorEnabled()}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// session builds the shared session from flags.
func (cfg *cliConfig) session() (*cql.Session, error) {
	var models []*modelinfo.ModelInfo
	for _, path := range cfg.modelPaths {
		model, err := modelinfo.ParseFile(path)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}

	var provider engine.DataProvider
	if cfg.dataFile != "" {
		p, err := loadDataBundle(cfg.dataFile)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	return cql.NewSession(cql.SessionOptions{
		ModelProvider: modelinfo.NewStaticProvider(models...),
		LibraryPaths:  cfg.libraryPaths,
		DataProvider:  provider,
		Logger:        cfg.logger(),
	}), nil
}

func (cfg *cliConfig) write(data []byte) error {
	if cfg.output != "" {
		return os.WriteFile(cfg.output, data, 0o644)
	}
	_, err := os.Stdout.Write(data)
	return err
}
