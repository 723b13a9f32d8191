// Command pyscrape writes a declarative stub of a live Python namespace to
// stdout. With no module argument it scrapes the builtin namespace, seeding
// the alias-type entries the analysis backend relies on.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lunebeam/PTVS/loader"
	"github.com/lunebeam/PTVS/pyobj"
	"github.com/lunebeam/PTVS/scrape"
)

var (
	flagUTF8     bool
	flagLegacy   bool
	flagDumpFile string
	flagPydump   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pyscrape [module [search-path]]",
	Short: "Scrape a Python namespace into a declarative stub",
	Long: `pyscrape inspects a live Python namespace through the pydump helper and
writes a deterministic, syntactically valid stub of its public shape to
stdout. Diagnostics go to stderr and never mix with the stub.`,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagUTF8, "utf8", false, "replace invalid output bytes instead of failing")
	rootCmd.Flags().BoolVar(&flagLegacy, "legacy", false, "apply the legacy-interpreter knowledge overlay")
	rootCmd.Flags().StringVar(&flagDumpFile, "dump", "", "read the object graph from a file instead of running the helper")
	rootCmd.Flags().StringVar(&flagPydump, "pydump", "pydump", "dump helper command")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "warn", "diagnostic level (debug, info, warn, error)")
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(flagLogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	moduleName := "builtins"
	builtinsMode := true
	if len(args) >= 1 {
		moduleName = args[0]
		builtinsMode = moduleName == "builtins"
	}

	var overlays []scrape.Overlay
	if builtinsMode {
		overlays = append(overlays, scrape.OverlayBuiltins)
	}
	if flagLegacy {
		overlays = append(overlays, scrape.OverlayLegacy)
	}
	kb, err := scrape.NewKnowledgeBase(overlays...)
	if err != nil {
		return err
	}

	var mod *pyobj.Object
	if flagDumpFile != "" {
		mod, err = loader.ReadFile(flagDumpFile)
	} else {
		loader.Prepare()
		if err = loader.Check(flagPydump); err != nil {
			return err
		}
		opt := loader.Options{Command: flagPydump, Logger: logger}
		if len(args) >= 2 {
			opt.SearchPath = args[1]
		}
		mod, err = loader.Load(moduleName, opt)
	}
	if err != nil {
		return err
	}

	s := scrape.New(kb, logger)
	scan := s.NewScan(moduleName, mod)
	if builtinsMode {
		s.AddBuiltinObjects(scan, func(name string) *pyobj.Object {
			v, err := mod.GetAttr(name)
			if err != nil {
				return nil
			}
			return v
		})
		scan.Excluded = scrape.BuiltinExclusions(flagLegacy)
	}

	var out io.Writer = os.Stdout
	if flagUTF8 {
		out = &safeWriter{w: os.Stdout}
	}
	return s.Run(scan, out)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// safeWriter replaces invalid UTF-8 so the stub stays decodable downstream.
type safeWriter struct {
	w io.Writer
}

func (s *safeWriter) Write(p []byte) (int, error) {
	if utf8.Valid(p) {
		return s.w.Write(p)
	}
	fixed := strings.ToValidUTF8(string(p), "�")
	if _, err := s.w.Write([]byte(fixed)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pyscrape:", err)
		os.Exit(1)
	}
}
