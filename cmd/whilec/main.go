package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/whilelang/whilec/pkg/ast"
	"github.com/whilelang/whilec/pkg/manifest"
	"github.com/whilelang/whilec/pkg/rt"
	"github.com/whilelang/whilec/pkg/x86"
	"github.com/whilelang/whilec/pkg/x86gen"

	_ "github.com/tliron/commonlog/simple"
)

var version = "0.1.0"

var (
	targetName  string
	outputPath  string
	emitRuntime bool
	dumpAsm     bool
	verbose     bool
)

var log = commonlog.GetLogger("whilec")

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "whilec [file]",
		Short: "whilec generates x86 assembly from type-checked While programs",
		Long: `whilec is the native code generator for the While language. It reads a
type-checked program (a .wast file produced by the front end) and emits
GNU assembler input which links against the bundled C runtime.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			if verbose {
				commonlog.Configure(1, nil)
			}
			if err := doCompile(args[0], out, errOut); err != nil {
				fmt.Fprintf(errOut, "whilec: %v\n", err)
				return err
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVarP(&targetName, "target", "t", "", "Target platform (e.g. linux-x86_64)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (defaults to input with .s extension)")
	rootCmd.Flags().BoolVar(&emitRuntime, "emit-runtime", false, "Also write runtime.c next to the output")
	rootCmd.Flags().BoolVar(&dumpAsm, "dump", false, "Also print the generated assembly to stdout")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	return rootCmd
}

func doCompile(filename string, out, errOut io.Writer) error {
	// Manifest settings apply where flags are not given.
	m, err := manifest.FindAndLoad(filepath.Dir(filename))
	if err != nil {
		return err
	}
	target, err := resolveTarget(m)
	if err != nil {
		return err
	}
	log.Infof("compiling %s for %s", filename, target)

	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	program, err := ast.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	file, err := x86gen.NewGenerator(target).Translate(program)
	if err != nil {
		return err
	}

	outputFilename := resolveOutput(filename, m)
	outFile, err := os.Create(outputFilename)
	if err != nil {
		return err
	}
	defer outFile.Close()
	x86.NewPrinter(outFile, target).PrintFile(file)
	log.Infof("wrote %s", outputFilename)

	if dumpAsm {
		x86.NewPrinter(out, target).PrintFile(file)
	}
	if emitRuntime || (m != nil && m.Build.EmitRuntime) {
		path, err := rt.WriteTo(filepath.Dir(outputFilename))
		if err != nil {
			return err
		}
		log.Infof("wrote %s", path)
	}
	return nil
}

func resolveTarget(m *manifest.Manifest) (x86.Target, error) {
	name := targetName
	if name == "" && m != nil {
		name = m.Build.Target
	}
	if name == "" {
		name = "linux-x86_64"
	}
	return x86.ParseTarget(name)
}

// resolveOutput derives the output filename: the -o flag wins, then the
// manifest's output directory, then input.wast -> input.s.
func resolveOutput(filename string, m *manifest.Manifest) string {
	if outputPath != "" {
		return outputPath
	}
	derived := asmOutputFilename(filename)
	if m != nil && m.Build.Output != "" {
		return filepath.Join(m.OutputDir(), filepath.Base(derived))
	}
	return derived
}

// asmOutputFilename returns the default output filename: input.wast -> input.s
func asmOutputFilename(filename string) string {
	ext := ".wast"
	if strings.HasSuffix(filename, ext) {
		return filename[:len(filename)-len(ext)] + ".s"
	}
	return filename + ".s"
}
