// Command rtvm assembles and runs programs for the register/stack bytecode
// executor: "rtvm asm" compiles text source to the container format
// asm.EncodeProgram writes, "rtvm run" executes a compiled (or, with
// --source, freshly assembled) program, and "rtvm debug" steps through one
// instruction at a time.
//
// Grounded on the teacher's root command (main.go's flag-based entry
// point, generalized here to cobra subcommands the way go-dws structures
// its CLI) plus vm/run.go's RunProgram/RunProgramDebugMode split between
// a free-running driver and a single-step REPL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rtvm",
	Short: "Assembler and executor for the register/stack bytecode VM",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var cfg zap.Config
		if verbose {
			cfg = zap.NewDevelopmentConfig()
		} else {
			cfg = zap.NewProductionConfig()
			cfg.Encoding = "console"
			cfg.EncoderConfig.TimeKey = ""
		}
		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("rtvm: building logger: %w", err)
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose diagnostic logging")
}

func main() {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
