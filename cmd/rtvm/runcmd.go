package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rtvm/executor"
)

var (
	runFromSource bool
	runEntryFn    uint32
	runStackCap   uint64
	runConfigFile string
)

var runCmd = &cobra.Command{
	Use:   "run <program>",
	Short: "Execute a compiled (or, with --source, freshly assembled) program",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runFromSource, "source", false, "treat <program> as assembler text source instead of a compiled container")
	runCmd.Flags().Uint32Var(&runEntryFn, "entry", 0, "function index to call as the program entry point")
	runCmd.Flags().Uint64Var(&runStackCap, "stack-limit", 0, "refuse stack growth past this many bytes (0 = unbounded)")
	runCmd.Flags().StringVar(&runConfigFile, "config", "", "YAML file registry preset")
}

func runRun(_ *cobra.Command, args []string) error {
	funcs, err := loadProgram(args[0], runFromSource)
	if err != nil {
		return err
	}

	var cfg *Config
	if runConfigFile != "" {
		cfg, err = loadConfig(runConfigFile)
		if err != nil {
			return err
		}
	}

	e, err := newExecutor(funcs, runStackCap, cfg)
	if err != nil {
		return err
	}

	// Disable GC churn during the tight instruction loop the way the
	// teacher's own driver does.
	gcPercent := 100
	if key, ok := os.LookupEnv("GOGC"); ok {
		if n, err := strconv.Atoi(key); err == nil {
			gcPercent = n
		}
	}
	debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	if err := e.Call(uint64(runEntryFn), 0); err != nil {
		return fmt.Errorf("rtvm: calling entry function %d: %w", runEntryFn, err)
	}

	for {
		res, err := e.Execute()
		if err != nil {
			var execErr *executor.Error
			if errors.As(err, &execErr) && execErr.Kind == executor.EndOfProgram {
				return nil
			}
			if logger != nil {
				logger.Error("execution failed", zap.Error(err))
			}
			return fmt.Errorf("rtvm: %w", err)
		}
		switch res.Status {
		case executor.StatusEnd:
			fmt.Printf("program ended with value %d\n", res.Value)
			return nil
		case executor.StatusSleep:
			// Execute does not itself advance PC past a Slp (§4.6: the
			// driver decides); this driver has no scheduler to resume
			// it later, so it reports the sleep and stops rather than
			// spinning on the same instruction forever.
			fmt.Printf("program slept with value %d\n", res.Value)
			return nil
		}
	}
}
