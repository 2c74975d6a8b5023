package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rtvm/executor"
)

var (
	debugFromSource bool
	debugEntryFn    uint32
	debugConfigFile string
)

var debugCmd = &cobra.Command{
	Use:   "debug <program>",
	Short: "Step through a program one instruction at a time",
	Args:  cobra.ExactArgs(1),
	RunE:  runDebug,
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.Flags().BoolVar(&debugFromSource, "source", false, "treat <program> as assembler text source instead of a compiled container")
	debugCmd.Flags().Uint32Var(&debugEntryFn, "entry", 0, "function index to call as the program entry point")
	debugCmd.Flags().StringVar(&debugConfigFile, "config", "", "YAML file registry preset")
}

// runDebug implements a single-step REPL grounded on the teacher's
// RunProgramDebugMode (vm/run.go): n/next executes one instruction,
// r/run free-runs until a breakpoint or termination, b/break <n> toggles
// a breakpoint on a program-counter value.
func runDebug(_ *cobra.Command, args []string) error {
	funcs, err := loadProgram(args[0], debugFromSource)
	if err != nil {
		return err
	}

	var cfg *Config
	if debugConfigFile != "" {
		cfg, err = loadConfig(debugConfigFile)
		if err != nil {
			return err
		}
	}

	e, err := newExecutor(funcs, 0, cfg)
	if err != nil {
		return err
	}
	if err := e.Call(uint64(debugEntryFn), 0); err != nil {
		return fmt.Errorf("rtvm: calling entry function %d: %w", debugEntryFn, err)
	}

	fmt.Println("Commands:\n\tn or next: execute next instruction\n\tr or run: run until breakpoint or end\n\tb or break <pc>: toggle breakpoint at pc\n\tp or print: show pc and call depth\n\tq or quit: exit")
	printState(e)

	reader := bufio.NewReader(os.Stdin)
	breakpoints := make(map[int]struct{})
	running := false

	for {
		if !running {
			fmt.Print("\n-> ")
			line, _ := reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
			switch {
			case line == "n" || line == "next":
				done := stepOnce(e)
				if !done {
					printState(e)
				}
				if done {
					return nil
				}
				continue
			case line == "p" || line == "print":
				printState(e)
			case line == "r" || line == "run":
				running = true
			case strings.HasPrefix(line, "b"):
				arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "break"), "b"))
				pc, err := strconv.Atoi(arg)
				if err != nil {
					fmt.Println("unknown pc:", err)
					continue
				}
				if _, ok := breakpoints[pc]; ok {
					delete(breakpoints, pc)
					fmt.Printf("breakpoint at %d removed\n", pc)
				} else {
					breakpoints[pc] = struct{}{}
					fmt.Printf("breakpoint at %d set\n", pc)
				}
			case line == "q" || line == "quit":
				return nil
			default:
				fmt.Println("unknown command")
			}
			continue
		}

		if _, hit := breakpoints[int(e.ProgramCounter())]; hit {
			fmt.Printf("breakpoint hit at pc=%d\n", e.ProgramCounter())
			running = false
			continue
		}
		if done := stepOnce(e); done {
			return nil
		}
	}
}

func printState(e *executor.Executor) {
	fmt.Printf("pc=%d call_depth=%d\n", e.ProgramCounter(), e.CallDepth())
}

// stepOnce executes one instruction and reports whether the program has
// finished (successfully or with an error) and the REPL should stop.
func stepOnce(e *executor.Executor) (done bool) {
	res, err := e.Execute()
	if err != nil {
		var execErr *executor.Error
		if errors.As(err, &execErr) && execErr.Kind == executor.EndOfProgram {
			fmt.Println("program finished")
			return true
		}
		fmt.Println("execution error:", err)
		return true
	}
	switch res.Status {
	case executor.StatusEnd:
		fmt.Printf("program ended with value %d\n", res.Value)
		return true
	case executor.StatusSleep:
		fmt.Printf("program slept with value %d\n", res.Value)
		return true
	}
	return false
}
