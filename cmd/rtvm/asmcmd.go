package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rtvm/asm"
)

var asmOutputFile string

var asmCmd = &cobra.Command{
	Use:   "asm <source.rtasm>",
	Short: "Assemble a text program into the container format rtvm run loads",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsm,
}

func init() {
	rootCmd.AddCommand(asmCmd)
	asmCmd.Flags().StringVarP(&asmOutputFile, "output", "o", "", "output file (default: <input>.rtvmc)")
}

func runAsm(_ *cobra.Command, args []string) error {
	srcFile := args[0]
	src, err := os.ReadFile(srcFile)
	if err != nil {
		return fmt.Errorf("rtvm: reading %s: %w", srcFile, err)
	}

	funcs, err := asm.Assemble(string(src))
	if err != nil {
		return fmt.Errorf("rtvm: assembly failed:\n%w", err)
	}

	out := asmOutputFile
	if out == "" {
		ext := filepath.Ext(srcFile)
		if ext != "" {
			out = strings.TrimSuffix(srcFile, ext) + ".rtvmc"
		} else {
			out = srcFile + ".rtvmc"
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("rtvm: creating %s: %w", out, err)
	}
	defer f.Close()

	if err := asm.EncodeProgram(f, funcs); err != nil {
		return fmt.Errorf("rtvm: encoding %s: %w", out, err)
	}

	if logger != nil {
		logger.Info("assembled program", zap.Int("functions", len(funcs)), zap.String("output", out))
	}
	fmt.Printf("assembled %s -> %s (%d function(s))\n", srcFile, out, len(funcs))
	return nil
}
