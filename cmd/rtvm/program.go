package main

import (
	"fmt"
	"os"
	"strings"

	"rtvm/asm"
	"rtvm/executor"
	"rtvm/files"
	"rtvm/op"
)

// loadProgram reads path as an assembled container file, unless
// fromSource is true, in which case it is assembled fresh from text
// source. This lets "rtvm run --source" skip the separate "rtvm asm"
// step during iteration.
func loadProgram(path string, fromSource bool) ([]op.Function, error) {
	if fromSource {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("rtvm: reading %s: %w", path, err)
		}
		funcs, err := asm.Assemble(string(src))
		if err != nil {
			return nil, fmt.Errorf("rtvm: assembling %s: %w", path, err)
		}
		return funcs, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rtvm: opening %s: %w", path, err)
	}
	defer f.Close()
	funcs, err := asm.DecodeProgram(f)
	if err != nil {
		return nil, fmt.Errorf("rtvm: decoding %s: %w", path, err)
	}
	return funcs, nil
}

// newExecutor builds an Executor over funcs, wiring its file registry
// with stdin/stdout/stderr (handles 1-3, stdout current) plus any
// presets named by cfg.
func newExecutor(funcs []op.Function, stackCap uint64, cfg *Config) (*executor.Executor, error) {
	e := executor.NewWithLimits(funcs, stackCap, 0)
	reg := e.Files()

	reg.Open(files.NewStream(os.Stdin, nil))
	stdout := reg.Open(files.NewStream(nil, os.Stdout))
	reg.Open(files.NewStream(nil, os.Stderr))
	if err := reg.SetCurrent(stdout); err != nil {
		return nil, fmt.Errorf("rtvm: wiring stdout: %w", err)
	}

	if cfg == nil {
		return e, nil
	}
	for _, preset := range cfg.Files {
		handle, err := openPreset(reg, preset)
		if err != nil {
			return nil, err
		}
		if preset.Current {
			if err := reg.SetCurrent(handle); err != nil {
				return nil, fmt.Errorf("rtvm: setting current to %s: %w", preset.Path, err)
			}
		}
	}
	return e, nil
}

func openPreset(reg *files.Registry, preset FileRegistryPreset) (uint64, error) {
	switch strings.ToLower(preset.Mode) {
	case "read":
		f, err := os.Open(preset.Path)
		if err != nil {
			return 0, fmt.Errorf("rtvm: opening %s: %w", preset.Path, err)
		}
		return reg.Open(files.NewStream(f, nil)), nil
	case "write":
		f, err := os.Create(preset.Path)
		if err != nil {
			return 0, fmt.Errorf("rtvm: creating %s: %w", preset.Path, err)
		}
		return reg.Open(files.NewStream(nil, f)), nil
	case "append", "":
		f, err := os.OpenFile(preset.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return 0, fmt.Errorf("rtvm: opening %s for append: %w", preset.Path, err)
		}
		return reg.Open(files.NewStream(nil, f)), nil
	default:
		return 0, fmt.Errorf("rtvm: unknown file mode %q for %s", preset.Mode, preset.Path)
	}
}
