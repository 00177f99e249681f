package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// outputName derives the output file of input. An explicit name is only
// used when there is a single input; otherwise the input base name is placed
// in dir (or next to explicit) with the given suffix.
func outputName(input, explicit, dir, suffix string, multi bool) string {
	if explicit != "" && !multi {
		return explicit
	}
	if dir == "" && explicit != "" {
		dir = filepath.Dir(explicit)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+suffix)
}

// forEachInput runs process on every input. A failing file is logged and
// skipped; the returned error reports how many failed.
func forEachInput(inputs []string, process func(input string, multi bool) error) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files")
	}
	multi := len(inputs) > 1
	failed := 0
	for _, input := range inputs {
		if VerbosityLevel > 0 {
			logger.Info(fmt.Sprintf("Processing %s", input), "main")
		}
		if err := process(input, multi); err != nil {
			logger.Error(fmt.Errorf("error processing %s: %w", input, err).Error())
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d input files failed", failed, len(inputs))
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
