// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pqbench/cmd/pqbench/config"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1 // a variant or a sink failed
	ExitConfig = 2 // configuration rejected, nothing was benchmarked
)

// ExitError carries a process exit code through cobra.
//
// # Example
//
//	return &ExitError{Code: ExitFailed, Err: fmt.Errorf("%d variants failed", n)}
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	var ee *ExitError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ee):
		return ee.Code
	case errors.Is(err, config.ErrConfiguration):
		return ExitConfig
	default:
		return ExitFailed
	}
}

// execute runs root with args and reports errors cobra did not print.
func execute(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		printError(root.ErrOrStderr(), err)
	}
	return exitCode(err)
}

func printError(w io.Writer, err error) {
	var ee *ExitError
	if errors.As(err, &ee) && ee.Err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
