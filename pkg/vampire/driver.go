// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vampire drives a Vampire prover subprocess in manual clause
// selection mode.
//
// Vampire speaks a line-oriented interactive protocol over its own
// standard output: it prints tagged event lines, then blocks on a "Pick a
// clause:" prompt until a clause label arrives on standard input. The
// Driver turns that exchange into the synchronous Driver contract of
// pkg/prover: one Start/Advance call per prompt cycle.
//
// The driver owns exactly one subprocess at a time. Starting a new
// episode tears the previous process down first, so no processes leak
// across Reset calls.
package vampire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/AleutianAI/saturation/pkg/logging"
	"github.com/AleutianAI/saturation/pkg/prover"
)

// Prompts Vampire prints when it wants a manual selection. Reading stops
// as soon as the output ends with one of these (modulo trailing blanks)
// or the stream closes.
var prompts = [][]byte{
	[]byte("Pick a clause:"),
	[]byte("Pick a clause pair:"),
}

// terminateWait bounds how long Terminate waits for the subprocess to
// exit after a kill before giving up on the wait.
const terminateWait = 5 * time.Second

// =============================================================================
// DRIVER
// =============================================================================

// Driver owns one Vampire subprocess and translates its interactive
// protocol into clause batches.
//
// Thread Safety:
//
//	NOT safe for concurrent use. One episode, one calling thread.
type Driver struct {
	binaryPath string
	logger     *logging.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output io.ReadCloser

	// known holds every label announced so far. Advance treats a label
	// outside this set as a stale action and does not touch the
	// subprocess.
	known map[string]struct{}
}

// NewDriver creates a driver for the given Vampire binary.
//
// The binary is not launched; each Start call spawns a fresh process.
// A nil logger selects the default stderr logger.
func NewDriver(binaryPath string, logger *logging.Logger) *Driver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Driver{
		binaryPath: binaryPath,
		logger:     logger,
	}
}

// Start launches Vampire on the given problem file and returns the
// clauses announced before the first prompt.
//
// Description:
//
//	Runs the binary with manual clause selection, full event output and
//	no internal time limit (pacing is the caller's job). The include
//	root is resolved two directory levels above the problem file, the
//	TPTP library layout. Stdout and stderr share one pipe; stdin takes
//	one clause label per line.
//
//	Vampire may refute the problem during preprocessing and exit before
//	ever prompting; the initial batch then already carries the
//	falsehood clause and the episode starts terminated.
//
// Outputs:
//
//	[]prover.Clause - The initial clause batch.
//	error - Spawn failures, or prover.ErrProtocol for unrecognized
//	        output.
func (d *Driver) Start(ctx context.Context, problem string) ([]prover.Clause, error) {
	if err := d.Terminate(); err != nil {
		return nil, fmt.Errorf("terminate previous session: %w", err)
	}

	includeDir := filepath.Join(filepath.Dir(problem), "..", "..")
	args := []string{
		"--manual_cs", "on",
		"--show_everything", "on",
		"--time_limit", "0",
		"--avatar", "off",
		"--include", includeDir,
		problem,
	}

	cmd := exec.Command(d.binaryPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	readEnd, writeEnd, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("output pipe: %w", err)
	}
	// Stdout and stderr interleave on one pipe, the way an interactive
	// terminal would see them.
	cmd.Stdout = writeEnd
	cmd.Stderr = writeEnd

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = readEnd.Close()
		_ = writeEnd.Close()
		return nil, fmt.Errorf("start %s: %w", d.binaryPath, err)
	}
	// The child holds its own copy of the write end; dropping ours lets
	// reads hit EOF when the child exits.
	_ = writeEnd.Close()

	d.cmd = cmd
	d.stdin = stdin
	d.output = readEnd
	d.known = make(map[string]struct{})

	d.logger.Info("vampire started",
		"binary", d.binaryPath,
		"problem", problem,
		"pid", cmd.Process.Pid,
	)
	return d.collect(ctx)
}

// Advance nominates the clause with the given label and returns the
// clauses announced before the next prompt.
//
// A label the driver has never seen is a stale action: Advance returns
// no clauses and does not touch the subprocess.
func (d *Driver) Advance(ctx context.Context, label string) ([]prover.Clause, error) {
	if d.cmd == nil {
		return nil, prover.ErrNotStarted
	}
	if _, ok := d.known[label]; !ok {
		d.logger.Debug("stale action ignored", "label", label)
		return nil, nil
	}
	if _, err := fmt.Fprintf(d.stdin, "%s\n", label); err != nil {
		return nil, fmt.Errorf("send clause label %s: %w", label, err)
	}
	return d.collect(ctx)
}

// Terminate tears down the subprocess.
//
// Idempotent; tolerates a process that already exited; never blocks
// longer than terminateWait on the happy path.
func (d *Driver) Terminate() error {
	if d.cmd == nil {
		return nil
	}
	if d.stdin != nil {
		_ = d.stdin.Close()
	}
	if d.cmd.Process != nil {
		// Kill on an already-dead process returns an error we don't
		// care about.
		_ = d.cmd.Process.Kill()

		done := make(chan struct{})
		go func() {
			_ = d.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(terminateWait):
			d.logger.Warn("vampire did not exit after kill", "pid", d.cmd.Process.Pid)
		}
	}
	if d.output != nil {
		_ = d.output.Close()
	}
	d.cmd = nil
	d.stdin = nil
	d.output = nil
	d.known = nil
	return nil
}

// collect runs one expect cycle and parses the result.
func (d *Driver) collect(ctx context.Context) ([]prover.Clause, error) {
	output, err := expect(ctx, d.output)
	if err != nil {
		return nil, err
	}
	clauses, events, err := parseResponse(output)
	if err != nil {
		return nil, err
	}
	if events == 0 {
		// The prover said something, none of it recognizable as an
		// event batch. Surface the raw output instead of guessing.
		return nil, fmt.Errorf("%w: no clause events in output: %q", prover.ErrProtocol, output)
	}
	for _, c := range clauses {
		d.known[c.Label] = struct{}{}
	}
	return clauses, nil
}

// expect reads subprocess output until one of the selection prompts
// appears or the stream ends.
//
// There is no internal timeout: an episode step blocks until the prover
// responds, and callers impose their own deadline if they need one. The
// context is only consulted between reads.
func expect(ctx context.Context, r io.Reader) (string, error) {
	var buf []byte
	tmp := make([]byte, 4096)
	for {
		if promptReached(buf) {
			break
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read prover output: %w", err)
		}
	}
	return string(buf), nil
}

// promptReached reports whether the buffered output ends with a
// selection prompt, ignoring trailing whitespace.
func promptReached(buf []byte) bool {
	trimmed := bytes.TrimRight(buf, " \t\r\n")
	for _, p := range prompts {
		if bytes.HasSuffix(trimmed, p) {
			return true
		}
	}
	return false
}
