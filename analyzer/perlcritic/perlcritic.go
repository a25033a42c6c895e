package perlcritic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/flanksource/commons/logger"

	"github.com/crittrail/crittrail/analyzer"
)

// verboseFormat keeps the source snippet last so a bounded SplitN survives
// tabs embedded in the offending line of code.
const verboseFormat = "%l\t%s\t%P\t%m\t%e\t%r\n"

// Engine runs the perlcritic command line tool. Exit status follows the
// tool's contract: 0 means clean, 2 means violations were found, anything
// else is a failure of the tool itself.
type Engine struct {
	// Binary is the executable to invoke, "perlcritic" unless overridden.
	Binary string
}

func New() *Engine {
	return &Engine{Binary: "perlcritic"}
}

func (e *Engine) Name() string { return "perlcritic" }

func (e *Engine) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.Binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", e.Binary, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Engine) Analyze(ctx context.Context, req analyzer.Request) (*analyzer.Result, error) {
	args := []string{
		"--verbose", verboseFormat,
		"--statistics",
		"--nocolor",
	}
	if req.MinSeverity > 0 {
		args = append(args, "--severity", strconv.Itoa(req.MinSeverity))
	}
	if req.Profile != "" {
		args = append(args, "--profile", req.Profile)
	} else {
		args = append(args, "--noprofile")
	}
	if req.Content != nil {
		args = append(args, "-")
	} else {
		args = append(args, req.Path)
	}

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	if req.Content != nil {
		cmd.Stdin = bytes.NewReader(req.Content)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debugf("Executing: %s %s", e.Binary, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != violationsFound {
			return nil, fmt.Errorf("%s failed on %s: %w: %s",
				e.Binary, req.Path, err, strings.TrimSpace(stderr.String()))
		}
	}

	set, metrics, err := parseOutput(stdout.String())
	if err != nil {
		return nil, fmt.Errorf("parsing %s output for %s: %w", e.Binary, req.Path, err)
	}
	return &analyzer.Result{Set: set, Metrics: metrics}, nil
}

// violationsFound is perlcritic's exit status when the run succeeded and
// policy violations were reported. Status 1 is reserved for tool errors.
const violationsFound = 2
