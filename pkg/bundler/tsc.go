package bundler

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/premid/pmd/command"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/pkg/diagnostics"
)

var (
	tscLocated = regexp.MustCompile(`^(.+)\((\d+),(\d+)\): error TS(\d+): (.*)$`)
	tscGlobal  = regexp.MustCompile(`^error TS(\d+): (.*)$`)
)

// TypeCheckFailed is the message of the wrapper diagnostic added when tsc
// exits with errors.
const TypeCheckFailed = "Type check failed"

// TSC runs the TypeScript compiler without emitting.
type TSC struct {
	// Command is the tsc invocation, e.g. ["npx", "tsc"].
	Command []string
	// Target is passed to tsc when the presence has no tsconfig.json.
	Target string

	builder *command.SafeBuilder
}

// NewTSC creates a checker running cmd through exec.
func NewTSC(cmd []string, target string, exec command.Executor) *TSC {
	return &TSC{
		Command: cmd,
		Target:  target,
		builder: command.NewSafeBuilderWithExecutor(exec),
	}
}

// Check type-checks files in dir. A failing run adds one ModuleBuildError
// wrapper after the parsed diagnostics. The error is non-nil only when tsc
// could not run.
func (c *TSC) Check(ctx context.Context, dir string, files []string) ([]diagnostics.Diagnostic, error) {
	if len(c.Command) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "typecheck command is empty")
	}

	args := append([]string(nil), c.Command[1:]...)
	args = append(args, "--noEmit", "--pretty", "false")
	if _, err := os.Stat(filepath.Join(dir, "tsconfig.json")); err == nil {
		args = append(args, "-p", dir)
	} else {
		target := c.Target
		if target == "" {
			target = "es2020"
		}
		args = append(args, "--target", target, "--lib", "dom,"+target, "--skipLibCheck")
		for _, f := range files {
			if rel, err := filepath.Rel(dir, f); err == nil {
				f = rel
			}
			args = append(args, f)
		}
	}

	cmd, err := c.builder.Build(ctx, c.Command[0], args...)
	if err != nil {
		return nil, err
	}
	defer cmd.Cancel()

	execCmd := cmd.Exec()
	execCmd.Dir = dir
	var out bytes.Buffer
	execCmd.Stdout = &out
	execCmd.Stderr = &out

	runErr := execCmd.Run()
	var exitErr *exec.ExitError
	if runErr != nil && !stderrors.As(runErr, &exitErr) {
		return nil, errors.CommandFailed(cmd.String(), runErr)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	diags := ParseTSC(dir, out.String())
	if runErr != nil {
		if len(diags) == 0 {
			text := strings.TrimSpace(out.String())
			if text == "" {
				text = runErr.Error()
			}
			diags = append(diags, diagnostics.Diagnostic{Message: text})
		}
		diags = append(diags, diagnostics.Diagnostic{
			Category: diagnostics.ModuleBuildError,
			Message:  TypeCheckFailed,
		})
	}
	return diags, nil
}

// ParseTSC parses "tsc --pretty false" output. Indented lines continue the
// previous message. Relative file names are resolved against dir.
func ParseTSC(dir, output string) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := tscLocated.FindStringSubmatch(line); m != nil {
			file := m[1]
			if !filepath.IsAbs(file) {
				file = filepath.Join(dir, file)
			}
			lineNo, _ := strconv.Atoi(m[2])
			col, _ := strconv.Atoi(m[3])
			code, _ := strconv.Atoi(m[4])
			diags = append(diags, diagnostics.Diagnostic{
				File:    file,
				Line:    lineNo,
				Column:  col,
				Code:    code,
				Message: m[5],
			})
			continue
		}

		if m := tscGlobal.FindStringSubmatch(line); m != nil {
			code, _ := strconv.Atoi(m[1])
			diags = append(diags, diagnostics.Diagnostic{Code: code, Message: m[2]})
			continue
		}

		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(diags) > 0 {
			last := &diags[len(diags)-1]
			last.Message += "\n" + line
		}
	}
	return diags
}
