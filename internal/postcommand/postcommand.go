// Package postcommand runs a project's post_commands list after
// create/switch/reset: expanding template variables, evaluating
// conditions, applying file-replace actions, and spawning shell
// commands in order.
package postcommand

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/keylty/pgbranch/internal/domain"
	"github.com/keylty/pgbranch/internal/gitadapter"
	"github.com/keylty/pgbranch/internal/pgerrors"
	"github.com/keylty/pgbranch/internal/util"
)

// Vars holds the template variables substituted into every string field
// of a post-command item.
type Vars struct {
	BranchName string
	DBName     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	TemplateDB string
	Prefix     string
}

func (v Vars) expand(s string) string {
	replacer := strings.NewReplacer(
		"{branch_name}", v.BranchName,
		"{db_name}", v.DBName,
		"{db_host}", v.DBHost,
		"{db_port}", v.DBPort,
		"{db_user}", v.DBUser,
		"{db_password}", v.DBPassword,
		"{template_db}", v.TemplateDB,
		"{prefix}", v.Prefix,
	)
	return replacer.Replace(s)
}

// Output captures what one item printed, for CLI streaming and --json.
type Output struct {
	Item     string `json:"item"`
	Skipped  bool   `json:"skipped,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
	Err      string `json:"error,omitempty"`
}

// Runner executes a project's post-command queue.
type Runner struct {
	workDir string
	runner  gitadapter.CommandRunner
	stdout  io.Writer
	stderr  io.Writer
}

// New returns a Runner rooted at workDir, streaming command output to
// stdout/stderr. Either writer may be nil to discard output.
func New(workDir string, stdout, stderr io.Writer) *Runner {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Runner{workDir: workDir, runner: gitadapter.NewExecRunner(), stdout: stdout, stderr: stderr}
}

// Run executes items in order, expanding vars and evaluating conditions
// before each. It aborts on the first failing item that does not set
// ContinueOnError, returning the outputs collected so far alongside the
// aborting error.
func (r *Runner) Run(items []domain.PostCommandItem, vars Vars) ([]Output, error) {
	var outputs []Output
	for _, item := range items {
		expanded := expandItem(item, vars)

		ok, err := r.evalCondition(expanded.Condition)
		if err != nil {
			return outputs, pgerrors.IoError("evaluate post-command condition", err)
		}
		if !ok {
			outputs = append(outputs, Output{Item: describeItem(expanded), Skipped: true})
			continue
		}

		var out Output
		if expanded.IsReplace() {
			out, err = r.runReplace(expanded)
		} else {
			out, err = r.runCommand(expanded)
		}
		outputs = append(outputs, out)
		if err != nil && !expanded.ContinueOnError {
			return outputs, err
		}
	}
	return outputs, nil
}

func describeItem(item domain.PostCommandItem) string {
	if item.IsReplace() {
		return "replace:" + item.File
	}
	return item.ShellCommand()
}

func expandItem(item domain.PostCommandItem, vars Vars) domain.PostCommandItem {
	out := item
	out.Raw = vars.expand(item.Raw)
	out.Command = vars.expand(item.Command)
	out.WorkingDir = vars.expand(item.WorkingDir)
	out.Condition = vars.expand(item.Condition)
	out.File = vars.expand(item.File)
	out.Pattern = vars.expand(item.Pattern)
	out.Replacement = vars.expand(item.Replacement)
	if item.Environment != nil {
		out.Environment = make(map[string]string, len(item.Environment))
		for k, v := range item.Environment {
			out.Environment[vars.expand(k)] = vars.expand(v)
		}
	}
	return out
}

// evalCondition supports file_exists:<path>, env:<NAME>, and
// command:<shell-expr>, treating an absent condition as always true.
func (r *Runner) evalCondition(condition string) (bool, error) {
	if condition == "" {
		return true, nil
	}
	switch {
	case strings.HasPrefix(condition, "file_exists:"):
		path := strings.TrimPrefix(condition, "file_exists:")
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.workDir, path)
		}
		_, err := os.Stat(path)
		return err == nil, nil
	case strings.HasPrefix(condition, "env:"):
		name := strings.TrimPrefix(condition, "env:")
		_, ok := os.LookupEnv(name)
		return ok, nil
	case strings.HasPrefix(condition, "command:"):
		expr := strings.TrimPrefix(condition, "command:")
		_, err := r.runner.Run(r.workDir, "sh", "-c", expr)
		return err == nil, nil
	default:
		return false, fmt.Errorf("unrecognized condition %q", condition)
	}
}

func (r *Runner) runCommand(item domain.PostCommandItem) (Output, error) {
	cmdText := item.ShellCommand()
	workDir := item.WorkingDir
	if workDir == "" {
		workDir = r.workDir
	}

	cmd := exec.Command("sh", "-c", cmdText)
	cmd.Dir = workDir
	cmd.Env = os.Environ()
	for k, v := range item.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = io.MultiWriter(&stdout, r.stdout)
	cmd.Stderr = io.MultiWriter(&stderr, r.stderr)

	runErr := cmd.Run()
	out := Output{Item: cmdText, Stdout: stdout.String(), Stderr: stderr.String()}
	if runErr != nil {
		out.ExitCode = exitCode(runErr)
		out.Err = runErr.Error()
		return out, pgerrors.IoError(fmt.Sprintf("post-command %q failed", cmdText), runErr)
	}
	return out, nil
}

func exitCode(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}

// runReplace implements the file-replace action: create the file with
// Replacement as its full content when missing and CreateIfMissing is
// set, otherwise substitute every match of Pattern with Replacement and
// write the result back atomically.
func (r *Runner) runReplace(item domain.PostCommandItem) (Output, error) {
	path := item.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.workDir, path)
	}
	out := Output{Item: "replace:" + item.File}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && item.CreateIfMissing {
			if werr := util.AtomicWriteFile(path, []byte(item.Replacement), 0o644); werr != nil {
				out.Err = werr.Error()
				return out, pgerrors.IoError("create post-command file", werr)
			}
			return out, nil
		}
		out.Err = err.Error()
		return out, pgerrors.IoError("read post-command file", err)
	}

	re, err := regexp.Compile(item.Pattern)
	if err != nil {
		out.Err = err.Error()
		return out, pgerrors.ConfigInvalid("post_commands.pattern", err.Error())
	}
	replaced := re.ReplaceAll(data, []byte(item.Replacement))
	if err := util.AtomicWriteFile(path, replaced, 0o644); err != nil {
		out.Err = err.Error()
		return out, pgerrors.IoError("write post-command file", err)
	}
	return out, nil
}
