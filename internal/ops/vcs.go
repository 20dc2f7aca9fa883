package ops

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// runGit shells out to git inside the workspace root. Stdout and stderr
// are captured; a non-zero exit surfaces stderr verbatim.
func runGit(ctx context.Context, env *Env, args ...string) (string, error) {
	timeout := env.Agent.CommandTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := append([]string{"-C", env.Agent.WorkspaceRoot}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := strings.TrimRight(stdout.String(), "\n")
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return out, fmt.Errorf("git %s timed out after %s", args[0], timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return out, fmt.Errorf("git %s failed: %s", args[0], msg)
	}
	return out, nil
}

// GitStatusOperation runs git status in the workspace.
func GitStatusOperation() *Operation {
	return &Operation{
		Name:        "git_status",
		Description: "Show the working tree status",
		Category:    CategoryVCS,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			out, err := runGit(ctx, env, "status", "--short", "--branch")
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(out) == "" {
				return "working tree clean", nil
			}
			return out, nil
		},
	}
}

// GitAddOperation stages a path, defaulting to everything.
func GitAddOperation() *Operation {
	return &Operation{
		Name:        "git_add",
		Description: "Stage changes",
		Category:    CategoryVCS,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			target := params["path"]
			if target == "" {
				target = "."
			}
			if _, err := runGit(ctx, env, "add", "--", target); err != nil {
				return "", err
			}
			return fmt.Sprintf("staged %s", target), nil
		},
	}
}

// GitCommitOperation commits staged changes. A missing message is an
// invalid-parameters failure, never an empty-message commit.
func GitCommitOperation() *Operation {
	return &Operation{
		Name:        "git_commit",
		Description: "Commit staged changes with a message",
		Category:    CategoryVCS,
		Required:    []string{"message"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			message := strings.TrimSpace(params["message"])
			if message == "" {
				return "", invalidParams("commit requires a non-empty message")
			}
			return runGit(ctx, env, "commit", "-m", message)
		},
	}
}

// GitPushOperation pushes the current branch. Failures are surfaced
// verbatim and never retried: a repeated push is not assumed idempotent.
func GitPushOperation() *Operation {
	return &Operation{
		Name:        "git_push",
		Description: "Push the current branch",
		Category:    CategoryVCS,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			out, err := runGit(ctx, env, "push")
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(out) == "" {
				return "pushed", nil
			}
			return out, nil
		},
	}
}
