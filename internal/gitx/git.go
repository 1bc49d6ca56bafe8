// Package gitx wraps the git executable with the handful of operations the
// merge and test flows need.
package gitx

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner shells out to git. Commands inherit the caller's environment, so
// merge commits are authored with the operator's own git identity.
type Runner struct{}

type Result struct {
	Stdout string
	Stderr string
}

func (r Runner) run(dir string, name string, args ...string) (Result, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return Result{Stdout: stdout.String(), Stderr: stderr.String()}, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, stderr.String())
	}
	return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (r Runner) RunGit(dir string, args ...string) (string, error) {
	res, err := r.run(dir, "git", args...)
	return strings.TrimSpace(res.Stdout), err
}

func (r Runner) IsGitRepo(path string) bool {
	_, err := r.RunGit(path, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// LocalBranches lists the short names of all local branches.
func (r Runner) LocalBranches(path string) ([]string, error) {
	out, err := r.RunGit(path, "for-each-ref", "refs/heads", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// CurrentBranch returns the checked out branch name, or "" for a detached
// HEAD or an error.
func (r Runner) CurrentBranch(path string) string {
	out, err := r.RunGit(path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil || out == "HEAD" {
		return ""
	}
	return out
}

func (r Runner) Checkout(path, branch string) error {
	_, err := r.RunGit(path, "checkout", branch)
	return err
}

// MergeNoFF merges source into the currently checked out branch with an
// explicit merge commit carrying message. It never fast-forwards.
func (r Runner) MergeNoFF(path, source, message string) error {
	_, err := r.RunGit(path, "merge", "--no-ff", source, "-m", message)
	return err
}

// CloneShallow clones a single branch at depth 1.
func (r Runner) CloneShallow(url, branch, path string) error {
	_, err := r.RunGit("", "clone", "--depth", "1", "--single-branch", "--branch", branch, url, path)
	return err
}

// Head returns the abbreviated commit hash and subject of HEAD.
func (r Runner) Head(path string) (sha, subject string, err error) {
	out, err := r.RunGit(path, "log", "-1", "--format=%h%x00%s")
	if err != nil {
		return "", "", err
	}
	sha, subject, _ = strings.Cut(out, "\x00")
	return sha, subject, nil
}
