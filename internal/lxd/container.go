// Package lxd provisions ephemeral LXD containers for isolated test runs via
// the lxc client binary.
package lxd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultImage is the container image used when none is configured.
const DefaultImage = "ubuntu:jammy"

const (
	networkingAttempts = 10
	networkingInterval = 6 * time.Second
)

// ErrNetworkingTimeout reports that a launched container never reached the
// network within the bounded wait loop.
var ErrNetworkingTimeout = errors.New("container networking did not come up")

// Container is one ephemeral LXD instance. The zero value is not usable; use
// New.
type Container struct {
	Name  string
	Image string

	Stdout io.Writer
	Stderr io.Writer

	// runLXC and sleep are swapped out in tests.
	runLXC func(stdout, stderr io.Writer, args ...string) error
	sleep  func(time.Duration)
}

func New(image string, stdout, stderr io.Writer) *Container {
	if image == "" {
		image = DefaultImage
	}
	return &Container{
		Name:   "lpshipit-" + uuid.NewString()[:8],
		Image:  image,
		Stdout: stdout,
		Stderr: stderr,
		runLXC: runLXCCommand,
		sleep:  time.Sleep,
	}
}

func runLXCCommand(stdout, stderr io.Writer, args ...string) error {
	cmd := exec.Command("lxc", args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// WithContainer launches a container, runs fn against it, and always tears the
// container down, even when launch preparation or fn fails.
func WithContainer(image string, stdout, stderr io.Writer, fn func(*Container) error) error {
	c := New(image, stdout, stderr)
	if err := c.Launch(); err != nil {
		return err
	}
	defer c.Delete()
	if err := c.WaitForNetworking(); err != nil {
		return err
	}
	return fn(c)
}

func (c *Container) Launch() error {
	if err := c.runLXC(c.Stdout, c.Stderr, "launch", c.Image, c.Name); err != nil {
		return fmt.Errorf("launch container %s from %s: %w", c.Name, c.Image, err)
	}
	return nil
}

// WaitForNetworking polls until the container can resolve and reach
// launchpad.net, bounded by networkingAttempts.
func (c *Container) WaitForNetworking() error {
	for attempt := 0; attempt < networkingAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(networkingInterval)
		}
		err := c.runLXC(io.Discard, io.Discard, "exec", c.Name, "--", "ping", "-c", "1", "launchpad.net")
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrNetworkingTimeout, networkingAttempts)
}

// PushWorkspace copies the cloned workspace into the container root's home.
func (c *Container) PushWorkspace(dir string) error {
	if err := c.runLXC(c.Stdout, c.Stderr, "file", "push", "-r", dir, c.Name+"/root/"); err != nil {
		return fmt.Errorf("push workspace %s: %w", dir, err)
	}
	return c.chownRoot()
}

// PushCredentials copies the operator's ssh keys and git configuration in so
// the test command can fetch private dependencies.
func (c *Container) PushCredentials(home string) error {
	sshDir := filepath.Join(home, ".ssh")
	if _, err := os.Stat(sshDir); err == nil {
		if err := c.runLXC(c.Stdout, c.Stderr, "file", "push", "-r", sshDir, c.Name+"/root/"); err != nil {
			return fmt.Errorf("push ssh credentials: %w", err)
		}
	}
	gitconfig := filepath.Join(home, ".gitconfig")
	if _, err := os.Stat(gitconfig); err == nil {
		if err := c.runLXC(c.Stdout, c.Stderr, "file", "push", gitconfig, c.Name+"/root/.gitconfig"); err != nil {
			return fmt.Errorf("push gitconfig: %w", err)
		}
	}
	return c.chownRoot()
}

func (c *Container) chownRoot() error {
	if err := c.runLXC(c.Stdout, c.Stderr, "exec", c.Name, "--", "chown", "-R", "root:root", "/root/"); err != nil {
		return fmt.Errorf("chown container home: %w", err)
	}
	return nil
}

// Exec runs a shell command inside workdir, streaming output, and returns the
// command's exit status.
func (c *Container) Exec(workdir, command string) (int, error) {
	shellCmd := fmt.Sprintf("cd %s && %s", shellQuote(workdir), command)
	err := c.runLXC(c.Stdout, c.Stderr, "exec", c.Name, "--", "sh", "-c", shellCmd)
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("exec in container %s: %w", c.Name, err)
}

// Delete force-removes the container. Errors are reported but never block
// teardown of the surrounding run.
func (c *Container) Delete() {
	if err := c.runLXC(c.Stdout, c.Stderr, "delete", c.Name, "--force"); err != nil {
		fmt.Fprintf(c.Stderr, "warning: could not delete container %s: %v\n", c.Name, err)
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
