package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/philroche/lpshipit/internal/lxd"
	"github.com/philroche/lpshipit/internal/picker"
	"github.com/philroche/lpshipit/internal/proposal"
)

type TestOptions struct {
	Owner string
	// Environment selects an LXD image for an isolated run. Empty means the
	// test command runs locally; DefaultEnvironment means the configured
	// container image.
	Environment string
	Command     string
}

// DefaultEnvironment requests an isolated run on the configured container
// image rather than a named one.
const DefaultEnvironment = "default"

// RunTest clones a chosen proposal's source branch into a temporary workspace
// and runs the test command against it, locally or inside a container. The
// returned int is the test command's exit status.
func (a *App) RunTest(ctx context.Context, opts TestOptions) (int, error) {
	summaries, code, err := a.fetchSummaries(ctx, opts.Owner, proposal.Options{GitOnly: true})
	if err != nil || code != 0 {
		return code, err
	}

	options := make([]string, len(summaries))
	for i, s := range summaries {
		options[i] = s.Display()
	}
	idx, ok, err := a.Choose(picker.Prompt{
		Title:   "Which merge proposal do you want to test?",
		Options: options,
	})
	if err != nil {
		return 2, err
	}
	if !ok {
		fmt.Fprintln(a.Stdout, "Cancelled. No tests run.")
		return 0, nil
	}
	chosen := summaries[idx]

	command := opts.Command
	if command == "" {
		command = a.Config.TestCommand
	}

	workspace, err := os.MkdirTemp("", "lpshipit-mptest-")
	if err != nil {
		return 2, err
	}
	defer func() {
		a.logf("removing workspace %s", workspace)
		if err := os.RemoveAll(workspace); err != nil {
			fmt.Fprintf(a.Stderr, "warning: could not remove workspace %s: %v\n", workspace, err)
		}
	}()

	workdir := filepath.Join(workspace, "workspace")
	url := cloneURL(chosen.SourceRepo)
	fmt.Fprintf(a.Stdout, "Cloning %s (branch %s) in to tmp directory %s ...\n", url, chosen.SourceBranch, workdir)
	if err := a.Git.CloneShallow(url, chosen.SourceBranch, workdir); err != nil {
		return 2, err
	}
	if sha, subject, err := a.Git.Head(workdir); err == nil {
		fmt.Fprintf(a.Stdout, "%s %s\n", sha, subject)
	}

	var exitCode int
	if opts.Environment == "" {
		fmt.Fprintf(a.Stdout, "Running `%s` in %s ...\n", command, workdir)
		exitCode, err = a.runLocalCommand(workdir, command)
	} else {
		image := opts.Environment
		if image == DefaultEnvironment {
			image = a.Config.ContainerImage
		}
		fmt.Fprintf(a.Stdout, "Running `%s` in %s lxc environment ...\n", command, image)
		exitCode, err = a.runContainerCommand(image, workdir, command)
	}
	if err != nil {
		return 2, err
	}
	fmt.Fprintf(a.Stdout, "Test command exited %d\n", exitCode)
	return exitCode, nil
}

// cloneURL maps a Launchpad git repository display name to its anonymous
// clone URL.
func cloneURL(repo string) string {
	if strings.Contains(repo, "://") {
		return repo
	}
	return "https://git.launchpad.net/" + strings.TrimPrefix(repo, "lp:")
}

func (a *App) execLocalCommand(workdir, command string) (int, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = workdir
	cmd.Stdout = a.Stdout
	cmd.Stderr = a.Stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (a *App) execContainerCommand(image, workspace, command string) (int, error) {
	exitCode := 0
	err := lxd.WithContainer(image, a.Stdout, a.Stderr, func(c *lxd.Container) error {
		if err := c.PushWorkspace(workspace); err != nil {
			return err
		}
		if err := c.PushCredentials(a.Paths.Home); err != nil {
			return err
		}
		containerDir := "/root/" + filepath.Base(workspace)
		code, err := c.Exec(containerDir, command)
		if err != nil {
			return err
		}
		exitCode = code
		return nil
	})
	if err != nil {
		return -1, err
	}
	return exitCode, nil
}
