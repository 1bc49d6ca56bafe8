package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/philroche/lpshipit/internal/gitx"
	"github.com/philroche/lpshipit/internal/launchpad"
	"github.com/philroche/lpshipit/internal/picker"
	"github.com/philroche/lpshipit/internal/state"
)

// ReviewClient is the slice of the Launchpad API the flows consume.
type ReviewClient interface {
	Me(ctx context.Context) (string, error)
	MergeProposals(ctx context.Context, owner string, statuses []string) ([]launchpad.MergeProposal, error)
}

type App struct {
	Paths   state.Paths
	Config  state.Config
	Stdout  io.Writer
	Stderr  io.Writer
	Verbose bool
	Getwd   func() (string, error)
	Git     gitx.Runner

	Reviews ReviewClient
	Choose  picker.ChooseFunc

	// runLocalCommand and runContainerCommand are swapped out in tests.
	runLocalCommand     func(workdir, command string) (int, error)
	runContainerCommand func(image, workspace, command string) (int, error)
}

func New(paths state.Paths, cfg state.Config, stdout io.Writer, stderr io.Writer) *App {
	a := &App{
		Paths:  paths,
		Config: cfg,
		Stdout: stdout,
		Stderr: stderr,
		Getwd:  os.Getwd,
		Git:    gitx.Runner{},
		Choose: picker.Choose,
	}
	a.runLocalCommand = a.execLocalCommand
	a.runContainerCommand = a.execContainerCommand
	return a
}

func (a *App) SetVerbose(verbose bool) {
	a.Verbose = verbose
}

func (a *App) logf(format string, args ...any) {
	if !a.Verbose {
		return
	}
	fmt.Fprintf(a.Stderr, "lpshipit: "+format+"\n", args...)
}

// resolveOwner falls back to the authenticated user when no owner override was
// given.
func (a *App) resolveOwner(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	a.logf("resolving authenticated launchpad user")
	owner, err := a.Reviews.Me(ctx)
	if err != nil {
		return "", err
	}
	a.logf("authenticated as %s", owner)
	return owner, nil
}
