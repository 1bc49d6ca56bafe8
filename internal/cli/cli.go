// Package cli wires the three lpshipit entry points to the flows in
// internal/app.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/philroche/lpshipit/internal/app"
	"github.com/philroche/lpshipit/internal/launchpad"
	"github.com/philroche/lpshipit/internal/state"
)

type appRunner interface {
	SetVerbose(verbose bool)
	RunMerge(ctx context.Context, opts app.MergeOptions) (int, error)
	RunMessage(ctx context.Context, opts app.MessageOptions) (int, error)
	RunTest(ctx context.Context, opts app.TestOptions) (int, error)
}

type runDeps struct {
	userHomeDir func() (string, error)
	newApp      func(paths state.Paths, cfg state.Config, creds launchpad.Credentials, stdout io.Writer, stderr io.Writer) appRunner
}

type runtimeState struct {
	stdout io.Writer
	stderr io.Writer
	debug  bool

	deps runDeps
	app  appRunner
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		if code == 0 {
			return nil
		}
		return &exitError{code: code}
	}
	if code == 0 {
		code = 2
	}
	return &exitError{code: code, err: err}
}

func defaultRunDeps() runDeps {
	return runDeps{
		userHomeDir: os.UserHomeDir,
		newApp: func(paths state.Paths, cfg state.Config, creds launchpad.Credentials, stdout io.Writer, stderr io.Writer) appRunner {
			a := app.New(paths, cfg, stdout, stderr)
			a.Reviews = launchpad.NewClient(cfg.APIRoot, creds)
			return a
		},
	}
}

func (r *runtimeState) appRunner() (appRunner, error) {
	if r.app != nil {
		r.app.SetVerbose(r.debug)
		return r.app, nil
	}

	home, err := r.deps.userHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home: %w", err)
	}
	paths := state.NewPaths(home)
	cfg, err := state.LoadConfig(paths)
	if err != nil {
		return nil, err
	}
	creds, err := launchpad.LoadCredentials(paths.CredentialsPath())
	if errors.Is(err, launchpad.ErrNoCredentials) {
		return nil, fmt.Errorf("no launchpad credentials at %s; save your OAuth token there as access_token/token_secret", paths.CredentialsPath())
	}
	if err != nil {
		return nil, err
	}

	a := r.deps.newApp(paths, cfg, creds, r.stdout, r.stderr)
	a.SetVerbose(r.debug)
	r.app = a
	return r.app, nil
}

func run(cmd *cobra.Command, args []string, stdout io.Writer, stderr io.Writer) int {
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var codedErr *exitError
	if errors.As(err, &codedErr) {
		if codedErr.err != nil {
			fmt.Fprintln(stderr, codedErr.err)
		}
		if codedErr.code == 0 {
			return 2
		}
		return codedErr.code
	}

	fmt.Fprintln(stderr, err)
	return 2
}

func newRuntime(stdout io.Writer, stderr io.Writer, deps runDeps) *runtimeState {
	return &runtimeState{stdout: stdout, stderr: stderr, deps: deps}
}

// RunShipit is the lpshipit entry point.
func RunShipit(args []string, stdout io.Writer, stderr io.Writer) int {
	runtime := newRuntime(stdout, stderr, defaultRunDeps())
	return run(newShipitCommand(runtime), args, stdout, stderr)
}

// RunMessage is the lpmpmessage entry point.
func RunMessage(args []string, stdout io.Writer, stderr io.Writer) int {
	runtime := newRuntime(stdout, stderr, defaultRunDeps())
	return run(newMessageCommand(runtime), args, stdout, stderr)
}

// RunTest is the lpmptest entry point.
func RunTest(args []string, stdout io.Writer, stderr io.Writer) int {
	runtime := newRuntime(stdout, stderr, defaultRunDeps())
	return run(newTestCommand(runtime), args, stdout, stderr)
}

func newShipitCommand(runtime *runtimeState) *cobra.Command {
	var (
		directory    string
		sourceBranch string
		targetBranch string
		mpOwner      string
	)

	cmd := &cobra.Command{
		Use:           "lpshipit",
		Short:         "Merge a Launchpad merge proposal into a local branch.",
		Long:          "lpshipit lists your open merge proposals, walks you through picking source and target branches, and performs a no-fast-forward merge with a standardized commit message. Nothing is pushed.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			code, err := runner.RunMerge(context.Background(), app.MergeOptions{
				Directory:    directory,
				SourceBranch: sourceBranch,
				TargetBranch: targetBranch,
				Owner:        mpOwner,
			})
			return withExitCode(code, err)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withExitCode(2, err)
	})
	cmd.Flags().StringVar(&directory, "directory", "", "Git repository to merge in (defaults to the current directory).")
	cmd.Flags().StringVar(&sourceBranch, "source-branch", "", "Local source branch, skipping the source picker.")
	cmd.Flags().StringVar(&targetBranch, "target-branch", "", "Local target branch, skipping the target picker.")
	cmd.Flags().StringVar(&mpOwner, "mp-owner", "", "List proposals for this Launchpad user instead of yourself.")
	cmd.PersistentFlags().BoolVar(&runtime.debug, "debug", false, "Print progress detail to stderr.")

	return cmd
}

func newMessageCommand(runtime *runtimeState) *cobra.Command {
	var (
		mpOwner      string
		approvedOnly bool
	)

	cmd := &cobra.Command{
		Use:           "lpmpmessage",
		Short:         "Print the standardized commit message for a merge proposal.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			code, err := runner.RunMessage(context.Background(), app.MessageOptions{
				Owner:         mpOwner,
				ApprovalsOnly: approvedOnly,
			})
			return withExitCode(code, err)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withExitCode(2, err)
	})
	cmd.Flags().StringVar(&mpOwner, "mp-owner", "", "List proposals for this Launchpad user instead of yourself.")
	cmd.Flags().BoolVar(&approvedOnly, "approved-only", false, "Credit only reviewers whose vote was an approval.")
	cmd.PersistentFlags().BoolVar(&runtime.debug, "debug", false, "Print progress detail to stderr.")

	return cmd
}

func newTestCommand(runtime *runtimeState) *cobra.Command {
	var (
		mpOwner     string
		environment string
		testCommand string
	)

	cmd := &cobra.Command{
		Use:           "lpmptest",
		Short:         "Run the test suite against a merge proposal's source branch.",
		Long:          "lpmptest clones the chosen proposal's source branch into a temporary workspace and runs the test command there, locally or inside a throwaway LXD container.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			code, err := runner.RunTest(context.Background(), app.TestOptions{
				Owner:       mpOwner,
				Environment: environment,
				Command:     testCommand,
			})
			return withExitCode(code, err)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withExitCode(2, err)
	})
	cmd.Flags().StringVar(&mpOwner, "mp-owner", "", "List proposals for this Launchpad user instead of yourself.")
	cmd.Flags().StringVar(&environment, "environment", "", "LXD image to run tests in (for example ubuntu:jammy); bare --environment uses the configured container_image, omitting the flag runs locally.")
	cmd.Flags().Lookup("environment").NoOptDefVal = app.DefaultEnvironment
	cmd.Flags().StringVar(&testCommand, "test-command", "", "Test command override (defaults to the configured one).")
	cmd.PersistentFlags().BoolVar(&runtime.debug, "debug", false, "Print progress detail to stderr.")

	return cmd
}
