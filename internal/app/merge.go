package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/philroche/lpshipit/internal/picker"
	"github.com/philroche/lpshipit/internal/proposal"
)

type MergeOptions struct {
	Directory    string
	SourceBranch string
	TargetBranch string
	Owner        string
}

// mergeState enumerates the cascading picker states of the merge flow. Each
// state is visited at most once per run.
type mergeState int

const (
	choosingProposal mergeState = iota
	choosingSourceBranch
	choosingTargetBranch
	confirmed
	rejected
	cancelled
)

// RunMerge drives proposal selection, branch selection, and the local no-ff
// merge. The returned int is the process exit code.
func (a *App) RunMerge(ctx context.Context, opts MergeOptions) (int, error) {
	directory := opts.Directory
	if directory == "" {
		cwd, err := a.Getwd()
		if err != nil {
			return 2, err
		}
		directory = cwd
	}
	if !a.Git.IsGitRepo(directory) {
		return 2, fmt.Errorf("%s is not a git repository", directory)
	}
	a.logf("working in %s", directory)

	summaries, code, err := a.fetchSummaries(ctx, opts.Owner, proposal.Options{GitOnly: true})
	if err != nil || code != 0 {
		return code, err
	}

	branches, err := a.Git.LocalBranches(directory)
	if err != nil {
		return 2, fmt.Errorf("list local branches: %w", err)
	}
	checkedOut := a.Git.CurrentBranch(directory)

	var (
		chosen         proposal.Summary
		source, target string
	)
	state := choosingProposal
	for {
		switch state {
		case choosingProposal:
			options := make([]string, len(summaries))
			for i, s := range summaries {
				options[i] = s.Display()
			}
			idx, ok, err := a.Choose(picker.Prompt{
				Title:   "Which merge proposal do you want to merge?",
				Options: options,
			})
			if err != nil {
				return 2, err
			}
			if !ok {
				state = cancelled
				continue
			}
			chosen = summaries[idx]
			state = choosingSourceBranch

		case choosingSourceBranch:
			if opts.SourceBranch != "" {
				source = opts.SourceBranch
				state = choosingTargetBranch
				continue
			}
			defaultIdx := branchIndex(branches, chosen.SourceBranch)
			if defaultIdx < 0 {
				defaultIdx = branchIndex(branches, checkedOut)
			}
			if defaultIdx < 0 {
				defaultIdx = 0
			}
			idx, ok, err := a.Choose(picker.Prompt{
				Title:        "Which local branch holds the source changes?",
				Options:      branches,
				DefaultIndex: defaultIdx,
			})
			if err != nil {
				return 2, err
			}
			if !ok {
				state = cancelled
				continue
			}
			source = branches[idx]
			state = choosingTargetBranch

		case choosingTargetBranch:
			if opts.TargetBranch != "" {
				target = opts.TargetBranch
			} else {
				defaultIdx := branchIndex(branches, chosen.TargetBranch)
				if defaultIdx < 0 {
					defaultIdx = 0
				}
				idx, ok, err := a.Choose(picker.Prompt{
					Title:        "Which local branch should the changes merge into?",
					Options:      branches,
					DefaultIndex: defaultIdx,
				})
				if err != nil {
					return 2, err
				}
				if !ok {
					state = cancelled
					continue
				}
				target = branches[idx]
			}
			if source == target {
				state = rejected
			} else {
				state = confirmed
			}

		case confirmed:
			message := proposal.BuildCommitMessage(chosen, source, target)
			a.logf("checking out %s", target)
			if err := a.Git.Checkout(directory, target); err != nil {
				return 2, err
			}
			a.logf("merging %s into %s", source, target)
			if err := a.Git.MergeNoFF(directory, source, message); err != nil {
				return 2, err
			}
			fmt.Fprintf(a.Stdout, "%s has been merged in to %s\n", source, target)
			fmt.Fprintln(a.Stdout, "Changes have _NOT_ been pushed")
			return 0, nil

		case rejected:
			fmt.Fprintf(a.Stderr, "Source branch and target branch are both %q. No merge performed.\n", source)
			return 1, nil

		case cancelled:
			fmt.Fprintln(a.Stdout, "Cancelled. No merge performed.")
			return 0, nil
		}
	}
}

// fetchSummaries fetches the owner's open proposals and summarizes them.
// A non-zero code means the run should stop with that exit status.
func (a *App) fetchSummaries(ctx context.Context, owner string, opts proposal.Options) ([]proposal.Summary, int, error) {
	owner, err := a.resolveOwner(ctx, owner)
	if err != nil {
		return nil, 2, err
	}
	fmt.Fprintln(a.Stdout, "Retrieving Merge Proposals from Launchpad...")
	mps, err := a.Reviews.MergeProposals(ctx, owner, a.Config.Statuses)
	if err != nil {
		return nil, 2, err
	}
	a.logf("launchpad returned %d merge proposals for %s", len(mps), owner)
	summaries, warnings := proposal.Summarize(mps, opts)
	for _, w := range warnings {
		fmt.Fprintf(a.Stderr, "warning: skipping %v\n", w)
	}
	if len(summaries) == 0 {
		fmt.Fprintf(a.Stdout, "You have no Merge Proposals in any of the %s states\n", quoteStatuses(a.Config.Statuses))
		return nil, 1, nil
	}
	a.logf("summarized %d proposals", len(summaries))
	return summaries, 0, nil
}

func quoteStatuses(statuses []string) string {
	quoted := make([]string, len(statuses))
	for i, s := range statuses {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, " or ")
}

func branchIndex(branches []string, name string) int {
	if name == "" {
		return -1
	}
	for i, b := range branches {
		if b == name {
			return i
		}
	}
	return -1
}
