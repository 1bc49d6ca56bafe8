package app

import (
	"context"
	"fmt"

	"github.com/philroche/lpshipit/internal/picker"
	"github.com/philroche/lpshipit/internal/proposal"
)

type MessageOptions struct {
	Owner string
	// ApprovalsOnly credits only approving reviewers in the message.
	ApprovalsOnly bool
}

// RunMessage prints the standard merge commit message for one chosen
// proposal without touching any repository.
func (a *App) RunMessage(ctx context.Context, opts MessageOptions) (int, error) {
	summaries, code, err := a.fetchSummaries(ctx, opts.Owner, proposal.Options{ApprovalsOnly: opts.ApprovalsOnly})
	if err != nil || code != 0 {
		return code, err
	}

	options := make([]string, len(summaries))
	for i, s := range summaries {
		options[i] = s.Display()
	}
	idx, ok, err := a.Choose(picker.Prompt{
		Title:   "Which merge proposal do you want the commit message for?",
		Options: options,
	})
	if err != nil {
		return 2, err
	}
	if !ok {
		fmt.Fprintln(a.Stdout, "Cancelled.")
		return 0, nil
	}

	chosen := summaries[idx]
	fmt.Fprintf(a.Stdout, "%s\n", proposal.BuildCommitMessage(chosen, chosen.SourceBranch, chosen.TargetBranch))
	return 0, nil
}
