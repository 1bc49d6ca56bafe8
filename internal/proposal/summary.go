// Package proposal normalizes raw Launchpad merge proposals into the uniform
// summary records the interactive flows display and act on.
package proposal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/philroche/lpshipit/internal/launchpad"
)

// ErrMalformedProposal marks a fetched record missing the fields a summary
// needs. Callers skip the record and keep the rest of the batch.
var ErrMalformedProposal = errors.New("malformed merge proposal")

// Summary is the read-only view of one merge proposal used for picker labels,
// commit messages, and test runs.
type Summary struct {
	Author             string
	CommitMessage      string
	ShortCommitMessage string
	Reviewers          []string
	ApprovalCount      int
	WebLink            string
	SourceRepo         string
	TargetRepo         string
	SourceBranch       string
	TargetBranch       string
	DateCreated        time.Time
}

// Options controls filtering during summarization.
type Options struct {
	// ApprovalsOnly restricts Reviewers to voters whose vote was an
	// approval. ApprovalCount counts approvals either way.
	ApprovalsOnly bool
	// GitOnly silently drops proposals that are not backed by a git
	// repository. The merge and test flows cannot act on bzr proposals.
	GitOnly bool
}

// Summarize builds summaries for each proposal, newest first. Malformed
// records are dropped and reported in the returned warning list rather than
// failing the batch.
func Summarize(mps []launchpad.MergeProposal, opts Options) ([]Summary, []error) {
	var (
		out      []Summary
		warnings []error
	)
	for _, mp := range mps {
		if opts.GitOnly && !mp.GitBacked() {
			continue
		}
		s, err := summarizeOne(mp, opts)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateCreated.After(out[j].DateCreated)
	})
	return out, warnings
}

func summarizeOne(mp launchpad.MergeProposal, opts Options) (Summary, error) {
	if mp.Registrant == nil || mp.Registrant.Name == "" {
		return Summary{}, fmt.Errorf("%w: %s has no registrant", ErrMalformedProposal, describe(mp))
	}

	s := Summary{
		Author:        mp.Registrant.Name,
		CommitMessage: mp.Description,
		WebLink:       mp.WebLink,
		DateCreated:   mp.DateCreated,
	}
	if mp.CommitMessage != "" {
		s.CommitMessage = mp.CommitMessage
	}
	if s.CommitMessage != "" {
		s.ShortCommitMessage = strings.SplitN(s.CommitMessage, "\n", 2)[0]
	}

	for _, vote := range mp.Votes {
		if vote.IsPending {
			continue
		}
		approved := vote.Value == "Approve"
		if approved {
			s.ApprovalCount++
		}
		if approved || !opts.ApprovalsOnly {
			s.Reviewers = append(s.Reviewers, vote.Reviewer.Name)
		}
	}
	sort.Strings(s.Reviewers)

	switch {
	case mp.GitBacked():
		s.SourceRepo = mp.SourceGitRepo
		s.TargetRepo = mp.TargetGitRepo
		s.SourceBranch = strings.TrimPrefix(mp.SourceGitPath, "refs/heads/")
		s.TargetBranch = strings.TrimPrefix(mp.TargetGitPath, "refs/heads/")
	case mp.SourceBranchName != "" && mp.TargetBranchName != "":
		s.SourceBranch = mp.SourceBranchName
		s.TargetBranch = mp.TargetBranchName
	default:
		return Summary{}, fmt.Errorf("%w: %s has neither git refs nor branch names", ErrMalformedProposal, describe(mp))
	}
	return s, nil
}

// Display renders the five line picker label and stdout form of the summary.
func (s Summary) Display() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", repoPrefix(s.SourceRepo), s.SourceBranch)
	fmt.Fprintf(&b, "->%s%s\n", repoPrefix(s.TargetRepo), s.TargetBranch)
	fmt.Fprintf(&b, "    %s\n", s.ShortCommitMessage)
	fmt.Fprintf(&b, "    %d approvals (%s)\n", s.ApprovalCount, strings.Join(s.Reviewers, ","))
	fmt.Fprintf(&b, "    %s - %s", s.DateCreated.Format("2006-01-02 15:04:05"), s.WebLink)
	return b.String()
}

func repoPrefix(repo string) string {
	if repo == "" {
		return ""
	}
	return repo + "/"
}

func describe(mp launchpad.MergeProposal) string {
	if mp.WebLink != "" {
		return mp.WebLink
	}
	return "proposal"
}
