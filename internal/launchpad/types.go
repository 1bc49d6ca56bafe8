// Package launchpad is a minimal read-only client for the Launchpad code
// review API, covering the slice of it the lpshipit tools consume: the
// authenticated user and a person's merge proposals with their votes.
package launchpad

import "time"

// Person identifies a Launchpad account by its short name.
type Person struct {
	Name string
}

// Vote is one reviewer's review slot on a merge proposal. A pending vote has
// been requested but not cast; a cast vote carries a value such as "Approve"
// or "Needs Fixing".
type Vote struct {
	Reviewer  Person
	IsPending bool
	Value     string
}

// MergeProposal is the raw review record as fetched from the API. Exactly one
// of the two location shapes is populated: git-backed proposals carry
// repository display names plus refs/heads/... ref paths, while legacy
// branch-backed proposals carry plain branch display names and no repository
// names.
type MergeProposal struct {
	Registrant    *Person
	Description   string
	CommitMessage string
	Votes         []Vote
	WebLink       string
	DateCreated   time.Time

	SourceGitRepo string
	TargetGitRepo string
	SourceGitPath string
	TargetGitPath string

	SourceBranchName string
	TargetBranchName string
}

// GitBacked reports whether the proposal targets a git repository pair.
func (mp MergeProposal) GitBacked() bool {
	return mp.SourceGitRepo != ""
}
