package proposal

import (
	"fmt"
	"strings"
)

// BuildCommitMessage renders the standard merge commit message for a summary.
// Fields are inserted verbatim, including any newlines in the message body.
func BuildCommitMessage(s Summary, sourceBranch, targetBranch string) string {
	return fmt.Sprintf("Merge %s into %s [a=%s] [r=%s]\n\n%s\n\nMP: %s",
		sourceBranch, targetBranch, s.Author, strings.Join(s.Reviewers, ","), s.CommitMessage, s.WebLink)
}
