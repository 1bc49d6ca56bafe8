package launchpad

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultAPIRoot is the production Launchpad web service root.
const DefaultAPIRoot = "https://api.launchpad.net/devel"

// Client talks to the Launchpad REST API. All requests are signed with the
// stored OAuth credentials. The client follows collection pagination and
// resolves the entry links (registrant, repositories, votes) needed to build
// complete MergeProposal records.
type Client struct {
	APIRoot     string
	Credentials Credentials
	HTTPClient  *http.Client
	Now         func() time.Time

	resourceCache map[string]map[string]any
}

func NewClient(apiRoot string, creds Credentials) *Client {
	if strings.TrimSpace(apiRoot) == "" {
		apiRoot = DefaultAPIRoot
	}
	return &Client{
		APIRoot:     strings.TrimRight(apiRoot, "/"),
		Credentials: creds,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		Now:         time.Now,
	}
}

// Me returns the short name of the authenticated user.
func (c *Client) Me(ctx context.Context) (string, error) {
	res, err := c.getJSON(ctx, c.APIRoot+"/people/+me")
	if err != nil {
		return "", fmt.Errorf("resolve authenticated user: %w", err)
	}
	name, _ := res["name"].(string)
	if name == "" {
		return "", fmt.Errorf("authenticated user record has no name")
	}
	return name, nil
}

// MergeProposals fetches all of owner's merge proposals in the given statuses.
func (c *Client) MergeProposals(ctx context.Context, owner string, statuses []string) ([]MergeProposal, error) {
	q := url.Values{}
	q.Set("ws.op", "getMergeProposals")
	for _, status := range statuses {
		q.Add("status", status)
	}
	next := fmt.Sprintf("%s/~%s?%s", c.APIRoot, url.PathEscape(owner), q.Encode())

	var out []MergeProposal
	for next != "" {
		page, err := c.getJSON(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("fetch merge proposals for %s: %w", owner, err)
		}
		entries, _ := page["entries"].([]any)
		for _, raw := range entries {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			mp, err := c.buildProposal(ctx, entry)
			if err != nil {
				return nil, err
			}
			out = append(out, mp)
		}
		next, _ = page["next_collection_link"].(string)
	}
	return out, nil
}

func (c *Client) buildProposal(ctx context.Context, entry map[string]any) (MergeProposal, error) {
	mp := MergeProposal{
		Description:   stringField(entry, "description"),
		CommitMessage: stringField(entry, "commit_message"),
		WebLink:       stringField(entry, "web_link"),
		SourceGitPath: stringField(entry, "source_git_path"),
		TargetGitPath: stringField(entry, "target_git_path"),
	}
	if created := stringField(entry, "date_created"); created != "" {
		ts, err := parseAPITime(created)
		if err != nil {
			return MergeProposal{}, fmt.Errorf("parse date_created %q: %w", created, err)
		}
		mp.DateCreated = ts
	}

	if link := stringField(entry, "registrant_link"); link != "" {
		registrant, err := c.resource(ctx, link)
		if err != nil {
			return MergeProposal{}, fmt.Errorf("resolve registrant: %w", err)
		}
		mp.Registrant = &Person{Name: stringField(registrant, "name")}
	}

	if link := stringField(entry, "source_git_repository_link"); link != "" {
		name, err := c.displayName(ctx, link)
		if err != nil {
			return MergeProposal{}, err
		}
		mp.SourceGitRepo = name
		if link := stringField(entry, "target_git_repository_link"); link != "" {
			if mp.TargetGitRepo, err = c.displayName(ctx, link); err != nil {
				return MergeProposal{}, err
			}
		}
	} else {
		if link := stringField(entry, "source_branch_link"); link != "" {
			name, err := c.displayName(ctx, link)
			if err != nil {
				return MergeProposal{}, err
			}
			mp.SourceBranchName = name
		}
		if link := stringField(entry, "target_branch_link"); link != "" {
			name, err := c.displayName(ctx, link)
			if err != nil {
				return MergeProposal{}, err
			}
			mp.TargetBranchName = name
		}
	}

	if link := stringField(entry, "votes_collection_link"); link != "" {
		votes, err := c.votes(ctx, link)
		if err != nil {
			return MergeProposal{}, fmt.Errorf("resolve votes for %s: %w", mp.WebLink, err)
		}
		mp.Votes = votes
	}
	return mp, nil
}

func (c *Client) votes(ctx context.Context, link string) ([]Vote, error) {
	var out []Vote
	for link != "" {
		page, err := c.getJSON(ctx, link)
		if err != nil {
			return nil, err
		}
		entries, _ := page["entries"].([]any)
		for _, raw := range entries {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			vote := Vote{IsPending: boolField(entry, "is_pending")}
			if reviewerLink := stringField(entry, "reviewer_link"); reviewerLink != "" {
				reviewer, err := c.resource(ctx, reviewerLink)
				if err != nil {
					return nil, err
				}
				vote.Reviewer = Person{Name: stringField(reviewer, "name")}
			}
			if !vote.IsPending {
				if commentLink := stringField(entry, "comment_link"); commentLink != "" {
					comment, err := c.resource(ctx, commentLink)
					if err != nil {
						return nil, err
					}
					vote.Value = stringField(comment, "vote")
				}
			}
			out = append(out, vote)
		}
		link, _ = page["next_collection_link"].(string)
	}
	return out, nil
}

func (c *Client) displayName(ctx context.Context, link string) (string, error) {
	res, err := c.resource(ctx, link)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", link, err)
	}
	if name := stringField(res, "display_name"); name != "" {
		return name, nil
	}
	return stringField(res, "name"), nil
}

// resource fetches a linked API object, memoizing per client so reviewers and
// repositories shared across proposals are fetched once per run.
func (c *Client) resource(ctx context.Context, link string) (map[string]any, error) {
	if cached, ok := c.resourceCache[link]; ok {
		return cached, nil
	}
	res, err := c.getJSON(ctx, link)
	if err != nil {
		return nil, err
	}
	if c.resourceCache == nil {
		c.resourceCache = map[string]map[string]any{}
	}
	c.resourceCache[link] = res
	return res, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.Credentials.AuthorizationHeader(uuid.NewString(), c.Now().Unix()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("launchpad rejected the stored credentials (HTTP 401)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d: %s", rawURL, resp.StatusCode, firstLine(body))
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("GET %s: decode response: %w", rawURL, err)
	}
	return out, nil
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func parseAPITime(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err == nil {
		return ts, nil
	}
	// Launchpad omits the offset on some historical records.
	return time.Parse("2006-01-02T15:04:05.999999", v)
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
