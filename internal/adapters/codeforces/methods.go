package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/cfpulse/internal/domain/model"
)

// Upstream method names.
const (
	MethodUserInfo           = "user.info"
	MethodUserStatus         = "user.status"
	MethodUserRating         = "user.rating"
	MethodUserBlogEntries    = "user.blogEntries"
	MethodContestList        = "contest.list"
	MethodContestStandings   = "contest.standings"
	MethodProblemsetProblems = "problemset.problems"
	MethodRecentStatus       = "problemset.recentStatus"
)

// Defaults for paging parameters.
const (
	DefaultStatusFrom     = 1
	DefaultStatusCount    = 10_000
	DefaultStandingsFrom  = 1
	DefaultStandingsCount = 100
	DefaultRecentCount    = 50
)

var emptyObject = json.RawMessage("{}")

// UserInfo returns the profile of handle, or {} when the upstream returns none.
func (c *Client) UserInfo(ctx context.Context, handle string) (json.RawMessage, error) {
	handle, err := checkHandle(handle)
	if err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, MethodUserInfo, url.Values{"handles": {handle}})
	if err != nil {
		return nil, err
	}
	var users []json.RawMessage
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, &UnavailableError{Method: MethodUserInfo, Err: fmt.Errorf("decode result: %w", err)}
	}
	if len(users) == 0 {
		return emptyObject, nil
	}
	return users[0], nil
}

// UserStatus returns up to count submissions of handle starting at from
// (1-based, most recent first).
func (c *Client) UserStatus(ctx context.Context, handle string, from, count int) ([]model.Submission, error) {
	handle, err := checkHandle(handle)
	if err != nil {
		return nil, err
	}
	if from < 1 || count < 1 {
		return nil, fmt.Errorf("%w: from and count must be positive", ErrInvalidArgument)
	}
	raw, err := c.call(ctx, MethodUserStatus, url.Values{
		"handle": {handle},
		"from":   {strconv.Itoa(from)},
		"count":  {strconv.Itoa(count)},
	})
	if err != nil {
		return nil, err
	}
	var subs []model.Submission
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, &UnavailableError{Method: MethodUserStatus, Err: fmt.Errorf("decode result: %w", err)}
	}
	return subs, nil
}

// UserRating returns the rating history of handle.
func (c *Client) UserRating(ctx context.Context, handle string) (json.RawMessage, error) {
	handle, err := checkHandle(handle)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, MethodUserRating, url.Values{"handle": {handle}})
}

// UserBlogEntries returns the blog entries authored by handle.
func (c *Client) UserBlogEntries(ctx context.Context, handle string) (json.RawMessage, error) {
	handle, err := checkHandle(handle)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, MethodUserBlogEntries, url.Values{"handle": {handle}})
}

// ContestList returns all contests, or gym contests when gym is set.
func (c *Client) ContestList(ctx context.Context, gym bool) (json.RawMessage, error) {
	return c.call(ctx, MethodContestList, url.Values{"gym": {strconv.FormatBool(gym)}})
}

// ContestStandings returns the standings page of contestID.
func (c *Client) ContestStandings(ctx context.Context, contestID, from, count int) (json.RawMessage, error) {
	if contestID <= 0 {
		return nil, fmt.Errorf("%w: contest id must be positive", ErrInvalidArgument)
	}
	if from < 1 || count < 1 {
		return nil, fmt.Errorf("%w: from and count must be positive", ErrInvalidArgument)
	}
	return c.call(ctx, MethodContestStandings, url.Values{
		"contestId": {strconv.Itoa(contestID)},
		"from":      {strconv.Itoa(from)},
		"count":     {strconv.Itoa(count)},
	})
}

// ProblemsetProblems returns the problemset filtered by tags. Tags are sent
// in the given order; no tags means the whole problemset.
func (c *Client) ProblemsetProblems(ctx context.Context, tags []string) (json.RawMessage, error) {
	params := url.Values{}
	kept := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) > 0 {
		params.Set("tags", strings.Join(kept, ";"))
	}
	return c.call(ctx, MethodProblemsetProblems, params)
}

// RecentStatus returns the count most recent submissions on the platform.
func (c *Client) RecentStatus(ctx context.Context, count int) (json.RawMessage, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidArgument)
	}
	return c.call(ctx, MethodRecentStatus, url.Values{"count": {strconv.Itoa(count)}})
}

func checkHandle(handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", fmt.Errorf("%w: handle must not be empty", ErrInvalidArgument)
	}
	return handle, nil
}
