package bridge

import (
	"context"

	"golang.org/x/sync/errgroup"

	"tjbridge/pkg/types"
)

// SetUserID assigns the app's user id and returns what the SDK stored.
func (c *Client) SetUserID(ctx context.Context, id string) (string, error) {
	var out string
	err := c.gw.Invoke(ctx, "setUserId", &out, id)
	return out, err
}

func (c *Client) GetUserID(ctx context.Context) (string, error) {
	var out string
	err := c.gw.Invoke(ctx, "getUserId", &out)
	return out, err
}

func (c *Client) SetUserLevel(ctx context.Context, level int) error {
	return c.gw.Fire(ctx, "setUserLevel", level)
}

func (c *Client) GetUserLevel(ctx context.Context) (int, error) {
	var out int
	err := c.gw.Invoke(ctx, "getUserLevel", &out)
	return out, err
}

func (c *Client) SetMaxLevel(ctx context.Context, level int) error {
	return c.gw.Fire(ctx, "setMaxLevel", level)
}

func (c *Client) GetMaxLevel(ctx context.Context) (int, error) {
	var out int
	err := c.gw.Invoke(ctx, "getMaxLevel", &out)
	return out, err
}

// SetUserSegment sends the segment's code; out-of-range codes are rejected
// before reaching the SDK.
func (c *Client) SetUserSegment(ctx context.Context, s Segment) error {
	if !s.Valid() {
		return invalid(ErrInvalidSegment, int(s))
	}
	return c.gw.Fire(ctx, "setUserSegment", int(s))
}

// GetUserSegment returns the SDK's segment code as-is; it may be outside
// the enumeration while unset.
func (c *Client) GetUserSegment(ctx context.Context) (Segment, error) {
	var out int
	err := c.gw.Invoke(ctx, "getUserSegment", &out)
	return Segment(out), err
}

func (c *Client) SetUserTags(ctx context.Context, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	return c.gw.Fire(ctx, "setUserTags", tags)
}

func (c *Client) GetUserTags(ctx context.Context) ([]string, error) {
	var out []string
	err := c.gw.Invoke(ctx, "getUserTags", &out)
	if out == nil {
		out = []string{}
	}
	return out, err
}

func (c *Client) ClearUserTags(ctx context.Context) error {
	return c.gw.Fire(ctx, "clearUserTags")
}

func (c *Client) AddUserTag(ctx context.Context, tag string) error {
	return c.gw.Fire(ctx, "addUserTag", tag)
}

func (c *Client) RemoveUserTag(ctx context.Context, tag string) error {
	return c.gw.Fire(ctx, "removeUserTag", tag)
}

// UserProfile reads every user attribute concurrently.
func (c *Client) UserProfile(ctx context.Context) (types.UserProfile, error) {
	var (
		prof types.UserProfile
		seg  Segment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { prof.UserID, err = c.GetUserID(gctx); return })
	g.Go(func() (err error) { prof.Level, err = c.GetUserLevel(gctx); return })
	g.Go(func() (err error) { prof.MaxLevel, err = c.GetMaxLevel(gctx); return })
	g.Go(func() (err error) { seg, err = c.GetUserSegment(gctx); return })
	g.Go(func() (err error) { prof.Tags, err = c.GetUserTags(gctx); return })
	if err := g.Wait(); err != nil {
		return types.UserProfile{}, err
	}
	prof.Segment = seg.String()
	return prof, nil
}
