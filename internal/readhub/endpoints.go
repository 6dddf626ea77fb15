package readhub

import (
	"context"
	"errors"

	"github.com/bryan-buckman/readhubx/internal/model"
)

// Upstream paths.
const (
	PathTopicList    = "/topic/list_pro"
	PathTopicDetail  = "/topic/detail"
	PathTimeline     = "/topic/timeline/list"
	PathSuggest      = "/tmt_entity/suggest"
	PathActivityList = "/activity/online/list"
)

// ErrTopicNotFound is returned by TopicDetail when the response has no items.
var ErrTopicNotFound = errors.New("未找到话题详情")

type envelope[T any] struct {
	Data T `json:"data"`
}

// TopicQuery selects a page of topics for a set of entities or tags.
// Exactly one of EntityIDs / TagIDs is expected to be set.
type TopicQuery struct {
	EntityIDs string
	TagIDs    string
	Page      int
	Size      int
}

// ListTopics fetches one page of /topic/list_pro.
func (c *Client) ListTopics(ctx context.Context, q TopicQuery) (model.TopicPage, error) {
	var resp envelope[model.TopicPage]
	err := c.Get(ctx, PathTopicList, Params{
		"entity_id": q.EntityIDs,
		"tag_id":    q.TagIDs,
		"page":      q.Page,
		"size":      q.Size,
	}, &resp)
	if err != nil {
		return model.TopicPage{}, err
	}
	return resp.Data, nil
}

// TopicDetail fetches a single topic with its related reports.
func (c *Client) TopicDetail(ctx context.Context, uid string) (*model.Topic, error) {
	var resp envelope[struct {
		Items []model.Topic `json:"items"`
	}]
	if err := c.Get(ctx, PathTopicDetail, Params{"uid": uid}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.Items) == 0 {
		return nil, ErrTopicNotFound
	}
	t := resp.Data.Items[0]
	for i := range t.NewsAggList {
		t.NewsAggList[i].Normalize()
	}
	return &t, nil
}

// Timeline fetches up to size milestones for a topic.
func (c *Client) Timeline(ctx context.Context, topicUID string, size int) (model.Timeline, error) {
	var resp envelope[*struct {
		Items []model.TimelineItem `json:"items"`
		Sel   *struct {
			Title string `json:"title"`
		} `json:"sel"`
	}]
	err := c.Get(ctx, PathTimeline, Params{"topic_uid": topicUID, "size": size}, &resp)
	if err != nil {
		return model.Timeline{}, err
	}
	var tl model.Timeline
	if resp.Data != nil {
		tl.Items = resp.Data.Items
		if resp.Data.Sel != nil {
			tl.Title = resp.Data.Sel.Title
		}
	}
	return tl, nil
}

// Suggest returns entities matching q, normalised into subscriptions.
func (c *Client) Suggest(ctx context.Context, q string) ([]model.Subscription, error) {
	var resp envelope[[]model.Suggestion]
	if err := c.Get(ctx, PathSuggest, Params{"q": q}, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Subscription, 0, len(resp.Data))
	for _, s := range resp.Data {
		out = append(out, s.Subscription())
	}
	return out, nil
}

// Activities lists online events.
func (c *Client) Activities(ctx context.Context) ([]model.Activity, error) {
	var resp envelope[[]model.Activity]
	if err := c.Get(ctx, PathActivityList, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
