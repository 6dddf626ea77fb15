package app

import (
	"context"
	"errors"
	"strings"

	"github.com/bryan-buckman/readhubx/internal/model"
	"github.com/bryan-buckman/readhubx/internal/readhub"
	"github.com/bryan-buckman/readhubx/internal/subscription"
)

// --- Home feed ---

func (c *Controller) ensureHomeLoaded(ctx context.Context) {
	c.mu.Lock()
	empty := len(c.state.Home.Items) == 0
	c.mu.Unlock()
	if empty && len(c.subs.GetAll()) > 0 {
		c.loadHome(ctx, true)
	}
}

// loadHome runs the pagination state machine. A refresh replaces the list
// from page 1; otherwise the next page is appended.
func (c *Controller) loadHome(ctx context.Context, refresh bool) {
	all := c.subs.GetAll()
	normal, tags := subscription.Split(all)

	c.mu.Lock()
	home := &c.state.Home
	current := normal
	if home.SelectedType == FeedTag {
		current = tags
	}
	if len(current) == 0 {
		// Nothing to ask for. Invalidate anything in flight.
		c.gen[listHome]++
		home.Items = nil
		home.Error = ""
		home.PageIndex = 1
		home.HasMore = false
		home.IsLoading = false
		snap := c.state.clone()
		c.mu.Unlock()
		c.render.Render(snap)
		return
	}
	if !refresh && (home.IsLoading || !home.HasMore) {
		c.mu.Unlock()
		return
	}

	nextPage := 1
	if !refresh {
		nextPage = home.PageIndex + 1
	}
	q := readhub.TopicQuery{Page: nextPage, Size: HomePageSize}
	if home.SelectedType == FeedTag {
		q.TagIDs = subscription.JoinIDs(current)
	} else {
		q.EntityIDs = subscription.JoinIDs(current)
	}

	c.gen[listHome]++
	g := c.gen[listHome]
	home.IsLoading = true
	if refresh {
		home.Error = ""
		home.HasMore = true
	}
	snap := c.state.clone()
	c.mu.Unlock()
	c.render.Render(snap)

	page, err := c.api.ListTopics(ctx, q)
	if err != nil {
		c.logf("load topics page %d: %v", nextPage, err)
	}
	c.finish(listHome, g, func(s *State) {
		home := &s.Home
		home.IsLoading = false
		if err != nil {
			home.Error = errorMessage(err, "加载失败")
			if refresh {
				home.Items = nil
				home.PageIndex = 1
				home.HasMore = false
			}
			return
		}
		items := c.formatTopics(page.Items)
		if refresh {
			home.Items = items
		} else {
			home.Items = append(home.Items, items...)
		}
		home.PageIndex = page.PageIndex
		if home.PageIndex == 0 {
			home.PageIndex = nextPage
		}
		home.HasMore = len(items) > 0
		home.Error = ""
	})
}

func (c *Controller) formatTopics(in []model.Topic) []model.Topic {
	out := make([]model.Topic, len(in))
	for i, t := range in {
		t.FormattedPublishTime = c.format.FormatRelativeOrDate(t.PublishDate)
		out[i] = t
	}
	return out
}

// --- Search ---

func (c *Controller) search(ctx context.Context) {
	c.mu.Lock()
	q := strings.TrimSpace(c.state.Search.Query)
	c.mu.Unlock()
	if q == "" {
		return
	}

	g := c.begin(listSearch, func(s *State) {
		s.Search.IsLoading = true
		s.Search.Error = ""
		s.Search.Items = nil
	})

	results, err := c.api.Suggest(ctx, q)
	if err != nil {
		c.logf("search %q: %v", q, err)
	}
	c.finish(listSearch, g, func(s *State) {
		s.Search.IsLoading = false
		if err != nil {
			s.Search.Error = errorMessage(err, "搜索失败")
			return
		}
		s.Search.Items = results
	})
}

// --- Activities ---

func (c *Controller) ensureActivityLoaded(ctx context.Context) {
	c.mu.Lock()
	empty := len(c.state.Activity.Items) == 0
	c.mu.Unlock()
	if empty {
		c.loadActivities(ctx)
	}
}

func (c *Controller) loadActivities(ctx context.Context) {
	g := c.begin(listActivity, func(s *State) {
		s.Activity.IsLoading = true
		s.Activity.Error = ""
	})

	items, err := c.api.Activities(ctx)
	if err != nil {
		c.logf("load activities: %v", err)
	}
	c.finish(listActivity, g, func(s *State) {
		s.Activity.IsLoading = false
		if err != nil {
			s.Activity.Error = errorMessage(err, "加载失败")
			return
		}
		for i := range items {
			items[i].FormattedStartTime = c.format.FormatDate(items[i].StartAt)
			items[i].FormattedNotifyTime = c.format.FormatDate(items[i].NotifyAt)
		}
		s.Activity.Items = items
	})
}

// --- Topic detail ---

// loadDetail fetches the topic, then always follows with the timeline for
// the same uid, whether or not the topic loaded.
func (c *Controller) loadDetail(ctx context.Context) {
	c.mu.Lock()
	uid := c.state.CurrentTopicUID
	c.mu.Unlock()
	if uid == "" {
		return
	}

	g := c.begin(listDetail, func(s *State) {
		s.Detail.IsLoadingDetail = true
		s.Detail.DetailError = ""
	})

	topic, err := c.api.TopicDetail(ctx, uid)
	if err != nil {
		c.logf("load topic %s: %v", uid, err)
	}
	current := c.finish(listDetail, g, func(s *State) {
		d := &s.Detail
		d.IsLoadingDetail = false
		switch {
		case errors.Is(err, readhub.ErrTopicNotFound):
			d.DetailError = readhub.ErrTopicNotFound.Error()
			d.Topic = nil
			d.News = nil
		case err != nil:
			d.DetailError = errorMessage(err, "加载失败")
		default:
			t := *topic
			t.FormattedPublishTime = c.format.FormatRelativeOrDate(t.PublishDate)
			news := make([]model.NewsArticle, len(t.NewsAggList))
			for i, n := range t.NewsAggList {
				n.Normalize()
				if n.PublishDate != "" {
					n.FormattedPublishTime = c.format.FormatRelativeOrDate(n.PublishDate)
				}
				news[i] = n
			}
			d.Topic = &t
			d.News = news
			d.DetailError = ""
		}
	})
	if !current {
		return
	}
	c.loadTimeline(ctx, uid)
}

func (c *Controller) loadTimeline(ctx context.Context, uid string) {
	if uid == "" {
		return
	}

	g := c.begin(listTimeline, func(s *State) {
		s.Detail.Timeline.IsLoading = true
		s.Detail.Timeline.Error = ""
	})

	tl, err := c.api.Timeline(ctx, uid, TimelinePageSize)
	if err != nil {
		c.logf("load timeline %s: %v", uid, err)
	}
	c.finish(listTimeline, g, func(s *State) {
		d := &s.Detail
		d.Timeline.IsLoading = false
		if err != nil {
			d.Timeline.Error = errorMessage(err, "时间线加载失败")
			return
		}
		items := make([]model.TimelineItem, len(tl.Items))
		for i, it := range tl.Items {
			it.FormattedShortDate = c.format.FormatDate(it.When())
			items[i] = it
		}
		d.Timeline.Items = items
		d.Timeline.HasMore = false
		d.TimelineTitle = tl.Title
	})
}
