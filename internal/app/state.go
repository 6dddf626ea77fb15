// Package app holds the client's UI state and the controller that drives
// fetch-then-render cycles for the home feed, search, activity, and topic
// detail pages.
package app

import (
	"slices"

	"github.com/bryan-buckman/readhubx/internal/model"
)

// Tab is the page currently shown.
type Tab string

const (
	TabHome        Tab = "home"
	TabSearch      Tab = "search"
	TabActivity    Tab = "activity"
	TabTopicDetail Tab = "topicDetail"
)

// Title returns the header title for the tab.
func (t Tab) Title() string {
	switch t {
	case TabHome:
		return "订阅内容"
	case TabSearch:
		return "搜索"
	case TabActivity:
		return "活动"
	case TabTopicDetail:
		return "话题详情"
	}
	return "ReadHubX"
}

// FeedType selects which subscriptions drive the home feed.
type FeedType string

const (
	FeedNormal FeedType = "normal" // companies, products, people
	FeedTag    FeedType = "tag"
)

// PageState is the loading state of one list.
type PageState[T any] struct {
	Items     []T
	PageIndex int
	HasMore   bool
	IsLoading bool
	Error     string
}

func (p PageState[T]) clone() PageState[T] {
	p.Items = slices.Clone(p.Items)
	return p
}

// HomeState is the subscription-driven topic feed.
type HomeState struct {
	SelectedType FeedType
	PageState[model.Topic]
}

// SearchState holds entity suggestions for Query.
type SearchState struct {
	Query             string
	ShowSubscriptions bool
	PageState[model.Subscription]
}

// ActivityState lists online events.
type ActivityState struct {
	PageState[model.Activity]
}

// DetailState is the topic detail page. The topic and the timeline load in
// sequence and keep separate loading and error fields.
type DetailState struct {
	Topic           *model.Topic
	News            []model.NewsArticle
	IsLoadingDetail bool
	DetailError     string

	TimelineTitle string
	Timeline      PageState[model.TimelineItem]
}

// State is everything a renderer needs.
type State struct {
	CurrentTab      Tab
	CurrentTopicUID string

	Home     HomeState
	Search   SearchState
	Activity ActivityState
	Detail   DetailState
}

// NewState returns the initial state.
func NewState() State {
	return State{
		CurrentTab: TabHome,
		Home: HomeState{
			SelectedType: FeedNormal,
			PageState:    PageState[model.Topic]{PageIndex: 1, HasMore: true},
		},
		Search:   SearchState{PageState: PageState[model.Subscription]{PageIndex: 1}},
		Activity: ActivityState{PageState: PageState[model.Activity]{PageIndex: 1}},
		Detail:   DetailState{Timeline: PageState[model.TimelineItem]{PageIndex: 1}},
	}
}

func (s State) clone() State {
	s.Home.PageState = s.Home.PageState.clone()
	s.Search.PageState = s.Search.PageState.clone()
	s.Activity.PageState = s.Activity.PageState.clone()
	s.Detail.Timeline = s.Detail.Timeline.clone()
	s.Detail.News = slices.Clone(s.Detail.News)
	if s.Detail.Topic != nil {
		t := *s.Detail.Topic
		s.Detail.Topic = &t
	}
	return s
}
