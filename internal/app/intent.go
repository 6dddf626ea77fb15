package app

import "github.com/bryan-buckman/readhubx/internal/model"

// Intent is a user action consumed by Controller.Dispatch.
type Intent interface {
	intent()
}

// SelectTab switches page, loading the home feed or activities on first entry.
type SelectTab struct{ Tab Tab }

// SelectFeedType switches the home feed filter and refreshes from page 1.
type SelectFeedType struct{ Type FeedType }

// RefreshHome reloads the first page of the home feed.
type RefreshHome struct{}

// LoadMore appends the next page of the home feed.
type LoadMore struct{}

// SetQuery edits the search box without searching.
type SetQuery struct{ Query string }

// Search runs the current query. Also used to retry a failed search.
type Search struct{}

// ShowSubscriptions flips the search page between results and subscriptions.
type ShowSubscriptions struct{ Show bool }

// ToggleSubscription subscribes to or unsubscribes from an entity.
type ToggleSubscription struct{ Item model.Subscription }

// OpenTopic shows the detail page for a topic.
type OpenTopic struct{ UID string }

// RetryDetail reloads the current topic and its timeline.
type RetryDetail struct{}

// LoadTimeline reloads only the current topic's timeline.
type LoadTimeline struct{}

// LoadActivities reloads the activity list.
type LoadActivities struct{}

func (SelectTab) intent()          {}
func (SelectFeedType) intent()     {}
func (RefreshHome) intent()        {}
func (LoadMore) intent()           {}
func (SetQuery) intent()           {}
func (Search) intent()             {}
func (ShowSubscriptions) intent()  {}
func (ToggleSubscription) intent() {}
func (OpenTopic) intent()          {}
func (RetryDetail) intent()        {}
func (LoadTimeline) intent()       {}
func (LoadActivities) intent()     {}
