package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bryan-buckman/readhubx/internal/model"
	"github.com/bryan-buckman/readhubx/internal/readhub"
)

// Page sizes requested from the API.
const (
	HomePageSize     = 10
	TimelinePageSize = 10
)

// API is the subset of readhub.Client the controller calls.
type API interface {
	ListTopics(ctx context.Context, q readhub.TopicQuery) (model.TopicPage, error)
	TopicDetail(ctx context.Context, uid string) (*model.Topic, error)
	Timeline(ctx context.Context, topicUID string, size int) (model.Timeline, error)
	Suggest(ctx context.Context, q string) ([]model.Subscription, error)
	Activities(ctx context.Context) ([]model.Activity, error)
}

var _ API = (*readhub.Client)(nil)

// Subscriptions is the subset of subscription.Store the controller uses.
type Subscriptions interface {
	GetAll() []model.Subscription
	IsSubscribed(item model.Subscription) bool
	Toggle(item model.Subscription) bool
}

// Renderer is notified with a snapshot after every state change.
type Renderer interface {
	Render(State)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(State)

func (f RenderFunc) Render(s State) { f(s) }

type list int

const (
	listHome list = iota
	listSearch
	listActivity
	listDetail
	listTimeline
	numLists
)

// Controller owns State and applies intents to it. Network calls run without
// the lock held; each list carries a request generation so a response that
// was overtaken by a newer request for the same list is dropped.
type Controller struct {
	api    API
	subs   Subscriptions
	render Renderer
	format readhub.Formatter
	logf   func(format string, args ...any)

	mu    sync.Mutex
	state State
	gen   [numLists]uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithRenderer sets the render hook.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) { c.render = r }
}

// WithFormatter overrides the timestamp formatter.
func WithFormatter(f readhub.Formatter) Option {
	return func(c *Controller) { c.format = f }
}

// WithLogf replaces log.Printf for fetch errors.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *Controller) { c.logf = logf }
}

// NewController creates a controller in the initial state.
func NewController(api API, subs Subscriptions, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		subs:   subs,
		render: RenderFunc(func(State) {}),
		format: readhub.DefaultFormatter,
		logf:   log.Printf,
		state:  NewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// IsSubscribed reports whether item is in the subscription store.
func (c *Controller) IsSubscribed(item model.Subscription) bool {
	return c.subs.IsSubscribed(item)
}

// Subscriptions lists the stored subscriptions.
func (c *Controller) Subscriptions() []model.Subscription {
	return c.subs.GetAll()
}

// Start renders the initial state and loads the home feed.
func (c *Controller) Start(ctx context.Context) {
	c.emit()
	c.ensureHomeLoaded(ctx)
}

// Dispatch applies one intent. Fetch failures are recorded in State, not
// returned; the error result only reports an unknown intent.
func (c *Controller) Dispatch(ctx context.Context, in Intent) error {
	switch in := in.(type) {
	case SelectTab:
		c.update(func(s *State) { s.CurrentTab = in.Tab })
		switch in.Tab {
		case TabHome:
			c.ensureHomeLoaded(ctx)
		case TabActivity:
			c.ensureActivityLoaded(ctx)
		}
	case SelectFeedType:
		c.update(func(s *State) {
			s.Home.SelectedType = in.Type
			s.Home.PageIndex = 1
		})
		c.loadHome(ctx, true)
	case RefreshHome:
		c.loadHome(ctx, true)
	case LoadMore:
		c.loadHome(ctx, false)
	case SetQuery:
		c.mu.Lock()
		c.state.Search.Query = in.Query
		c.mu.Unlock()
	case Search:
		c.search(ctx)
	case ShowSubscriptions:
		c.update(func(s *State) { s.Search.ShowSubscriptions = in.Show })
	case ToggleSubscription:
		c.subs.Toggle(in.Item)
		c.emit()
	case OpenTopic:
		c.update(func(s *State) {
			if s.CurrentTopicUID != in.UID {
				// Drop the previous topic and anything still loading for it.
				s.Detail = NewState().Detail
				c.gen[listDetail]++
				c.gen[listTimeline]++
			}
			s.CurrentTopicUID = in.UID
			s.CurrentTab = TabTopicDetail
		})
		c.loadDetail(ctx)
	case RetryDetail:
		c.loadDetail(ctx)
	case LoadTimeline:
		c.mu.Lock()
		uid := c.state.CurrentTopicUID
		c.mu.Unlock()
		c.loadTimeline(ctx, uid)
	case LoadActivities:
		c.loadActivities(ctx)
	default:
		return fmt.Errorf("unknown intent %T", in)
	}
	return nil
}

// update mutates state under the lock and renders.
func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.state.clone()
	c.mu.Unlock()
	c.render.Render(snap)
}

func (c *Controller) emit() {
	c.render.Render(c.State())
}

// begin bumps the generation of l and applies fn, returning the generation
// the eventual response must match.
func (c *Controller) begin(l list, fn func(*State)) uint64 {
	c.mu.Lock()
	c.gen[l]++
	g := c.gen[l]
	fn(&c.state)
	snap := c.state.clone()
	c.mu.Unlock()
	c.render.Render(snap)
	return g
}

// finish applies fn only if g is still the latest generation of l.
func (c *Controller) finish(l list, g uint64, fn func(*State)) bool {
	c.mu.Lock()
	if c.gen[l] != g {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	snap := c.state.clone()
	c.mu.Unlock()
	c.render.Render(snap)
	return true
}

func errorMessage(err error, fallback string) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
