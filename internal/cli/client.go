package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/readhubx/internal/app"
)

func (e *env) feedCmd() *cobra.Command {
	var (
		tag   bool
		pages int
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the topic feed for your subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withController(cmd, func(ctx context.Context, c *app.Controller, p *Printer) error {
				if tag {
					c.Dispatch(ctx, app.SelectFeedType{Type: app.FeedTag})
				} else {
					c.Start(ctx)
				}
				for i := 1; i < pages; i++ {
					h := c.State().Home
					if !h.HasMore || h.Error != "" || len(h.Items) == 0 {
						break
					}
					c.Dispatch(ctx, app.LoadMore{})
				}

				st := c.State()
				p.Home(st.Home, c.Subscriptions())
				if st.Home.Error != "" {
					return errors.New(st.Home.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&tag, "tag", false, "show the tag feed instead of companies/products/people")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func (e *env) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search entities to subscribe to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withController(cmd, func(ctx context.Context, c *app.Controller, p *Printer) error {
				c.Dispatch(ctx, app.SelectTab{Tab: app.TabSearch})
				c.Dispatch(ctx, app.SetQuery{Query: strings.Join(args, " ")})
				c.Dispatch(ctx, app.Search{})

				st := c.State()
				p.Search(st.Search, c.IsSubscribed)
				if st.Search.Error != "" {
					return errors.New(st.Search.Error)
				}
				return nil
			})
		},
	}
}

func (e *env) topicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topic <uid>",
		Short: "Show a topic with related reports and its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withController(cmd, func(ctx context.Context, c *app.Controller, p *Printer) error {
				c.Dispatch(ctx, app.OpenTopic{UID: args[0]})

				st := c.State()
				p.Detail(st.Detail)
				if st.Detail.DetailError != "" {
					return errors.New(st.Detail.DetailError)
				}
				return nil
			})
		},
	}
}

func (e *env) activityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activity",
		Short: "List online events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withController(cmd, func(ctx context.Context, c *app.Controller, p *Printer) error {
				c.Dispatch(ctx, app.SelectTab{Tab: app.TabActivity})

				st := c.State()
				p.Activities(st.Activity)
				if st.Activity.Error != "" {
					return errors.New(st.Activity.Error)
				}
				return nil
			})
		},
	}
}
