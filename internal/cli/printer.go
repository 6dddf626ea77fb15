package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/bryan-buckman/readhubx/internal/app"
	"github.com/bryan-buckman/readhubx/internal/model"
	"github.com/bryan-buckman/readhubx/internal/rss"
	"github.com/bryan-buckman/readhubx/internal/subscription"
)

// Printer renders controller state as terminal text.
type Printer struct {
	out       io.Writer
	useColors bool
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, useColors bool) *Printer {
	return &Printer{out: out, useColors: useColors}
}

func (p *Printer) paint(s string, attrs ...color.Attribute) string {
	if !p.useColors {
		return s
	}
	return color.New(attrs...).Sprint(s)
}

func (p *Printer) title(s string) string { return p.paint(s, color.FgCyan, color.Bold) }
func (p *Printer) muted(s string) string { return p.paint(s, color.FgHiBlack) }

// Header prints a section heading.
func (p *Printer) Header(s string) {
	fmt.Fprintln(p.out, p.paint("== "+s+" ==", color.FgMagenta, color.Bold))
}

// Errorf prints an error line.
func (p *Printer) Errorf(format string, a ...any) {
	fmt.Fprintln(p.out, p.paint(fmt.Sprintf(format, a...), color.FgRed, color.Bold))
}

// Successf prints a confirmation line.
func (p *Printer) Successf(format string, a ...any) {
	fmt.Fprintln(p.out, p.paint(fmt.Sprintf(format, a...), color.FgGreen))
}

// Home prints the subscription feed.
func (p *Printer) Home(h app.HomeState, subs []model.Subscription) {
	p.Header(app.TabHome.Title())
	if len(subs) == 0 {
		fmt.Fprintln(p.out, "暂无订阅内容")
		fmt.Fprintln(p.out, p.muted("前往搜索页面添加订阅，精彩内容将会呈现在这里"))
		return
	}
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.Name
	}
	fmt.Fprintln(p.out, p.muted("当前订阅: "+strings.Join(names, ", ")))

	if h.Error != "" {
		p.Errorf("%s", h.Error)
		return
	}
	if len(h.Items) == 0 {
		fmt.Fprintln(p.out, "暂无内容")
		return
	}
	for _, t := range h.Items {
		p.topic(t)
	}
	if !h.HasMore {
		fmt.Fprintln(p.out, p.muted("已经到底啦"))
	}
}

func (p *Printer) topic(t model.Topic) {
	fmt.Fprintf(p.out, "%s %s\n", p.title(t.Title), p.muted("["+t.UID+"]"))
	if t.Summary != "" {
		fmt.Fprintf(p.out, "  %s\n", t.Summary)
	}
	fmt.Fprintf(p.out, "  %s\n", p.muted(fmt.Sprintf("%s 等%d家媒体 · %s", t.SiteNameDisplay, t.SiteCount, t.FormattedPublishTime)))
}

// Search prints suggestion results with their subscription status.
func (p *Printer) Search(s app.SearchState, isSubscribed func(model.Subscription) bool) {
	p.Header(app.TabSearch.Title())
	switch {
	case s.Error != "":
		p.Errorf("%s", s.Error)
	case len(s.Items) == 0:
		fmt.Fprintln(p.out, "未找到相关结果")
	default:
		for _, item := range s.Items {
			mark := "订阅"
			if isSubscribed(item) {
				mark = p.paint("已订阅", color.FgGreen)
			}
			fmt.Fprintf(p.out, "%s  %s  %s  %s\n", item.ID, p.title(item.Name), p.muted(item.Type.Label()), mark)
		}
	}
}

// Subscriptions prints stored subscriptions, entities first then tags.
func (p *Printer) Subscriptions(list []model.Subscription) {
	p.Header("我的订阅")
	if len(list) == 0 {
		fmt.Fprintln(p.out, "暂无订阅内容")
		return
	}
	normal, tags := subscription.Split(list)
	for _, s := range append(normal, tags...) {
		fmt.Fprintf(p.out, "%s  %s  %s\n", s.ID, p.title(s.Name), p.muted(s.Type.Label()))
	}
}

// Activities prints the activity list.
func (p *Printer) Activities(a app.ActivityState) {
	p.Header(app.TabActivity.Title())
	switch {
	case a.Error != "":
		p.Errorf("%s", a.Error)
	case len(a.Items) == 0:
		fmt.Fprintln(p.out, "暂无活动数据")
	default:
		for _, act := range a.Items {
			fmt.Fprintln(p.out, p.title(act.Name))
			fmt.Fprintf(p.out, "  开始: %s\n", act.FormattedStartTime)
			fmt.Fprintf(p.out, "  通知时间: %s\n", act.FormattedNotifyTime)
			if act.URL != "" {
				fmt.Fprintf(p.out, "  %s\n", p.muted(act.URL))
			}
		}
	}
}

// Detail prints a topic with its related reports and timeline.
func (p *Printer) Detail(d app.DetailState) {
	p.Header(app.TabTopicDetail.Title())
	if d.DetailError != "" {
		p.Errorf("%s", d.DetailError)
	}
	if t := d.Topic; t != nil {
		fmt.Fprintln(p.out, p.title(t.Title))
		fmt.Fprintln(p.out, p.muted(fmt.Sprintf("%s 等%d家媒体 · %s", t.SiteNameDisplay, t.SiteCount, t.FormattedPublishTime)))
		if t.Summary != "" {
			fmt.Fprintln(p.out, t.Summary)
		}
		var labels []string
		for _, e := range t.EntityList {
			labels = append(labels, e.Name)
		}
		for _, tg := range t.TagList {
			labels = append(labels, "#"+tg.Name)
		}
		if len(labels) > 0 {
			fmt.Fprintln(p.out, p.muted(strings.Join(labels, "  ")))
		}
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.paint("相关报道", color.Bold))
	if len(d.News) == 0 {
		if d.DetailError == "" {
			fmt.Fprintln(p.out, p.muted("暂无相关报道"))
		}
	} else {
		for _, n := range d.News {
			fmt.Fprintf(p.out, "- %s\n", n.Title)
			fmt.Fprintf(p.out, "  %s\n", p.muted(strings.TrimSpace(n.SiteName+" "+n.FormattedPublishTime)))
			if n.MobileURL != "" {
				fmt.Fprintf(p.out, "  %s\n", p.muted(n.MobileURL))
			}
		}
	}

	fmt.Fprintln(p.out)
	tlTitle := d.TimelineTitle
	if tlTitle == "" {
		tlTitle = "话题追踪"
	}
	fmt.Fprintln(p.out, p.paint(tlTitle, color.Bold))
	switch {
	case d.Timeline.Error != "":
		p.Errorf("%s", d.Timeline.Error)
	case len(d.Timeline.Items) == 0:
		fmt.Fprintln(p.out, p.muted("暂无话题时间线数据"))
	default:
		for _, it := range d.Timeline.Items {
			date := it.FormattedShortDate
			if date == "" {
				date = it.Date
			}
			fmt.Fprintf(p.out, "%s  %s\n", p.muted(date), it.Title)
		}
	}
}

// WatchItems prints newly seen feed entries.
func (p *Printer) WatchItems(items []rss.Item) {
	for _, it := range items {
		fmt.Fprintf(p.out, "%s %s\n", p.muted(it.Published.Local().Format("01-02 15:04")), p.title(it.Title))
		if it.Link != "" {
			fmt.Fprintf(p.out, "  %s\n", p.muted(it.Link))
		}
	}
}

// progress returns a renderer that reports lists entering the loading state.
func (p *Printer) progress() app.Renderer {
	var last app.State
	return app.RenderFunc(func(s app.State) {
		switch {
		case s.Home.IsLoading && !last.Home.IsLoading:
			fmt.Fprintln(p.out, p.muted("加载中..."))
		case s.Search.IsLoading && !last.Search.IsLoading:
			fmt.Fprintln(p.out, p.muted("搜索中..."))
		case s.Activity.IsLoading && !last.Activity.IsLoading:
			fmt.Fprintln(p.out, p.muted("加载中..."))
		case s.Detail.IsLoadingDetail && !last.Detail.IsLoadingDetail:
			fmt.Fprintln(p.out, p.muted("加载中..."))
		case s.Detail.Timeline.IsLoading && !last.Detail.Timeline.IsLoading:
			fmt.Fprintln(p.out, p.muted("时间线加载中..."))
		}
		last = s
	})
}
