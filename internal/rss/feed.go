// Package rss renders topics as RSS 2.0 and polls published feeds.
package rss

import (
	"encoding/xml"
	"time"

	"github.com/bryan-buckman/readhubx/internal/model"
	"github.com/bryan-buckman/readhubx/internal/readhub"
)

// TopicURL is the public page of a topic.
const TopicURL = "https://readhub.cn/topic/"

// Channel describes the feed itself.
type Channel struct {
	Title       string
	Link        string
	Description string
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        rssGUID  `xml:"guid"`
	Categories  []string `xml:"category,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Build renders topics as an RSS 2.0 document. Topics with an unparseable
// publish date are kept without a pubDate.
func Build(ch Channel, topics []model.Topic) ([]byte, error) {
	doc := rssDoc{
		Version: "2.0",
		Channel: rssChannel{
			Title:         ch.Title,
			Link:          ch.Link,
			Description:   ch.Description,
			LastBuildDate: time.Now().UTC().Format(time.RFC1123Z),
		},
	}
	for _, t := range topics {
		item := rssItem{
			Title:       t.Title,
			Link:        TopicURL + t.UID,
			Description: t.Summary,
			GUID:        rssGUID{Value: t.UID},
		}
		if ts, ok := readhub.ParseTime(t.PublishDate); ok {
			item.PubDate = ts.UTC().Format(time.RFC1123Z)
		}
		for _, e := range t.EntityList {
			if e.Name != "" {
				item.Categories = append(item.Categories, e.Name)
			}
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}
