// Package opml handles importing and exporting subscriptions as OPML files.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bryan-buckman/readhubx/internal/model"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline is a folder or a subscription. Subscriptions carry the entity id
// and type in readhub-specific attributes; xmlUrl points at the topic feed
// for that entity so the file is also usable by ordinary feed readers.
type Outline struct {
	Text       string    `xml:"text,attr"`
	Title      string    `xml:"title,attr,omitempty"`
	Type       string    `xml:"type,attr,omitempty"`
	XMLURL     string    `xml:"xmlUrl,attr,omitempty"`
	ReadhubID  string    `xml:"readhubId,attr,omitempty"`
	EntityType string    `xml:"entityType,attr,omitempty"`
	Outlines   []Outline `xml:"outline,omitempty"`
}

// Parse reads an OPML document and returns the subscriptions in document
// order. Folders are flattened; outlines without a readhubId are skipped.
func Parse(r io.Reader) ([]model.Subscription, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var subs []model.Subscription
	var walk func(outlines []Outline)
	walk = func(outlines []Outline) {
		for _, o := range outlines {
			if o.ReadhubID != "" {
				name := o.Title
				if name == "" {
					name = o.Text
				}
				subs = append(subs, model.Subscription{
					ID:   o.ReadhubID,
					Name: name,
					Type: model.ParseEntityType(o.EntityType),
				})
			}
			if len(o.Outlines) > 0 {
				walk(o.Outlines)
			}
		}
	}
	walk(doc.Body.Outlines)
	return subs, nil
}

// Export generates an OPML document with one folder per entity type.
// feedURL may be nil, in which case outlines carry no xmlUrl.
func Export(title string, subs []model.Subscription, feedURL func(model.Subscription) string) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
	}

	folderOutlines := make(map[string]*Outline)
	var order []string
	for _, s := range subs {
		o := Outline{
			Text:       s.Name,
			Title:      s.Name,
			Type:       "rss",
			ReadhubID:  s.ID,
			EntityType: string(s.Type),
		}
		if feedURL != nil {
			o.XMLURL = feedURL(s)
		}
		label := s.Type.Label()
		fo, ok := folderOutlines[label]
		if !ok {
			fo = &Outline{Text: label, Title: label}
			folderOutlines[label] = fo
			order = append(order, label)
		}
		fo.Outlines = append(fo.Outlines, o)
	}

	sort.Strings(order)
	for _, label := range order {
		doc.Body.Outlines = append(doc.Body.Outlines, *folderOutlines[label])
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}
