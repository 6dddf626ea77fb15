// Package model defines shared data structures.
package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// EntityType is the kind of thing a user can subscribe to.
type EntityType string

const (
	EntityCompany EntityType = "company"
	EntityProduct EntityType = "product"
	EntityPerson  EntityType = "person"
	EntityTag     EntityType = "tag"
)

// ParseEntityType normalises an upstream type string. Unknown values are
// kept as-is (lower-cased) so they survive a round trip through storage.
func ParseEntityType(s string) EntityType {
	return EntityType(strings.ToLower(strings.TrimSpace(s)))
}

// IsTag reports whether t is the tag kind, ignoring case.
func (t EntityType) IsTag() bool {
	return strings.EqualFold(string(t), string(EntityTag))
}

// Label returns the display label for t.
func (t EntityType) Label() string {
	switch ParseEntityType(string(t)) {
	case EntityCompany:
		return "公司"
	case EntityProduct:
		return "产品"
	case EntityPerson:
		return "人物"
	case EntityTag:
		return "标签"
	}
	return string(t)
}

// FlexID is an identifier upstream sends either as a JSON string or as a
// number. Any other JSON value decodes to the empty ID.
type FlexID string

// UnmarshalJSON accepts `"42"` and `42`.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = FlexID(n.String())
		return nil
	}
	*id = ""
	return nil
}

// Subscription is a followed entity. At most one per ID.
type Subscription struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// UnmarshalJSON reads the id with FlexID rules.
func (s *Subscription) UnmarshalJSON(data []byte) error {
	type plain Subscription
	aux := struct {
		*plain
		ID FlexID `json:"id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ID = string(aux.ID)
	return nil
}

// Entity is a company/product/person attached to a topic.
type Entity struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Tag is a topic label. Upstream sends either objects or bare strings.
type Tag struct {
	UID  FlexID `json:"uid,omitempty"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts both `"name"` and `{"uid":..,"name":..}`.
func (t *Tag) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		t.Name = name
		return nil
	}
	type plain Tag
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}
	*t = Tag(p)
	return nil
}

// NewsArticle is one contributing report of a topic.
type NewsArticle struct {
	UID             string `json:"uid"`
	Title           string `json:"title"`
	SiteName        string `json:"siteName"`
	SiteNameDisplay string `json:"siteNameDisplay"`
	URL             string `json:"url"`
	MobileURL       string `json:"mobileUrl"`
	PublishDate     string `json:"publishDate"`

	FormattedPublishTime string `json:"-"`
}

// Normalize fills the display fallbacks used by the detail page.
func (n *NewsArticle) Normalize() {
	if n.SiteName == "" {
		n.SiteName = n.SiteNameDisplay
	}
	if n.MobileURL == "" {
		n.MobileURL = n.URL
	}
}

// Topic is an aggregated news story.
type Topic struct {
	UID             string        `json:"uid"`
	Title           string        `json:"title"`
	Summary         string        `json:"summary"`
	EntityList      []Entity      `json:"entityList"`
	TagList         []Tag         `json:"tagList"`
	SiteNameDisplay string        `json:"siteNameDisplay"`
	SiteCount       int           `json:"siteCount"`
	PublishDate     string        `json:"publishDate"`
	NewsAggList     []NewsArticle `json:"newsAggList"`

	FormattedPublishTime string `json:"-"`
}

// TopicPage is one page of /topic/list_pro.
type TopicPage struct {
	Items     []Topic `json:"items"`
	PageIndex int     `json:"pageIndex"`
}

// TimelineItem is a dated milestone of a topic.
type TimelineItem struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	PublishDate string `json:"publishDate"`

	FormattedShortDate string `json:"-"`
}

// When returns the milestone timestamp, preferring Date.
func (t TimelineItem) When() string {
	if t.Date != "" {
		return t.Date
	}
	return t.PublishDate
}

// Timeline is the response of /topic/timeline/list.
type Timeline struct {
	Title string
	Items []TimelineItem
}

// Activity is an online event listed by /activity/online/list.
type Activity struct {
	ID       FlexID `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	TopicID  FlexID `json:"topicId"`
	StartAt  string `json:"startAt"`
	NotifyAt string `json:"notifyAt"`

	FormattedStartTime  string `json:"-"`
	FormattedNotifyTime string `json:"-"`
}

// Suggestion is a raw /tmt_entity/suggest record.
type Suggestion struct {
	EntityID   FlexID `json:"entityId"`
	EntityName string `json:"entityName"`
	EntityType string `json:"entityType"`
	ID         FlexID `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
}

// Subscription converts a suggestion, preferring the entity* fields.
func (s Suggestion) Subscription() Subscription {
	sub := Subscription{ID: string(s.EntityID), Name: s.EntityName, Type: EntityType(s.EntityType)}
	if sub.ID == "" {
		sub.ID = string(s.ID)
	}
	if sub.Name == "" {
		sub.Name = s.Name
	}
	if sub.Type == "" {
		sub.Type = EntityType(s.Type)
	}
	return sub
}

// Settings key constants for the persisted subscription layout.
const (
	SettingSubscriptions        = "readhub_web_subscriptions"
	SettingSubscriptionsVersion = "readhub_web_subscriptions_version"
)
