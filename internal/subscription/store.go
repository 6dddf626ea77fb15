// Package subscription persists the user's followed entities in a key-value
// store as a JSON array, guarded by a schema version marker.
package subscription

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/bryan-buckman/readhubx/internal/database"
	"github.com/bryan-buckman/readhubx/internal/model"
)

// LatestVersion is the expected schema marker. Any other persisted value
// wipes the subscription list on startup.
const LatestVersion = "v1"

// KV is the subset of database.Store the subscription store needs.
type KV interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

var _ KV = (database.Store)(nil)

// StorageDecodeError reports a persisted list that could not be decoded.
type StorageDecodeError struct {
	Err error
}

func (e *StorageDecodeError) Error() string { return "decode subscriptions: " + e.Err.Error() }
func (e *StorageDecodeError) Unwrap() error { return e.Err }

// StorageWriteError reports a failed save.
type StorageWriteError struct {
	Err error
}

func (e *StorageWriteError) Error() string { return "save subscriptions: " + e.Err.Error() }
func (e *StorageWriteError) Unwrap() error { return e.Err }

// Store is the subscription list. It is not safe for concurrent use.
type Store struct {
	kv      KV
	version string
	logf    func(format string, args ...any)
}

// Option configures a Store.
type Option func(*Store)

// WithVersion overrides the expected schema marker.
func WithVersion(v string) Option {
	return func(s *Store) { s.version = v }
}

// WithLogf replaces log.Printf for swallowed storage errors.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Store) { s.logf = logf }
}

// New returns a Store backed by kv after running the version guard.
func New(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv, version: LatestVersion, logf: log.Printf}
	for _, opt := range opts {
		opt(s)
	}
	s.ensureVersion()
	return s
}

func (s *Store) ensureVersion() {
	current, err := s.kv.GetSetting(model.SettingSubscriptionsVersion)
	if err == nil && current == s.version {
		return
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		s.logf("subscription: read version: %v", err)
	}
	if err := s.kv.DeleteSetting(model.SettingSubscriptions); err != nil {
		s.logf("subscription: reset list: %v", err)
	}
	if err := s.kv.SetSetting(model.SettingSubscriptionsVersion, s.version); err != nil {
		s.logf("subscription: write version: %v", &StorageWriteError{Err: err})
	}
}

// GetAll returns subscriptions in insertion order. Absent, unparsable or
// non-array content yields an empty list and is discarded. Elements of a
// valid array that do not decode are skipped and left in storage.
func (s *Store) GetAll() []model.Subscription {
	raw, err := s.kv.GetSetting(model.SettingSubscriptions)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			s.logf("subscription: read list: %v", err)
		}
		return []model.Subscription{}
	}
	if raw == "" {
		return []model.Subscription{}
	}
	list, err := s.decode(raw)
	if err != nil {
		s.logf("subscription: %v", &StorageDecodeError{Err: err})
		if err := s.kv.DeleteSetting(model.SettingSubscriptions); err != nil {
			s.logf("subscription: discard corrupt list: %v", err)
		}
		return []model.Subscription{}
	}
	return list
}

func (s *Store) decode(raw string) ([]model.Subscription, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, err
	}
	list := make([]model.Subscription, 0, len(elems))
	for i, elem := range elems {
		var sub model.Subscription
		if string(elem) == "null" {
			continue
		}
		if err := json.Unmarshal(elem, &sub); err != nil {
			s.logf("subscription: skip element %d: %v", i, err)
			continue
		}
		list = append(list, sub)
	}
	return list, nil
}

func (s *Store) save(list []model.Subscription) {
	data, err := json.Marshal(list)
	if err == nil {
		err = s.kv.SetSetting(model.SettingSubscriptions, string(data))
	}
	if err != nil {
		s.logf("subscription: %v", &StorageWriteError{Err: err})
	}
}

// Add appends item unless its ID is already present.
func (s *Store) Add(item model.Subscription) {
	list := s.GetAll()
	if indexOf(list, item.ID) >= 0 {
		return
	}
	list = append(list, model.Subscription{ID: item.ID, Name: item.Name, Type: item.Type})
	s.save(list)
}

// Remove drops every entry with item's ID.
func (s *Store) Remove(item model.Subscription) {
	list := s.GetAll()
	next := list[:0]
	for _, x := range list {
		if x.ID != item.ID {
			next = append(next, x)
		}
	}
	s.save(next)
}

// IsSubscribed reports membership by ID.
func (s *Store) IsSubscribed(item model.Subscription) bool {
	return indexOf(s.GetAll(), item.ID) >= 0
}

// Toggle removes item if subscribed and adds it otherwise. It returns the
// resulting membership.
func (s *Store) Toggle(item model.Subscription) bool {
	if s.IsSubscribed(item) {
		s.Remove(item)
		return false
	}
	s.Add(item)
	return true
}

// ClearAll deletes the persisted list.
func (s *Store) ClearAll() {
	if err := s.kv.DeleteSetting(model.SettingSubscriptions); err != nil {
		s.logf("subscription: clear: %v", &StorageWriteError{Err: err})
	}
}

func indexOf(list []model.Subscription, id string) int {
	for i, x := range list {
		if x.ID == id {
			return i
		}
	}
	return -1
}

// Split partitions list into non-tag and tag subscriptions, keeping order.
func Split(list []model.Subscription) (normal, tags []model.Subscription) {
	for _, x := range list {
		if x.Type.IsTag() {
			tags = append(tags, x)
		} else {
			normal = append(normal, x)
		}
	}
	return normal, tags
}

// JoinIDs returns the comma-separated IDs of list.
func JoinIDs(list []model.Subscription) string {
	ids := make([]string, len(list))
	for i, x := range list {
		ids[i] = x.ID
	}
	return strings.Join(ids, ",")
}
