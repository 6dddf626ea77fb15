package subscription

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/readhubx/internal/database"
	"github.com/bryan-buckman/readhubx/internal/model"
)

type memKV struct {
	data     map[string]string
	failSets bool
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) GetSetting(key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", database.ErrNotFound
	}
	return v, nil
}

func (m *memKV) SetSetting(key, value string) error {
	if m.failSets {
		return errors.New("disk full")
	}
	m.data[key] = value
	return nil
}

func (m *memKV) DeleteSetting(key string) error {
	delete(m.data, key)
	return nil
}

type logSink struct{ lines []string }

func (l *logSink) logf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func newStore(t *testing.T, kv KV) (*Store, *logSink) {
	t.Helper()
	sink := &logSink{}
	return New(kv, WithLogf(sink.logf)), sink
}

var acme = model.Subscription{ID: "42", Name: "Acme", Type: model.EntityCompany}

func TestNew_WritesVersionMarker(t *testing.T) {
	kv := newMemKV()
	newStore(t, kv)
	assert.Equal(t, LatestVersion, kv.data[model.SettingSubscriptionsVersion])
}

func TestGetAll_Empty(t *testing.T) {
	s, _ := newStore(t, newMemKV())
	got := s.GetAll()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAdd_Idempotent(t *testing.T) {
	s, _ := newStore(t, newMemKV())

	s.Add(acme)
	s.Add(acme)
	s.Add(model.Subscription{ID: "42", Name: "Renamed", Type: model.EntityProduct})

	got := s.GetAll()
	require.Len(t, got, 1)
	assert.Equal(t, acme, got[0])
}

func TestAdd_KeepsInsertionOrder(t *testing.T) {
	s, _ := newStore(t, newMemKV())

	s.Add(model.Subscription{ID: "b", Name: "B", Type: model.EntityTag})
	s.Add(model.Subscription{ID: "a", Name: "A", Type: model.EntityCompany})
	s.Add(model.Subscription{ID: "c", Name: "C", Type: model.EntityPerson})

	var ids []string
	for _, x := range s.GetAll() {
		ids = append(ids, x.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestAddRemoveMembership(t *testing.T) {
	s, _ := newStore(t, newMemKV())

	s.Add(acme)
	assert.True(t, s.IsSubscribed(acme))

	s.Remove(acme)
	assert.False(t, s.IsSubscribed(acme))

	// Removing an absent entry is a no-op.
	s.Remove(acme)
	assert.Empty(t, s.GetAll())
}

func TestRemove_DropsAllDuplicates(t *testing.T) {
	kv := newMemKV()
	s, _ := newStore(t, kv)
	kv.data[model.SettingSubscriptions] = `[{"id":"1","name":"x","type":"tag"},{"id":"2","name":"y","type":"company"},{"id":"1","name":"z","type":"tag"}]`

	s.Remove(model.Subscription{ID: "1"})

	got := s.GetAll()
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestToggle(t *testing.T) {
	s, _ := newStore(t, newMemKV())

	assert.True(t, s.Toggle(acme))
	assert.True(t, s.IsSubscribed(acme))
	assert.False(t, s.Toggle(acme))
	assert.False(t, s.IsSubscribed(acme))
}

func TestClearAll(t *testing.T) {
	kv := newMemKV()
	s, _ := newStore(t, kv)
	s.Add(acme)

	s.ClearAll()

	_, ok := kv.data[model.SettingSubscriptions]
	assert.False(t, ok)
	assert.Empty(t, s.GetAll())
}

func TestVersionMismatch_WipesList(t *testing.T) {
	for _, marker := range []string{"v0", "v2", "", "V1"} {
		t.Run(fmt.Sprintf("marker=%q", marker), func(t *testing.T) {
			kv := newMemKV()
			s, _ := newStore(t, kv)
			s.Add(acme)

			kv.data[model.SettingSubscriptionsVersion] = marker
			s, _ = newStore(t, kv)

			assert.Empty(t, s.GetAll())
			assert.Equal(t, LatestVersion, kv.data[model.SettingSubscriptionsVersion])
		})
	}
}

func TestVersionMatch_KeepsList(t *testing.T) {
	kv := newMemKV()
	s, _ := newStore(t, kv)
	s.Add(acme)

	s, _ = newStore(t, kv)
	assert.Len(t, s.GetAll(), 1)
}

func TestGetAll_CorruptValueIsDiscarded(t *testing.T) {
	cases := map[string]string{
		"not json":    `{{{`,
		"object":      `{"id":"1"}`,
		"string":      `"hello"`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			kv := newMemKV()
			s, sink := newStore(t, kv)
			kv.data[model.SettingSubscriptions] = raw

			assert.Empty(t, s.GetAll())
			_, ok := kv.data[model.SettingSubscriptions]
			assert.False(t, ok, "corrupt entry should be removed")
			require.NotEmpty(t, sink.lines)
			assert.Contains(t, sink.lines[len(sink.lines)-1], "decode subscriptions")
		})
	}
}

func TestGetAll_MixedArrayKeepsValidEntries(t *testing.T) {
	kv := newMemKV()
	s, sink := newStore(t, kv)
	raw := `[{"id":"1","name":"Acme","type":"company"},{"id":2,"name":"Rocket","type":"product"},"junk",null,{"id":"3","name":5}]`
	kv.data[model.SettingSubscriptions] = raw

	assert.Equal(t, []model.Subscription{
		{ID: "1", Name: "Acme", Type: model.EntityCompany},
		{ID: "2", Name: "Rocket", Type: model.EntityProduct},
	}, s.GetAll())
	assert.Equal(t, raw, kv.data[model.SettingSubscriptions])
	require.Len(t, sink.lines, 2)
	assert.Contains(t, sink.lines[0], "skip element 2")
	assert.Contains(t, sink.lines[1], "skip element 4")

	assert.True(t, s.IsSubscribed(model.Subscription{ID: "2"}))
}

func TestWriteFailure_IsLoggedAndSwallowed(t *testing.T) {
	kv := newMemKV()
	s, sink := newStore(t, kv)
	kv.failSets = true

	assert.NotPanics(t, func() { s.Add(acme) })
	assert.False(t, s.IsSubscribed(acme))
	require.NotEmpty(t, sink.lines)
	assert.Contains(t, sink.lines[len(sink.lines)-1], "save subscriptions: disk full")
}

func TestSplitAndJoin(t *testing.T) {
	list := []model.Subscription{
		{ID: "1", Type: model.EntityCompany},
		{ID: "2", Type: "TAG"},
		{ID: "3", Type: model.EntityProduct},
		{ID: "4", Type: model.EntityTag},
	}
	normal, tags := Split(list)
	assert.Equal(t, "1,3", JoinIDs(normal))
	assert.Equal(t, "2,4", JoinIDs(tags))
	assert.Equal(t, "", JoinIDs(nil))
}

func TestStore_SQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.db")
	db, err := database.New(path)
	require.NoError(t, err)
	defer db.Close()

	s := New(db)
	s.Add(acme)
	s.Add(model.Subscription{ID: "t1", Name: "AI", Type: model.EntityTag})

	reopened := New(db)
	got := reopened.GetAll()
	require.Len(t, got, 2)
	assert.Equal(t, acme, got[0])
	assert.True(t, reopened.IsSubscribed(model.Subscription{ID: "t1"}))
}
