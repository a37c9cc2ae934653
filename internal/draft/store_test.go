package draft

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/calloway/fixport/internal/kvstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadDefaultWhenEmpty(t *testing.T) {
	s := NewStore(kvstore.NewMemory(), testLogger(), time.Hour)
	d := s.Load()
	if d.Severity != "Medium" || d.AccessLevel != "User Safe" {
		t.Errorf("default draft = %+v", d)
	}
}

func TestSaveFlushLoadRoundtrip(t *testing.T) {
	kv := kvstore.NewMemory()
	s := NewStore(kv, testLogger(), time.Hour)

	d := Default()
	d.Title = "Outlook Search Broken"
	s.Save(d)

	// Pending saves are visible before the debounce fires.
	if got := s.Load(); got.Title != "Outlook Search Broken" {
		t.Errorf("pending load title = %q", got.Title)
	}

	// Nothing persisted yet: the debounce window is an hour.
	if _, err := kv.Get("draft.json"); err == nil {
		t.Error("draft persisted before flush")
	}

	s.Flush()
	data, err := kv.Get("draft.json")
	if err != nil {
		t.Fatalf("Get after flush: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Version != envelopeVersion || env.Draft.Title != "Outlook Search Broken" {
		t.Errorf("stored envelope = %+v", env)
	}

	fresh := NewStore(kv, testLogger(), time.Hour)
	if got := fresh.Load(); got.Title != "Outlook Search Broken" {
		t.Errorf("reloaded title = %q", got.Title)
	}
}

func TestDebouncedWrite(t *testing.T) {
	kv := kvstore.NewMemory()
	s := NewStore(kv, testLogger(), 10*time.Millisecond)

	d := Default()
	d.Title = "v1"
	s.Save(d)
	d.Title = "v2"
	s.Save(d)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if data, err := kv.Get("draft.json"); err == nil {
			var env envelope
			_ = json.Unmarshal(data, &env)
			if env.Draft.Title != "v2" {
				t.Errorf("persisted title = %q, want v2", env.Draft.Title)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced write never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoadFallsBackOnCorruptData(t *testing.T) {
	kv := kvstore.NewMemory()
	_ = kv.Put("draft.json", []byte("not json"))
	s := NewStore(kv, testLogger(), time.Hour)
	if got := s.Load(); got.Title != "" || got.Severity != "Medium" {
		t.Errorf("corrupt load = %+v, want default", got)
	}

	// Wrong envelope version is treated the same as corruption.
	_ = kv.Put("draft.json", []byte(`{"version":99,"draft":{"title":"old"}}`))
	if got := s.Load(); got.Title != "" {
		t.Errorf("old-version load = %+v, want default", got)
	}
}

func TestReset(t *testing.T) {
	kv := kvstore.NewMemory()
	s := NewStore(kv, testLogger(), time.Hour)

	d := Default()
	d.Title = "doomed"
	s.Save(d)
	s.Flush()
	s.Reset()

	if _, err := kv.Get("draft.json"); err == nil {
		t.Error("stored draft survived reset")
	}
	if got := s.Load(); got.Title != "" {
		t.Errorf("post-reset load = %+v, want default", got)
	}
}

func TestSaveFailureDoesNotBlock(t *testing.T) {
	s := NewStore(failingKV{}, testLogger(), time.Hour)
	d := Default()
	d.Title = "unstored"
	s.Save(d)
	s.Flush() // must not panic or error out

	if got := s.Load(); got.Title != "" {
		t.Errorf("load after failed save = %+v, want default", got)
	}
}

func TestFlushStopsTimer(t *testing.T) {
	s := NewStore(kvstore.NewMemory(), testLogger(), time.Hour)
	s.Save(Default())
	s.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		t.Error("pending draft survived flush")
	}
	if s.timer != nil {
		t.Error("debounce timer survived flush")
	}
}

func TestFlushStopsTimerOnStorageFailure(t *testing.T) {
	s := NewStore(failingKV{}, testLogger(), time.Hour)
	s.Save(Default())
	s.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		t.Error("debounce timer survived failed flush")
	}
}

type failingKV struct{}

func (failingKV) Get(string) ([]byte, error) { return nil, errors.New("storage unavailable") }
func (failingKV) Put(string, []byte) error   { return errors.New("storage unavailable") }
func (failingKV) Delete(string) error        { return errors.New("storage unavailable") }
