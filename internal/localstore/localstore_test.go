package localstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSlotsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "slots.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set("athleticsUser", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("selectedEvent", `{"id":1}`); err != nil {
		t.Fatalf("set: %v", err)
	}

	again, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok := again.Get("athleticsUser"); !ok || v != "tok" {
		t.Fatalf("athleticsUser = %q %v", v, ok)
	}
	if err := again.Remove("athleticsUser"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	third, _ := OpenFile(path)
	if _, ok := third.Get("athleticsUser"); ok {
		t.Fatalf("removed slot came back")
	}
	if _, ok := third.Get("selectedEvent"); !ok {
		t.Fatalf("other slot lost")
	}
}

func TestFileSlotsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Fatalf("corrupt file should fail")
	}
}

func TestMemorySlots(t *testing.T) {
	var s Slots = NewMemory()
	_ = s.Set("k", "v")
	if v, _ := s.Get("k"); v != "v" {
		t.Fatalf("get = %q", v)
	}
	_ = s.Remove("k")
	if _, ok := s.Get("k"); ok {
		t.Fatalf("still present")
	}
}
