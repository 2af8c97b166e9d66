package channelio

import (
	"errors"
	"testing"
)

func TestFakeReaderDefaultsDeasserted(t *testing.T) {
	f := NewFakeReader()

	v, err := f.Read(5)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if v {
		t.Error("unset channel should read deasserted")
	}
}

func TestFakeReaderSetAndRead(t *testing.T) {
	f := NewFakeReader()
	f.Set(5, true)
	f.Set(8, false)

	if v, _ := f.Read(5); !v {
		t.Error("channel 5 should read asserted")
	}
	if v, _ := f.Read(8); v {
		t.Error("channel 8 should read deasserted")
	}

	f.Set(5, false)
	if v, _ := f.Read(5); v {
		t.Error("channel 5 should read deasserted after clearing")
	}
}

func TestFakeReaderScriptedError(t *testing.T) {
	f := NewFakeReader()
	f.Set(5, true)
	f.ReadError = errors.New("wire fault")

	v, err := f.Read(5)
	if err == nil {
		t.Fatal("expected scripted error")
	}
	if v {
		t.Error("a failed read must report deasserted")
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader()
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !f.Closed {
		t.Error("Closed not set")
	}
}
