package config

import (
	"errors"
	"testing"
	"time"
)

func sampleOffices() []OfficeSpec {
	return []OfficeSpec{
		{Name: "A", Counters: 1, MinService: 10 * time.Millisecond, MaxService: 20 * time.Millisecond},
		{Name: "B", Counters: 2, MinService: 5 * time.Millisecond, MaxService: 15 * time.Millisecond},
	}
}

func TestBuild_Valid(t *testing.T) {
	docs := []DocumentSpec{
		{Name: "X", IssuingOffice: "A"},
		{Name: "Y", IssuingOffice: "B", Dependencies: []string{"X"}},
	}

	c, err := Build(sampleOffices(), docs)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if _, ok := c.Office("A"); !ok {
		t.Error("expected office A to be present")
	}
	if d, ok := c.Document("Y"); !ok || d.IssuingOffice != "B" {
		t.Errorf("unexpected document Y lookup: %+v, ok=%v", d, ok)
	}
	if _, ok := c.Office("missing"); ok {
		t.Error("expected missing office to be absent")
	}
}

func TestBuild_DuplicateOffice(t *testing.T) {
	offices := append(sampleOffices(), OfficeSpec{Name: "A", Counters: 1, MaxService: time.Second})
	if _, err := Build(offices, nil); err == nil {
		t.Fatal("expected error for duplicate office name")
	}
}

func TestBuild_DuplicateDocument(t *testing.T) {
	docs := []DocumentSpec{
		{Name: "X", IssuingOffice: "A"},
		{Name: "X", IssuingOffice: "B"},
	}
	if _, err := Build(sampleOffices(), docs); err == nil {
		t.Fatal("expected error for duplicate document name")
	}
}

func TestBuild_UnknownIssuingOffice(t *testing.T) {
	docs := []DocumentSpec{{Name: "X", IssuingOffice: "Nowhere"}}
	_, err := Build(sampleOffices(), docs)
	if !errors.Is(err, ErrUnknownOffice) {
		t.Fatalf("expected ErrUnknownOffice, got %v", err)
	}
}

func TestBuild_UnknownDependency(t *testing.T) {
	docs := []DocumentSpec{{Name: "X", IssuingOffice: "A", Dependencies: []string{"Ghost"}}}
	_, err := Build(sampleOffices(), docs)
	if !errors.Is(err, ErrUnknownDocument) {
		t.Fatalf("expected ErrUnknownDocument, got %v", err)
	}
}

func TestBuild_CyclicDependency(t *testing.T) {
	docs := []DocumentSpec{
		{Name: "X", IssuingOffice: "A", Dependencies: []string{"Y"}},
		{Name: "Y", IssuingOffice: "A", Dependencies: []string{"X"}},
	}
	_, err := Build(sampleOffices(), docs)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestBuild_InvalidOfficeCounters(t *testing.T) {
	offices := []OfficeSpec{{Name: "A", Counters: 0, MaxService: time.Second}}
	if _, err := Build(offices, nil); err == nil {
		t.Fatal("expected error for zero counters")
	}
}

func TestBuild_InvalidServiceWindow(t *testing.T) {
	offices := []OfficeSpec{{Name: "A", Counters: 1, MinService: 2 * time.Second, MaxService: time.Second}}
	if _, err := Build(offices, nil); err == nil {
		t.Fatal("expected error for maxService < minService")
	}
}

func TestConfig_OrderPreserved(t *testing.T) {
	docs := []DocumentSpec{
		{Name: "X", IssuingOffice: "A"},
		{Name: "Y", IssuingOffice: "B", Dependencies: []string{"X"}},
	}
	c, err := Build(sampleOffices(), docs)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	got := c.Documents()
	want := []string{"X", "Y"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Documents() = %v, want %v", got, want)
	}
}
