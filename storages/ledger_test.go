package storages

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLedger(t *testing.T) {
	ctx := t.Context()
	ledger, err := OpenLedger(ctx, filepath.Join(t.TempDir(), "db", "ledger.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	runs := []Run{
		{
			ID:         "a",
			Task:       "compute 2+2",
			Outcome:    "done",
			Iterations: 3,
			Started:    base,
			Finished:   base.Add(time.Minute),
			Summary:    "It is 4.",
		},
		{
			ID:               "b",
			Task:             "prove P=NP",
			Outcome:          "abort_impossible",
			Iterations:       7,
			PromptTokens:     100,
			CompletionTokens: 20,
			Started:          base.Add(time.Hour),
			Finished:         base.Add(2 * time.Hour),
			OutputDir:        "output/b",
		},
	}
	for _, run := range runs {
		if err := ledger.Record(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ledger.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []Run{runs[1], runs[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("got diff %s", diff)
	}

	got, err = ledger.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("got %v", got)
	}

	// same id replaces
	runs[0].Outcome = "abort_iterations"
	if err := ledger.Record(ctx, runs[0]); err != nil {
		t.Fatal(err)
	}
	n, err := ledger.Count(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("got %d", n)
	}
	n, err = ledger.Count(ctx, "done")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("got %d", n)
	}
}
