package indexer

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeLookbackWindow(t *testing.T) {
	got, err := SplitRange(880, 1000, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].To-got[0].From+1 != 121 {
		t.Fatalf("lookback should fit one request: %+v", got)
	}

	got, err = SplitRange(880, 1000, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var total uint64
	for _, r := range got {
		total += r.To - r.From + 1
	}
	if len(got) != 3 || total != 121 || got[2].To != 1000 {
		t.Fatalf("chunking mismatch: %+v", got)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero chunk size")
	}
}
