package merge

import (
	"reflect"
	"testing"

	"bpmastats/internal/extract"
)

func TestSetLastWriteWins(t *testing.T) {
	t.Parallel()

	s := New[string, int]()
	s.Put("a", 3)
	s.Put("b", 1)
	if replaced := s.Put("a", 7); !replaced {
		t.Fatal("second Put should report a replacement")
	}
	if v, _ := s.Get("a"); v != 7 {
		t.Fatalf("last write wins: got %d want 7", v)
	}
	if got, want := s.Items(), []int{7, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("items: got %#v want %#v", got, want)
	}
	if got, want := s.Keys(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys: got %#v want %#v", got, want)
	}
	if s.Len() != 2 || s.Overwrites() != 1 {
		t.Fatalf("len=%d overwrites=%d", s.Len(), s.Overwrites())
	}
	if _, ok := s.Get("z"); ok {
		t.Fatal("Get on a missing key")
	}
}

func TestSetItemsIsACopy(t *testing.T) {
	t.Parallel()

	s := New[int, string]()
	s.Put(1, "x")
	items := s.Items()
	items[0] = "mutated"
	if v, _ := s.Get(1); v != "x" {
		t.Fatalf("Items leaked internal storage: got %q", v)
	}
}

type kv struct {
	k string
	v int
}

func keyOfKV(r kv) (string, bool) { return r.k, r.k != "" }

func TestMergeOfSplitsEqualsConcatenation(t *testing.T) {
	t.Parallel()

	stream := []kv{{"a", 1}, {"b", 2}, {"a", 3}, {"c", 4}, {"", 9}, {"b", 5}, {"d", 6}, {"a", 8}}

	whole, dropped := Collapse(stream, keyOfKV)
	if dropped != 1 {
		t.Fatalf("dropped: got %d want 1", dropped)
	}

	for cut := 0; cut <= len(stream); cut++ {
		left, _ := Collapse(stream[:cut], keyOfKV)
		right, _ := Collapse(stream[cut:], keyOfKV)
		left.Merge(right)
		if !reflect.DeepEqual(left.Items(), whole.Items()) || !reflect.DeepEqual(left.Keys(), whole.Keys()) {
			t.Fatalf("cut %d: got %#v want %#v", cut, left.Items(), whole.Items())
		}
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	a, _ := Collapse([]kv{{"a", 1}, {"b", 2}}, keyOfKV)
	b, _ := Collapse([]kv{{"a", 1}, {"b", 2}}, keyOfKV)
	a.Merge(b)
	a.Merge(nil)
	if got, want := a.Items(), []kv{{"a", 1}, {"b", 2}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("re-merge: got %#v want %#v", got, want)
	}
}

func TestRecordsKeepLatestQuantity(t *testing.T) {
	t.Parallel()

	p := extract.Period{Year: 2024, Month: 3}
	first := &extract.Result{
		Indicators: []extract.IndicatorRecord{{Period: p, Label: "Atendimentos registrados", Quantity: 3}},
		Rescues: []extract.RescueRecord{
			{Period: p, CommonName: "Tucano", ScientificName: "Ramphastos toco", Quantity: 2},
			{Period: p, CommonName: "Sem nome", Quantity: 1},
			{Period: p, Quantity: 5},
		},
	}
	second := &extract.Result{
		Indicators: []extract.IndicatorRecord{{Period: p, Label: "ATENDIMENTOS  REGISTRADOS", Quantity: 7}},
		Rescues: []extract.RescueRecord{
			{Period: p, CommonName: "Tucano-toco", ScientificName: " ramphastos TOCO ", Quantity: 4},
		},
	}

	m := NewRecords()
	m.Add(first)
	m.Add(second)

	if m.Indicators.Len() != 1 {
		t.Fatalf("indicators: got %d keys want 1", m.Indicators.Len())
	}
	if got := m.Indicators.Items()[0].Quantity; got != 7 {
		t.Fatalf("indicator quantity: got %d want 7 (replaced, not summed)", got)
	}
	tucano, ok := m.Rescues.Get(RescueKey{Period: 202403, Name: "ramphastos toco"})
	if !ok || tucano.Quantity != 4 || tucano.CommonName != "Tucano-toco" {
		t.Fatalf("rescue: got %#v", tucano)
	}
	if _, ok := m.Rescues.Get(RescueKey{Period: 202403, Name: "sem nome"}); !ok {
		t.Fatal("common-name fallback key missing")
	}
	if m.Dropped != 1 || m.Len() != 3 || m.Overwrites() != 2 {
		t.Fatalf("dropped=%d len=%d overwrites=%d", m.Dropped, m.Len(), m.Overwrites())
	}
}

func TestSpanKeyOf(t *testing.T) {
	t.Parallel()

	k, ok := SpanKeyOf(extract.SpanRecord{Registration: " 123 ", Year: 2024, Parcel: 2})
	if !ok || k != (SpanKey{Registration: "123", Year: 2024, Parcel: 2}) {
		t.Fatalf("SpanKeyOf: got %#v,%v", k, ok)
	}
	if _, ok := SpanKeyOf(extract.SpanRecord{Registration: "123"}); ok {
		t.Fatal("span without year must not be keyable")
	}
}
