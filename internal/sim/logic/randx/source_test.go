package randx

import "testing"

func TestNew_SameSeedSameSequence(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestSampleIndices_DistinctAndBounded(t *testing.T) {
	src := New(7)
	got := SampleIndices(src, 1000, 50)
	if len(got) != 50 {
		t.Fatalf("len=%d want 50", len(got))
	}
	seen := map[int]bool{}
	for _, i := range got {
		if i < 0 || i >= 1000 {
			t.Fatalf("index out of range: %d", i)
		}
		if seen[i] {
			t.Fatalf("duplicate index %d", i)
		}
		seen[i] = true
	}
	if all := SampleIndices(src, 5, 10); len(all) != 5 {
		t.Fatalf("k>n should return all n indices, got %d", len(all))
	}
}

func TestChance_Extremes(t *testing.T) {
	src := New(1)
	for i := 0; i < 20; i++ {
		if Chance(src, 0) {
			t.Fatalf("p=0 fired")
		}
		if !Chance(src, 1) {
			t.Fatalf("p=1 did not fire")
		}
	}
}

func TestFixed_Cycles(t *testing.T) {
	f := &Fixed{Values: []float64{0.1, 0.9}}
	if f.Float64() != 0.1 || f.Float64() != 0.9 || f.Float64() != 0.1 {
		t.Fatalf("fixed source did not cycle")
	}
	if n := f.Intn(10); n != 9 {
		t.Fatalf("Intn=%d want 9", n)
	}
}
