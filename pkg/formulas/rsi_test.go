package formulas

import "testing"

func TestCalculateRSI(t *testing.T) {
	if got := CalculateRSI([]float64{100, 101, 102}, 14); got != nil {
		t.Errorf("CalculateRSI() = %v, want nil for too few closes", *got)
	}

	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	got := CalculateRSI(rising, 14)
	if got == nil {
		t.Fatal("CalculateRSI() = nil, want value")
	}
	if *got < 99 || *got > 100 {
		t.Errorf("CalculateRSI() = %v, want near 100 for a pure uptrend", *got)
	}

	falling := make([]float64, 30)
	for i := range falling {
		falling[i] = 130 - float64(i)
	}
	got = CalculateRSI(falling, 14)
	if got == nil {
		t.Fatal("CalculateRSI() = nil, want value")
	}
	if *got > 1 {
		t.Errorf("CalculateRSI() = %v, want near 0 for a pure downtrend", *got)
	}
}
