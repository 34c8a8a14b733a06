package mission

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		fuelEmpty bool
		periapsis float64
		want      Outcome
	}{
		{"dry positive periapsis", true, 50000, PartialFailure},
		{"dry zero periapsis", true, 0, CriticalFailureDry},
		{"dry negative periapsis", true, -20000, CriticalFailureDry},
		{"suborbital zero", false, 0, CriticalFailure},
		{"suborbital negative", false, -100000, CriticalFailure},
		{"just under orbit floor", false, 69999, PartialSuccess},
		{"at orbit floor", false, 70000, SuccessAcceptable},
		{"under precision band", false, 73999, SuccessAcceptable},
		{"at band low edge", false, 74000, SuccessHighPrecision},
		{"inside band", false, 75000, SuccessHighPrecision},
		{"at band high edge", false, 76000, SuccessHighPrecision},
		{"just over band", false, 76001, SuccessAcceptable},
		{"barely positive", false, 1, PartialSuccess},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.fuelEmpty, tc.periapsis)
			if got != tc.want {
				t.Errorf("Classify(%v, %v) = %v, want %v", tc.fuelEmpty, tc.periapsis, got, tc.want)
			}
		})
	}
}

func TestOutcomeSuccess(t *testing.T) {
	success := []Outcome{SuccessHighPrecision, SuccessAcceptable, PartialSuccess}
	failure := []Outcome{PartialFailure, CriticalFailureDry, CriticalFailure}
	for _, o := range success {
		if !o.Success() {
			t.Errorf("%v should count as success", o)
		}
	}
	for _, o := range failure {
		if o.Success() {
			t.Errorf("%v should count as failure", o)
		}
	}
}
