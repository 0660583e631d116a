package bookingflow

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want Flow
	}{
		{name: "nil", raw: nil, want: DefaultFlow()},
		{name: "empty", raw: []string{}, want: DefaultFlow()},
		{name: "garbage only", raw: []string{"payment", "", "??"}, want: DefaultFlow()},
		{
			name: "already canonical",
			raw:  []string{"service", "technician", "time", "confirm"},
			want: Flow{StepService, StepTechnician, StepTime, StepConfirm},
		},
		{
			name: "keeps configured order",
			raw:  []string{"technician", "service", "time", "confirm"},
			want: Flow{StepTechnician, StepService, StepTime, StepConfirm},
		},
		{
			name: "confirm moved to end",
			raw:  []string{"confirm", "service", "technician", "time"},
			want: Flow{StepService, StepTechnician, StepTime, StepConfirm},
		},
		{
			name: "duplicates collapse to first",
			raw:  []string{"service", "time", "service", "technician", "time"},
			want: Flow{StepService, StepTime, StepTechnician, StepConfirm},
		},
		{
			name: "case and whitespace",
			raw:  []string{" Service ", "TECHNICIAN", "time"},
			want: Flow{StepService, StepTechnician, StepTime, StepConfirm},
		},
		{
			name: "missing technician inserted after service",
			raw:  []string{"location", "service", "time", "details"},
			want: Flow{StepLocation, StepService, StepTechnician, StepTime, StepDetails, StepConfirm},
		},
		{
			name: "only optional steps",
			raw:  []string{"details"},
			want: Flow{StepService, StepTechnician, StepTime, StepDetails, StepConfirm},
		},
		{
			name: "missing service goes to front",
			raw:  []string{"time", "technician"},
			want: Flow{StepService, StepTime, StepTechnician, StepConfirm},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeIsIdempotentAndTotal(t *testing.T) {
	vocabulary := []string{"location", "service", "technician", "time", "details", "confirm", "CONFIRM", "pay", "", "Time"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		n := rng.Intn(12)
		raw := make([]string, n)
		for j := range raw {
			raw[j] = vocabulary[rng.Intn(len(vocabulary))]
		}

		once := Normalize(raw)
		twice := Normalize(toStrings(once))
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("not idempotent for %q: %v then %v", raw, once, twice)
		}

		counts := map[Step]int{}
		for _, s := range once {
			counts[s]++
		}
		for s := range requiredSteps {
			if counts[s] != 1 {
				t.Fatalf("required step %s appears %d times in %v (input %q)", s, counts[s], once, raw)
			}
		}
		for s, c := range counts {
			if c != 1 {
				t.Fatalf("step %s duplicated in %v", s, once)
			}
		}
		if once[len(once)-1] != StepConfirm {
			t.Fatalf("flow must end with confirm: %v", once)
		}
	}
}

func toStrings(f Flow) []string {
	out := make([]string, len(f))
	for i, s := range f {
		out[i] = string(s)
	}
	return out
}

func TestParseStored(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Flow
	}{
		{name: "null column", raw: "", want: DefaultFlow()},
		{name: "json null", raw: "null", want: DefaultFlow()},
		{name: "array", raw: `["technician","service","time","confirm"]`, want: Flow{StepTechnician, StepService, StepTime, StepConfirm}},
		{name: "object", raw: `{"steps":["location","service"]}`, want: Flow{StepLocation, StepService, StepTechnician, StepTime, StepConfirm}},
		{name: "mixed types", raw: `["service", 7, null, "time"]`, want: Flow{StepService, StepTechnician, StepTime, StepConfirm}},
		{name: "corrupt", raw: `["service",`, want: DefaultFlow()},
		{name: "scalar", raw: `"service"`, want: DefaultFlow()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseStored([]byte(tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNavigation(t *testing.T) {
	flow := Normalize([]string{"location", "service", "technician", "time", "confirm"})

	if got := FirstStep(flow); got != StepLocation {
		t.Fatalf("expected first step location, got %s", got)
	}

	next, ok := NextStep(StepTime, flow)
	if !ok || next != StepConfirm {
		t.Fatalf("expected confirm after time, got %s %v", next, ok)
	}
	if _, ok := NextStep(StepConfirm, flow); ok {
		t.Fatal("confirm must be terminal")
	}
	if _, ok := PrevStep(StepLocation, flow); ok {
		t.Fatal("first step has no previous step")
	}
	prev, ok := PrevStep(StepService, flow)
	if !ok || prev != StepLocation {
		t.Fatalf("expected location before service, got %s %v", prev, ok)
	}
	if _, ok := NextStep(StepDetails, flow); ok {
		t.Fatal("absent step has no next step")
	}
	if got := StepIndex(StepDetails, flow); got != -1 {
		t.Fatalf("expected -1 for absent step, got %d", got)
	}
	if got := StepIndex(StepConfirm, flow); got != 4 {
		t.Fatalf("expected confirm at 4, got %d", got)
	}
}

func TestZeroFlowBehavesAsDefault(t *testing.T) {
	var flow Flow
	if FirstStep(flow) != StepService {
		t.Fatalf("expected service, got %s", FirstStep(flow))
	}
	if next, ok := NextStep(StepService, flow); !ok || next != StepTechnician {
		t.Fatalf("expected technician, got %s", next)
	}
	if StepLabel(StepTime) != "Pick a time" {
		t.Fatalf("unexpected label %q", StepLabel(StepTime))
	}
}
