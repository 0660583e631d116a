package bookingflow

import "strings"

// Step identifies one screen of the booking flow.
type Step string

const (
	StepLocation   Step = "location"
	StepService    Step = "service"
	StepTechnician Step = "technician"
	StepTime       Step = "time"
	StepDetails    Step = "details"
	StepConfirm    Step = "confirm"
)

// canonicalOrder is the reference position of every known step.
var canonicalOrder = []Step{
	StepLocation,
	StepService,
	StepTechnician,
	StepTime,
	StepDetails,
	StepConfirm,
}

var requiredSteps = map[Step]bool{
	StepService:    true,
	StepTechnician: true,
	StepTime:       true,
	StepConfirm:    true,
}

var stepLabels = map[Step]string{
	StepLocation:   "Choose a location",
	StepService:    "Choose services",
	StepTechnician: "Choose a technician",
	StepTime:       "Pick a time",
	StepDetails:    "Your details",
	StepConfirm:    "Confirm booking",
}

// ParseStep maps a raw identifier to a known step, ignoring case and spaces.
func ParseStep(raw string) (Step, bool) {
	s := Step(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := stepLabels[s]
	return s, ok
}

// IsRequired returns true for steps every flow must contain.
func (s Step) IsRequired() bool {
	return requiredSteps[s]
}

func (s Step) canonicalIndex() int {
	for i, c := range canonicalOrder {
		if c == s {
			return i
		}
	}
	return -1
}

// StepLabel returns the display title of a step.
func StepLabel(s Step) string {
	if label, ok := stepLabels[s]; ok {
		return label
	}
	return string(s)
}
