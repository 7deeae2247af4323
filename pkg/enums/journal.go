package enums

import "fmt"

// JournalKind groups journal entries by the pipeline that wrote them.
type JournalKind string

const (
	JournalKindPayment JournalKind = "payment"
	JournalKindPayout  JournalKind = "payout"
)

var validJournalKinds = []JournalKind{
	JournalKindPayment,
	JournalKindPayout,
}

// String implements fmt.Stringer.
func (j JournalKind) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JournalKind.
func (j JournalKind) IsValid() bool {
	for _, candidate := range validJournalKinds {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJournalKind converts raw input into a JournalKind.
func ParseJournalKind(value string) (JournalKind, error) {
	for _, candidate := range validJournalKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid journal kind %q", value)
}

// JournalOutcome records how an upstream request ended.
type JournalOutcome string

const (
	JournalOutcomeSucceeded JournalOutcome = "succeeded"
	JournalOutcomeFailed    JournalOutcome = "failed"
	JournalOutcomeSuspended JournalOutcome = "suspended"
)

var validJournalOutcomes = []JournalOutcome{
	JournalOutcomeSucceeded,
	JournalOutcomeFailed,
	JournalOutcomeSuspended,
}

// String implements fmt.Stringer.
func (j JournalOutcome) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JournalOutcome.
func (j JournalOutcome) IsValid() bool {
	for _, candidate := range validJournalOutcomes {
		if candidate == j {
			return true
		}
	}
	return false
}
