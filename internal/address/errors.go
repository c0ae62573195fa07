package address

import "fmt"

// MappingError is raised for the structural failures spec.md §7 classifies
// as fatal-for-that-row: an mla rendering with more than 4 lines, or a
// geocode attribute the mapper cannot interpret. The orchestrator logs
// these and moves on to the next row; they never abort a file.
type MappingError struct {
	PID    string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("address %s: %s", e.PID, e.Reason)
}

func fatalf(pid, format string, args ...any) *MappingError {
	return &MappingError{PID: pid, Reason: fmt.Sprintf(format, args...)}
}
