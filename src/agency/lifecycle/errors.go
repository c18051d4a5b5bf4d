package lifecycle

import "fmt"

// MembershipError reports an agent attached to a mission outside its
// infiltration country. Client-correctable; nothing is committed.
type MembershipError struct {
	CodeName string
}

func (e *MembershipError) Error() string {
	return fmt.Sprintf("agent %s is not infiltrated in the mission's country", e.CodeName)
}

// MissionClosedError reports an attempt to reopen or flip a mission whose
// status already reached Success or Failure. Client-correctable.
type MissionClosedError struct {
	Name   string
	Status string
}

func (e *MissionClosedError) Error() string {
	return fmt.Sprintf("mission %s is closed with status %s; terminal statuses are final", e.Name, e.Status)
}

// IntegrityError reports an entity the engine expects to find (because the
// same command just wrote it, or a live foreign key references it) going
// missing mid-handler. Indicates storage corruption, not a client mistake.
type IntegrityError struct {
	Entity string
	ID     string
	Err    error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity fault: %s %s vanished during command: %v", e.Entity, e.ID, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }
