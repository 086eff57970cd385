// Package access decides what an actor may do to a report. Every function
// is pure: no storage access, no side effects.
package access

import "github.com/clinicorp/n0-error-tracker/internal/models"

type Capability uint8

const (
	Read Capability = 1 << iota
	Write
	Delete
)

// Set is a bitmask of capabilities.
type Set uint8

func (s Set) Has(c Capability) bool { return s&Set(c) != 0 }

func (s Set) String() string {
	out := ""
	for _, c := range []struct {
		cap  Capability
		name string
	}{{Read, "read"}, {Write, "write"}, {Delete, "delete"}} {
		if s.Has(c.cap) {
			if out != "" {
				out += ","
			}
			out += c.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// For computes the capabilities actor holds on report.
func For(actor *models.User, report *models.ErrorReport) Set {
	if actor == nil || report == nil {
		return 0
	}
	if actor.IsAdmin() {
		return Set(Read | Write | Delete)
	}
	if IsAssignee(actor, report) {
		return Set(Read | Write)
	}
	return 0
}

// IsAssignee reports whether the report is assigned to actor. The stored
// agent id wins when present; rows without one fall back to the display
// name.
func IsAssignee(actor *models.User, report *models.ErrorReport) bool {
	if report.AssignedAgentID != nil {
		return *report.AssignedAgentID == actor.ID
	}
	return actor.Name != "" && report.AssignedAgent == actor.Name
}

func CanCreate(actor *models.User) bool        { return actor.IsAdmin() }
func CanImport(actor *models.User) bool        { return actor.IsAdmin() }
func CanBulk(actor *models.User) bool          { return actor.IsAdmin() }
func CanSendTestEmail(actor *models.User) bool { return actor.IsAdmin() }

// RestrictListing is true when list and search results must be narrowed to
// the actor's own assignments before any other filter.
func RestrictListing(actor *models.User) bool {
	return !actor.IsAdmin()
}
