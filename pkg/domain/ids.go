// Package domain holds typed identifiers shared across modules.
//
// Typed IDs keep a case id from being passed where a user id is expected.
// All parsers reject empty input, malformed UUIDs and the nil UUID.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "caseflow/pkg/domain-errors"
)

type (
	CaseID  uuid.UUID
	UserID  uuid.UUID
	EventID uuid.UUID
)

func NewCaseID() CaseID   { return CaseID(uuid.New()) }
func NewEventID() EventID { return EventID(uuid.New()) }

func (id CaseID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string  { return uuid.UUID(id).String() }
func (id EventID) String() string { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id CaseID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id EventID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *CaseID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = CaseID(u)
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *EventID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = EventID(u)
	return nil
}

// ParseCaseID parses a case identifier at a trust boundary.
func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case id")
	return CaseID(u), err
}

// ParseUserID parses a user identifier at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseEventID parses an event identifier at a trust boundary.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event id")
	return EventID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "invalid %s", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "invalid %s", field)
	}
	return u, nil
}
