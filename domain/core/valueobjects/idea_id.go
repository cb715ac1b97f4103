package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// IdeaID is a value object representing a unique idea identifier
type IdeaID struct {
	value string
}

// NewIdeaID creates a new random IdeaID
func NewIdeaID() IdeaID {
	return IdeaID{value: uuid.New().String()}
}

// ParseIdeaID creates an IdeaID from an existing string
func ParseIdeaID(id string) (IdeaID, error) {
	if id == "" {
		return IdeaID{}, errors.New("idea ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return IdeaID{}, errors.New("idea ID must be a valid UUID")
	}
	return IdeaID{value: id}, nil
}

// MustParseIdeaID parses id and panics on failure. Intended for tests and
// trusted storage rows.
func MustParseIdeaID(id string) IdeaID {
	v, err := ParseIdeaID(id)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the string representation of the IdeaID
func (id IdeaID) String() string {
	return id.value
}

// Equals checks if two IdeaIDs are equal
func (id IdeaID) Equals(other IdeaID) bool {
	return id.value == other.value
}

// IsZero checks if the IdeaID is the zero value
func (id IdeaID) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (id IdeaID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *IdeaID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		id.value = ""
		return nil
	}
	parsed, err := ParseIdeaID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
