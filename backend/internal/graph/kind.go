package graph

import (
	"fmt"
	"strings"

	apperrors "graphspace/backend/pkg/errors"
)

// Kind is the closed set of entity kinds the engine knows about.
type Kind int

const (
	KindNote Kind = iota
	KindTask
	KindContact
	KindDocument
)

// Kinds lists every kind in rebuild order.
var Kinds = []Kind{KindNote, KindTask, KindContact, KindDocument}

// String returns the singular lower-case name ("note", "task", ...).
func (k Kind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindTask:
		return "task"
	case KindContact:
		return "contact"
	case KindDocument:
		return "document"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Collection returns the top-level key of the persisted document ("notes", ...).
func (k Kind) Collection() string {
	switch k {
	case KindNote:
		return "notes"
	case KindTask:
		return "tasks"
	case KindContact:
		return "contacts"
	case KindDocument:
		return "documents"
	default:
		return ""
	}
}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	return k >= KindNote && k <= KindDocument
}

// MarshalText renders the kind by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, apperrors.NewUnknownKind(k.String())
	}
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts the singular or collection name of a kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "note", "notes":
		return KindNote, nil
	case "task", "tasks":
		return KindTask, nil
	case "contact", "contacts":
		return KindContact, nil
	case "document", "documents":
		return KindDocument, nil
	default:
		return 0, apperrors.NewUnknownKind(s)
	}
}

// Key identifies a node: the entity kind plus the entity id, kept as a pair so
// ids may contain any character.
type Key struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// NewKey is shorthand for Key{Kind: kind, ID: id}.
func NewKey(kind Kind, id string) Key {
	return Key{Kind: kind, ID: id}
}

// String renders the key for logs and external systems only; it is never
// parsed back.
func (k Key) String() string {
	return k.Kind.String() + "_" + k.ID
}
