package graph

// Snapshot is a point-in-time copy of the four entity collections.
type Snapshot struct {
	Notes     []Record
	Tasks     []Record
	Contacts  []Record
	Documents []Record
}

// Records returns the collection of the given kind.
func (s Snapshot) Records(kind Kind) []Record {
	switch kind {
	case KindNote:
		return s.Notes
	case KindTask:
		return s.Tasks
	case KindContact:
		return s.Contacts
	case KindDocument:
		return s.Documents
	default:
		return nil
	}
}

// Len returns the total number of records.
func (s Snapshot) Len() int {
	return len(s.Notes) + len(s.Tasks) + len(s.Contacts) + len(s.Documents)
}
