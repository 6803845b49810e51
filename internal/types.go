package internal

type SourceFormat string

const (
	// FormatDirect sheets carry one reservation row per course with an explicit Reservations column.
	FormatDirect SourceFormat = "direct"
	// FormatGrouped sheets carry one row per booking; reservations are counted per
	// (instructor, course, section) group.
	FormatGrouped SourceFormat = "grouped"
)

type RawRecord struct {
	Row          int
	Course       string
	Language     string
	Enrollment   string
	Reservations string
	Uniquename   string
	Section      string

	// ReservationCount is set by the grouped adapter and wins over Reservations.
	ReservationCount *int
}

type NormalizedRecord struct {
	Department   string
	Level        string
	Students     int
	Reservations int
}

type GroupedRecord struct {
	Instructor   string
	Course       string
	Section      string
	Language     string
	Reservations int
	Students     int
}

type SourceStats struct {
	Source  string `json:"source"`
	Term    string `json:"term"`
	Read    int    `json:"read"`
	Kept    int    `json:"kept"`
	Dropped int    `json:"dropped"`
}
