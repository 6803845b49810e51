package pipeline

import (
	"iter"

	"streamstats/internal"
)

type LevelCounts struct {
	Students     int `json:"students"`
	Reservations int `json:"reservations"`
}

type DeptAggregate struct {
	TotalStudents     int                     `json:"total_students"`
	TotalReservations int                     `json:"total_reservations"`
	Levels            map[string]*LevelCounts `json:"levels"`
}

type TermAggregate struct {
	TotalStudents     int                       `json:"total_students"`
	TotalReservations int                       `json:"total_reservations"`
	Departments       map[string]*DeptAggregate `json:"departments"`
}

func NewTermAggregate() *TermAggregate {
	return &TermAggregate{Departments: map[string]*DeptAggregate{}}
}

// Add folds one record into the level, its department and the term totals.
func (t *TermAggregate) Add(rec internal.NormalizedRecord) {
	if t.Departments == nil {
		t.Departments = map[string]*DeptAggregate{}
	}
	dept, ok := t.Departments[rec.Department]
	if !ok {
		dept = &DeptAggregate{Levels: map[string]*LevelCounts{}}
		t.Departments[rec.Department] = dept
	}
	level, ok := dept.Levels[rec.Level]
	if !ok {
		level = &LevelCounts{}
		dept.Levels[rec.Level] = level
	}

	level.Students += rec.Students
	level.Reservations += rec.Reservations

	dept.TotalStudents += rec.Students
	dept.TotalReservations += rec.Reservations

	t.TotalStudents += rec.Students
	t.TotalReservations += rec.Reservations
}

func AggregateTerm(records iter.Seq[internal.NormalizedRecord]) *TermAggregate {
	term := NewTermAggregate()
	for rec := range records {
		term.Add(rec)
	}
	return term
}

// Consistent reports whether every total equals the sum of its children.
func (t *TermAggregate) Consistent() bool {
	students, reservations := 0, 0
	for _, dept := range t.Departments {
		ls, lr := 0, 0
		for _, level := range dept.Levels {
			if level.Students < 0 || level.Reservations < 0 {
				return false
			}
			ls += level.Students
			lr += level.Reservations
		}
		if ls != dept.TotalStudents || lr != dept.TotalReservations {
			return false
		}
		students += dept.TotalStudents
		reservations += dept.TotalReservations
	}
	return students == t.TotalStudents && reservations == t.TotalReservations
}
