package directory

import (
	"fmt"
	"sync"

	"github.com/vedhaiygl/smart-attendance-api/internal/models"
)

// Directory is the read-only student roster the attendance core resolves
// enrollments against. The canonical student list lives here; courses only
// hold student IDs.
type Directory interface {
	Find(id string) (models.Student, bool)
	List() []models.Student
}

// Static is an in-memory directory seeded at startup.
type Static struct {
	mu       sync.RWMutex
	students map[string]models.Student
	order    []string
}

// NewStatic builds a directory from the given roster.
func NewStatic(students []models.Student) *Static {
	d := &Static{students: make(map[string]models.Student, len(students))}
	for _, s := range students {
		if _, exists := d.students[s.ID]; exists {
			continue
		}
		if s.AnonymizedName == "" {
			s.AnonymizedName = fmt.Sprintf("Student %03d", len(d.order)+1)
		}
		d.students[s.ID] = s
		d.order = append(d.order, s.ID)
	}
	return d
}

// Find returns the student with the given id.
func (d *Static) Find(id string) (models.Student, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.students[id]
	return s, ok
}

// List returns the roster in seed order.
func (d *Static) List() []models.Student {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Student, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.students[id])
	}
	return out
}

// Add registers a student after the seeded roster.
func (d *Static) Add(s models.Student) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.students[s.ID]; exists {
		return
	}
	if s.AnonymizedName == "" {
		s.AnonymizedName = fmt.Sprintf("Student %03d", len(d.order)+1)
	}
	d.students[s.ID] = s
	d.order = append(d.order, s.ID)
}

// Seed returns the default development roster.
func Seed() []models.Student {
	return []models.Student{
		{ID: "stu-001", Name: "Aarav Sharma", AnonymizedName: "Student 001"},
		{ID: "stu-002", Name: "Diya Patel", AnonymizedName: "Student 002"},
		{ID: "stu-003", Name: "Rohan Gupta", AnonymizedName: "Student 003"},
		{ID: "stu-004", Name: "Ananya Iyer", AnonymizedName: "Student 004"},
		{ID: "stu-005", Name: "Vikram Nair", AnonymizedName: "Student 005"},
		{ID: "stu-006", Name: "Sneha Reddy", AnonymizedName: "Student 006"},
		{ID: "stu-007", Name: "Karthik Menon", AnonymizedName: "Student 007"},
		{ID: "stu-008", Name: "Priya Desai", AnonymizedName: "Student 008"},
	}
}
