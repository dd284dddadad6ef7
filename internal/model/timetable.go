package model

// ModuleKey identifies a module: unique per owner per semester
type ModuleKey struct {
	OwnerID    UserID
	Semester   int
	ModuleCode string
}

// Lesson is a single scheduled class slot within a module.
// Unique within its module by (LessonType, ClassNo).
type Lesson struct {
	OwnerID    UserID
	Semester   int
	ModuleCode string
	LessonType string
	ClassNo    string
}

// Key returns the owning module's key
func (l Lesson) Key() ModuleKey {
	return ModuleKey{OwnerID: l.OwnerID, Semester: l.Semester, ModuleCode: l.ModuleCode}
}
