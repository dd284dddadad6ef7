package model

// Action identifies the kind of change an event describes
type Action string

const (
	ActionCreateLesson   Action = "CREATE_LESSON"
	ActionDeleteLesson   Action = "DELETE_LESSON"
	ActionDeleteModule   Action = "DELETE_MODULE"
	ActionResetTimetable Action = "RESET_TIMETABLE"
	ActionCreateUser     Action = "CREATE_USER"
	ActionUpdateUser     Action = "UPDATE_USER"
	ActionDeleteUser     Action = "DELETE_USER"
)

// LessonEvent describes a lesson or module change, delivered on room-keyed streams.
// DELETE_MODULE and RESET_TIMETABLE carry empty strings in the fields that do not
// apply to them, matching the wire format subscribers expect.
type LessonEvent struct {
	Action     Action `json:"action"`
	UserID     UserID `json:"userID"`
	Semester   int    `json:"semester"`
	ModuleCode string `json:"moduleCode"`
	LessonType string `json:"lessonType"`
	ClassNo    string `json:"classNo"`
}

// MemberEvent describes a room membership change, delivered on room-keyed streams.
// DELETE_USER events carry an empty name.
type MemberEvent struct {
	Action Action `json:"action"`
	UserID UserID `json:"userID"`
	Name   string `json:"name"`
	IsAuth bool   `json:"isAuth"`
}

// CreateLessonEvent builds the CREATE_LESSON event for a lesson, used both for
// live publishes and for snapshot-derived synthetic creates
func CreateLessonEvent(l Lesson) LessonEvent {
	return LessonEvent{
		Action:     ActionCreateLesson,
		UserID:     l.OwnerID,
		Semester:   l.Semester,
		ModuleCode: l.ModuleCode,
		LessonType: l.LessonType,
		ClassNo:    l.ClassNo,
	}
}
