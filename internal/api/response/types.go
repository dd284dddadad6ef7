package response

import (
	"github.com/wheremyfriends/webapp/internal/model"
)

// Member represents a room member in API responses
type Member struct {
	UserID int64  `json:"userID"`
	Name   string `json:"name"`
	IsAuth bool   `json:"isAuth"`
}

// MemberFromModel converts a model.Member to a response Member
func MemberFromModel(m *model.Member) Member {
	return Member{
		UserID: int64(m.UserID),
		Name:   m.Name,
		IsAuth: m.IsAuth,
	}
}

// MembersFromModel converts a member list
func MembersFromModel(members []*model.Member) []Member {
	out := make([]Member, 0, len(members))
	for _, m := range members {
		out = append(out, MemberFromModel(m))
	}
	return out
}

// Lesson represents a lesson in API responses
type Lesson struct {
	UserID     int64  `json:"userID"`
	Semester   int    `json:"semester"`
	ModuleCode string `json:"moduleCode"`
	LessonType string `json:"lessonType"`
	ClassNo    string `json:"classNo"`
}

// LessonFromModel converts a model.Lesson to a response Lesson
func LessonFromModel(l model.Lesson) Lesson {
	return Lesson{
		UserID:     int64(l.OwnerID),
		Semester:   l.Semester,
		ModuleCode: l.ModuleCode,
		LessonType: l.LessonType,
		ClassNo:    l.ClassNo,
	}
}

// LessonsFromModel converts a lesson list
func LessonsFromModel(lessons []model.Lesson) []Lesson {
	out := make([]Lesson, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, LessonFromModel(l))
	}
	return out
}

// Account represents an authenticated account in API responses
type Account struct {
	UserID   int64  `json:"userID"`
	Username string `json:"username"`
}

// AccountFromModel converts a model.Account to a response Account
func AccountFromModel(a *model.Account) Account {
	return Account{
		UserID:   int64(a.UserID),
		Username: a.Username,
	}
}

// AuthResponse is the response for login
type AuthResponse struct {
	Account Account `json:"account"`
	Token   string  `json:"token"`
}

// RoomsResponse lists the rooms a user belongs to
type RoomsResponse struct {
	Rooms []string `json:"rooms"`
}

// RoomsFromModel converts a room URI list
func RoomsFromModel(rooms []model.RoomURI) RoomsResponse {
	out := make([]string, 0, len(rooms))
	for _, uri := range rooms {
		out = append(out, string(uri))
	}
	return RoomsResponse{Rooms: out}
}

// ConfigResponse carries a user's config blob
type ConfigResponse struct {
	Data string `json:"data"`
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status string `json:"status"`
}
