package cli

// Member is a room member as returned by the API
type Member struct {
	UserID int64  `json:"userID"`
	Name   string `json:"name"`
	IsAuth bool   `json:"isAuth"`
}

// Account is an account as returned by the API
type Account struct {
	UserID   int64  `json:"userID"`
	Username string `json:"username"`
}

// AuthResult is the login response
type AuthResult struct {
	Account Account `json:"account"`
	Token   string  `json:"token"`
}

// Lesson is a lesson as returned by the API
type Lesson struct {
	UserID     int64  `json:"userID"`
	Semester   int    `json:"semester"`
	ModuleCode string `json:"moduleCode"`
	LessonType string `json:"lessonType"`
	ClassNo    string `json:"classNo"`
}

// RoomsResult lists room URIs
type RoomsResult struct {
	Rooms []string `json:"rooms"`
}

// ConfigResult carries a config blob
type ConfigResult struct {
	Data string `json:"data"`
}

// HealthResult is the health check response
type HealthResult struct {
	Status string `json:"status"`
}
