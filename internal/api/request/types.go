package request

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateUserRequest is the request body for renaming a room member
type UpdateUserRequest struct {
	Name string `json:"name"`
}

// LessonRequest is the request body for creating or deleting a lesson
type LessonRequest struct {
	Semester   int    `json:"semester"`
	ModuleCode string `json:"moduleCode"`
	LessonType string `json:"lessonType"`
	ClassNo    string `json:"classNo"`
}

// UpdateConfigRequest is the request body for replacing a user's config.
// Data carries the opaque JSON blob as a string.
type UpdateConfigRequest struct {
	Data string `json:"data"`
}
