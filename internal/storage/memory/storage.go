package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	nextUserID    model.UserID
	users         map[model.UserID]*model.User
	accounts      map[model.UserID]*model.Account
	usernameIndex map[string]model.UserID
	rooms         map[model.RoomURI]map[model.UserID]*model.Member
	modules       map[model.ModuleKey]map[lessonKey]struct{}
	configs       map[model.UserID]string
}

type lessonKey struct {
	lessonType string
	classNo    string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		accounts:      make(map[model.UserID]*model.Account),
		usernameIndex: make(map[string]model.UserID),
		rooms:         make(map[model.RoomURI]map[model.UserID]*model.Member),
		modules:       make(map[model.ModuleKey]map[lessonKey]struct{}),
		configs:       make(map[model.UserID]string),
	}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Room operations

func (s *Storage) CreateRoomIfAbsent(ctx context.Context, uri model.RoomURI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureRoom(uri)
	return nil
}

func (s *Storage) RoomExists(ctx context.Context, uri model.RoomURI) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[uri]
	return ok, nil
}

func (s *Storage) ensureRoom(uri model.RoomURI) map[model.UserID]*model.Member {
	room, ok := s.rooms[uri]
	if !ok {
		room = make(map[model.UserID]*model.Member)
		s.rooms[uri] = room
	}
	return room
}

// Membership operations

func (s *Storage) CreateAnonymousUser(ctx context.Context, uri model.RoomURI, name string) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.ensureRoom(uri)
	if nameTaken(room, name, 0) {
		return nil, model.ErrConflict
	}

	s.nextUserID++
	id := s.nextUserID
	s.users[id] = &model.User{ID: id, CreatedAt: time.Now()}

	member := &model.Member{
		RoomURI:  uri,
		UserID:   id,
		Name:     name,
		IsAuth:   false,
		JoinedAt: time.Now(),
	}
	room[id] = member
	return member, nil
}

func (s *Storage) GetMember(ctx context.Context, uri model.RoomURI, id model.UserID) (*model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.rooms[uri][id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return member, nil
}

func (s *Storage) RenameMember(ctx context.Context, uri model.RoomURI, id model.UserID, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[uri]
	if !ok {
		return model.ErrNotFound
	}
	member, ok := room[id]
	if !ok {
		return model.ErrNotFound
	}
	if nameTaken(room, newName, id) {
		return model.ErrConflict
	}

	// Replace the struct rather than mutating it: returned *Member pointers
	// are shared with callers outside the lock
	renamed := *member
	renamed.Name = newName
	room[id] = &renamed
	return nil
}

func (s *Storage) DeleteAnonymousUser(ctx context.Context, uri model.RoomURI, id model.UserID) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[uri]
	if !ok {
		return nil, model.ErrNotFound
	}
	member, ok := room[id]
	if !ok {
		return nil, model.ErrNotFound
	}

	delete(room, id)
	delete(s.users, id)
	delete(s.configs, id)
	s.deleteModulesLocked(id, func(model.ModuleKey) bool { return true })
	return member, nil
}

func (s *Storage) JoinRoom(ctx context.Context, uri model.RoomURI, id model.UserID) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrNotFound
	}

	room := s.ensureRoom(uri)
	if _, ok := room[id]; ok {
		return nil, model.ErrConflict
	}
	if nameTaken(room, account.Username, id) {
		return nil, model.ErrConflict
	}

	member := &model.Member{
		RoomURI:  uri,
		UserID:   id,
		Name:     account.Username,
		IsAuth:   true,
		JoinedAt: time.Now(),
	}
	room[id] = member
	return member, nil
}

func (s *Storage) LeaveRoom(ctx context.Context, uri model.RoomURI, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[uri]
	if !ok {
		return model.ErrNotFound
	}
	if _, ok := room[id]; !ok {
		return model.ErrNotFound
	}
	delete(room, id)
	return nil
}

func (s *Storage) ListMembers(ctx context.Context, uri model.RoomURI) ([]*model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]*model.Member, 0, len(s.rooms[uri]))
	for _, member := range s.rooms[uri] {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (s *Storage) ListRoomsForUser(ctx context.Context, id model.UserID) ([]model.RoomURI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var uris []model.RoomURI
	for uri, room := range s.rooms {
		if _, ok := room[id]; ok {
			uris = append(uris, uri)
		}
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })
	return uris, nil
}

func (s *Storage) IsAuthUser(ctx context.Context, id model.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[id]
	return ok, nil
}

// nameTaken reports whether another member of the room already uses the name
func nameTaken(room map[model.UserID]*model.Member, name string, self model.UserID) bool {
	for id, member := range room {
		if id != self && member.Name == name {
			return true
		}
	}
	return false
}

// Timetable operations

func (s *Storage) UpsertModuleLesson(ctx context.Context, lesson model.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[lesson.OwnerID]; !ok {
		return model.ErrNotFound
	}

	key := lesson.Key()
	lessons, ok := s.modules[key]
	if !ok {
		lessons = make(map[lessonKey]struct{})
		s.modules[key] = lessons
	}

	lk := lessonKey{lessonType: lesson.LessonType, classNo: lesson.ClassNo}
	if _, ok := lessons[lk]; ok {
		return model.ErrConflict
	}
	lessons[lk] = struct{}{}
	return nil
}

func (s *Storage) DeleteLesson(ctx context.Context, lesson model.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lessons, ok := s.modules[lesson.Key()]; ok {
		delete(lessons, lessonKey{lessonType: lesson.LessonType, classNo: lesson.ClassNo})
	}
	return nil
}

func (s *Storage) DeleteModule(ctx context.Context, key model.ModuleKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.modules, key)
	return nil
}

func (s *Storage) DeleteSemester(ctx context.Context, owner model.UserID, semester int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteModulesLocked(owner, func(key model.ModuleKey) bool { return key.Semester == semester })
	return nil
}

func (s *Storage) deleteModulesLocked(owner model.UserID, match func(model.ModuleKey) bool) {
	for key := range s.modules {
		if key.OwnerID == owner && match(key) {
			delete(s.modules, key)
		}
	}
}

func (s *Storage) ListLessons(ctx context.Context, filter storage.LessonFilter) ([]model.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make(map[model.UserID]struct{})
	if filter.RoomURI != "" {
		for id := range s.rooms[filter.RoomURI] {
			owners[id] = struct{}{}
		}
	} else {
		owners[filter.OwnerID] = struct{}{}
	}

	var lessons []model.Lesson
	for key, keys := range s.modules {
		if _, ok := owners[key.OwnerID]; !ok {
			continue
		}
		for lk := range keys {
			lessons = append(lessons, model.Lesson{
				OwnerID:    key.OwnerID,
				Semester:   key.Semester,
				ModuleCode: key.ModuleCode,
				LessonType: lk.lessonType,
				ClassNo:    lk.classNo,
			})
		}
	}

	sort.Slice(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		if a.OwnerID != b.OwnerID {
			return a.OwnerID < b.OwnerID
		}
		if a.Semester != b.Semester {
			return a.Semester < b.Semester
		}
		if a.ModuleCode != b.ModuleCode {
			return a.ModuleCode < b.ModuleCode
		}
		if a.LessonType != b.LessonType {
			return a.LessonType < b.LessonType
		}
		return a.ClassNo < b.ClassNo
	})
	return lessons, nil
}

// Config operations

func (s *Storage) GetConfig(ctx context.Context, owner model.UserID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.configs[owner]
	if !ok {
		return "", model.ErrNotFound
	}
	return data, nil
}

func (s *Storage) SetConfig(ctx context.Context, owner model.UserID, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[owner] = data
	return nil
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, username, passwordHash string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernameIndex[username]; ok {
		return nil, model.ErrConflict
	}

	s.nextUserID++
	id := s.nextUserID
	now := time.Now()
	s.users[id] = &model.User{ID: id, CreatedAt: now}

	account := &model.Account{
		UserID:       id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
	s.accounts[id] = account
	s.usernameIndex[username] = id
	return account, nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.UserID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return account, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrNotFound
	}
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return account, nil
}
