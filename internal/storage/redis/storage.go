package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Room operations

func (s *Storage) CreateRoomIfAbsent(ctx context.Context, uri model.RoomURI) error {
	return s.client.SetNX(ctx, roomKey(uri), "1", 0).Err()
}

func (s *Storage) RoomExists(ctx context.Context, uri model.RoomURI) (bool, error) {
	exists, err := s.client.Exists(ctx, roomKey(uri)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Membership operations

func (s *Storage) CreateAnonymousUser(ctx context.Context, uri model.RoomURI, name string) (*model.Member, error) {
	id, err := s.client.Incr(ctx, userNextIDKey()).Result()
	if err != nil {
		return nil, err
	}

	member := &model.Member{
		RoomURI:  uri,
		UserID:   model.UserID(id),
		Name:     name,
		IsAuth:   false,
		JoinedAt: time.Now(),
	}

	// The names hash enforces per-room display name uniqueness atomically
	claimed, err := s.client.HSetNX(ctx, roomNamesKey(uri), name, id).Result()
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, model.ErrConflict
	}

	if err := s.saveMember(ctx, member, &model.User{ID: member.UserID, CreatedAt: member.JoinedAt}); err != nil {
		// Release the name claim so a retry is not blocked by a member
		// record that was never written
		s.client.HDel(ctx, roomNamesKey(uri), name)
		return nil, err
	}
	return member, nil
}

func (s *Storage) saveMember(ctx context.Context, member *model.Member, user *model.User) error {
	data, err := json.Marshal(member)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	if user != nil {
		userData, err := json.Marshal(user)
		if err != nil {
			return err
		}
		pipe.Set(ctx, userKey(user.ID), userData, 0)
	}
	pipe.SetNX(ctx, roomKey(member.RoomURI), "1", 0)
	pipe.HSet(ctx, roomMembersKey(member.RoomURI), strconv.FormatInt(int64(member.UserID), 10), data)
	pipe.SAdd(ctx, userRoomsKey(member.UserID), string(member.RoomURI))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetMember(ctx context.Context, uri model.RoomURI, id model.UserID) (*model.Member, error) {
	data, err := s.client.HGet(ctx, roomMembersKey(uri), strconv.FormatInt(int64(id), 10)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	var member model.Member
	if err := json.Unmarshal(data, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *Storage) RenameMember(ctx context.Context, uri model.RoomURI, id model.UserID, newName string) error {
	member, err := s.GetMember(ctx, uri, id)
	if err != nil {
		return err
	}
	if member.Name == newName {
		return nil
	}

	claimed, err := s.client.HSetNX(ctx, roomNamesKey(uri), newName, int64(id)).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrConflict
	}

	oldName := member.Name
	member.Name = newName
	data, err := json.Marshal(member)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, roomMembersKey(uri), strconv.FormatInt(int64(id), 10), data)
	pipe.HDel(ctx, roomNamesKey(uri), oldName)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) DeleteAnonymousUser(ctx context.Context, uri model.RoomURI, id model.UserID) (*model.Member, error) {
	member, err := s.GetMember(ctx, uri, id)
	if err != nil {
		return nil, err
	}

	// Cascade: membership, identity, config and all owned modules go together
	moduleFields, err := s.client.SMembers(ctx, userModulesKey(id)).Result()
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	pipe.HDel(ctx, roomMembersKey(uri), strconv.FormatInt(int64(id), 10))
	pipe.HDel(ctx, roomNamesKey(uri), member.Name)
	pipe.Del(ctx, userKey(id), userRoomsKey(id), configKey(id), userModulesKey(id))
	for _, field := range moduleFields {
		if key, ok := parseModuleField(id, field); ok {
			pipe.Del(ctx, moduleKey(key))
		}
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Storage) JoinRoom(ctx context.Context, uri model.RoomURI, id model.UserID) (*model.Member, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.client.HExists(ctx, roomMembersKey(uri), strconv.FormatInt(int64(id), 10)).Result()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.ErrConflict
	}

	claimed, err := s.client.HSetNX(ctx, roomNamesKey(uri), account.Username, int64(id)).Result()
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, model.ErrConflict
	}

	member := &model.Member{
		RoomURI:  uri,
		UserID:   id,
		Name:     account.Username,
		IsAuth:   true,
		JoinedAt: time.Now(),
	}
	if err := s.saveMember(ctx, member, nil); err != nil {
		s.client.HDel(ctx, roomNamesKey(uri), account.Username)
		return nil, err
	}
	return member, nil
}

func (s *Storage) LeaveRoom(ctx context.Context, uri model.RoomURI, id model.UserID) error {
	member, err := s.GetMember(ctx, uri, id)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.HDel(ctx, roomMembersKey(uri), strconv.FormatInt(int64(id), 10))
	pipe.HDel(ctx, roomNamesKey(uri), member.Name)
	pipe.SRem(ctx, userRoomsKey(id), string(uri))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListMembers(ctx context.Context, uri model.RoomURI) ([]*model.Member, error) {
	entries, err := s.client.HGetAll(ctx, roomMembersKey(uri)).Result()
	if err != nil {
		return nil, err
	}

	members := make([]*model.Member, 0, len(entries))
	for _, data := range entries {
		var member model.Member
		if err := json.Unmarshal([]byte(data), &member); err != nil {
			return nil, err
		}
		members = append(members, &member)
	}
	return members, nil
}

func (s *Storage) ListRoomsForUser(ctx context.Context, id model.UserID) ([]model.RoomURI, error) {
	uris, err := s.client.SMembers(ctx, userRoomsKey(id)).Result()
	if err != nil {
		return nil, err
	}

	rooms := make([]model.RoomURI, 0, len(uris))
	for _, uri := range uris {
		rooms = append(rooms, model.RoomURI(uri))
	}
	return rooms, nil
}

func (s *Storage) IsAuthUser(ctx context.Context, id model.UserID) (bool, error) {
	exists, err := s.client.Exists(ctx, accountKey(id)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Timetable operations

// moduleField is the "semester|moduleCode" form stored in the per-user module index
func moduleField(key model.ModuleKey) string {
	return fmt.Sprintf("%d|%s", key.Semester, key.ModuleCode)
}

func parseModuleField(owner model.UserID, field string) (model.ModuleKey, bool) {
	parts := strings.SplitN(field, "|", 2)
	if len(parts) != 2 {
		return model.ModuleKey{}, false
	}
	semester, err := strconv.Atoi(parts[0])
	if err != nil {
		return model.ModuleKey{}, false
	}
	return model.ModuleKey{OwnerID: owner, Semester: semester, ModuleCode: parts[1]}, true
}

func lessonEntry(lesson model.Lesson) string {
	return lesson.LessonType + "|" + lesson.ClassNo
}

func parseLessonEntry(key model.ModuleKey, entry string) (model.Lesson, bool) {
	parts := strings.SplitN(entry, "|", 2)
	if len(parts) != 2 {
		return model.Lesson{}, false
	}
	return model.Lesson{
		OwnerID:    key.OwnerID,
		Semester:   key.Semester,
		ModuleCode: key.ModuleCode,
		LessonType: parts[0],
		ClassNo:    parts[1],
	}, true
}

func (s *Storage) UpsertModuleLesson(ctx context.Context, lesson model.Lesson) error {
	key := lesson.Key()
	mKey := moduleKey(key)

	// Optimistic transaction: WATCH the module set so a racing writer aborts
	// the exec, surfacing ErrContention for the caller's retry loop
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, userKey(lesson.OwnerID)).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrNotFound
		}

		present, err := tx.SIsMember(ctx, mKey, lessonEntry(lesson)).Result()
		if err != nil {
			return err
		}
		if present {
			return model.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, mKey, lessonEntry(lesson))
			pipe.SAdd(ctx, userModulesKey(lesson.OwnerID), moduleField(key))
			return nil
		})
		return err
	}, mKey)

	if errors.Is(err, redis.TxFailedErr) {
		return storage.ErrContention
	}
	return err
}

func (s *Storage) DeleteLesson(ctx context.Context, lesson model.Lesson) error {
	return s.client.SRem(ctx, moduleKey(lesson.Key()), lessonEntry(lesson)).Err()
}

func (s *Storage) DeleteModule(ctx context.Context, key model.ModuleKey) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, moduleKey(key))
	pipe.SRem(ctx, userModulesKey(key.OwnerID), moduleField(key))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) DeleteSemester(ctx context.Context, owner model.UserID, semester int) error {
	fields, err := s.client.SMembers(ctx, userModulesKey(owner)).Result()
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for _, field := range fields {
		key, ok := parseModuleField(owner, field)
		if !ok || key.Semester != semester {
			continue
		}
		pipe.Del(ctx, moduleKey(key))
		pipe.SRem(ctx, userModulesKey(owner), field)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListLessons(ctx context.Context, filter storage.LessonFilter) ([]model.Lesson, error) {
	var owners []model.UserID
	if filter.RoomURI != "" {
		ids, err := s.client.HKeys(ctx, roomMembersKey(filter.RoomURI)).Result()
		if err != nil {
			return nil, err
		}
		for _, raw := range ids {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, err
			}
			owners = append(owners, model.UserID(id))
		}
	} else {
		owners = append(owners, filter.OwnerID)
	}

	var lessons []model.Lesson
	for _, owner := range owners {
		fields, err := s.client.SMembers(ctx, userModulesKey(owner)).Result()
		if err != nil {
			return nil, err
		}
		for _, field := range fields {
			key, ok := parseModuleField(owner, field)
			if !ok {
				continue
			}
			entries, err := s.client.SMembers(ctx, moduleKey(key)).Result()
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if lesson, ok := parseLessonEntry(key, entry); ok {
					lessons = append(lessons, lesson)
				}
			}
		}
	}
	return lessons, nil
}

// Config operations

func (s *Storage) GetConfig(ctx context.Context, owner model.UserID) (string, error) {
	data, err := s.client.Get(ctx, configKey(owner)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrNotFound
		}
		return "", err
	}
	return data, nil
}

func (s *Storage) SetConfig(ctx context.Context, owner model.UserID, data string) error {
	return s.client.Set(ctx, configKey(owner), data, 0).Err()
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, username, passwordHash string) (*model.Account, error) {
	id, err := s.client.Incr(ctx, userNextIDKey()).Result()
	if err != nil {
		return nil, err
	}

	// The username index claim is the uniqueness gate
	claimed, err := s.client.SetNX(ctx, usernameIndexKey(username), id, 0).Result()
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, model.ErrConflict
	}

	now := time.Now()
	account := &model.Account{
		UserID:       model.UserID(id),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}

	accountData, err := json.Marshal(account)
	if err != nil {
		return nil, err
	}
	userData, err := json.Marshal(&model.User{ID: account.UserID, CreatedAt: now})
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, accountKey(account.UserID), accountData, 0)
	pipe.Set(ctx, userKey(account.UserID), userData, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.UserID) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	raw, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, model.UserID(id))
}
