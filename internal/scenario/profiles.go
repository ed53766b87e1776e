package scenario

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Profile names.
const (
	GameServer  = "GameServerUser"
	LoginServer = "LoginServerUser"
	HallServer  = "HallServerUser"
	StressTest  = "StressTestUser"
)

// DefaultPassword is the password every generated test account uses.
const DefaultPassword = "test123"

// JoinRoomName is the stats name for every join call regardless of room id.
const JoinRoomName = "/api/rooms/{id}/join"

// ErrParseResponse marks an accepted response whose body could not be read.
var ErrParseResponse = errors.New("Failed to parse response")

var (
	maxPlayerChoices = []int{2, 3, 4}
	entryFeeChoices  = []int{10, 20, 50, 100}
)

// GameServerUser models a player polling the game server.
func GameServerUser() *Profile {
	return &Profile{
		Name:        GameServer,
		Description: "health checks, game status, version and ping against the game server",
		Weight:      1,
		Wait:        Between(1*time.Second, 3*time.Second),
		Tasks: []*Task{
			{
				Name: "health_check", Weight: 1,
				Method: http.MethodGet, Path: "/health",
				Accept: Codes(200), FailFormat: "Unexpected status code: %d",
			},
			{
				Name: "get_game_status", Weight: 2,
				Method: http.MethodGet, Path: "/api/status",
				Accept: Codes(200), FailFormat: "Status check failed: %d",
			},
			{
				Name: "get_version", Weight: 1,
				Method: http.MethodGet, Path: "/api/version",
				Accept: AnyStatus,
			},
			{
				Name: "ping", Weight: 2,
				Method: http.MethodGet, Path: "/api/ping",
				Accept: AnyStatus,
			},
		},
		OnStart: func(s *Session) error {
			s.UserID = 0
			s.RoomID = ""
			return nil
		},
	}
}

// LoginServerUser models the register, login and profile flow.
func LoginServerUser() *Profile {
	return &Profile{
		Name:        LoginServer,
		Description: "registration, login and profile fetch against the login server",
		Weight:      1,
		Wait:        Between(2*time.Second, 5*time.Second),
		Tasks: []*Task{
			{
				Name: "health_check", Weight: 1,
				Method: http.MethodGet, Path: "/health",
				Accept: Codes(200), FailFormat: "Health check failed: %d",
			},
			{
				Name: "register_user", Weight: 2,
				Method: http.MethodPost, Path: "/api/register",
				Payload: func(s *Session) any {
					return map[string]any{
						"username": s.Username,
						"password": s.Password,
						"email":    s.Email(),
					}
				},
				// 409: the account already exists.
				Accept: Codes(200, 201, 409), FailFormat: "Registration failed: %d",
			},
			{
				Name: "login", Weight: 3,
				Method: http.MethodPost, Path: "/api/login",
				Payload: func(s *Session) any {
					return map[string]any{
						"username": s.Username,
						"password": s.Password,
					}
				},
				// 401: rejected credentials are a normal outcome.
				Accept: Codes(200, 401), FailFormat: "Login failed: %d",
			},
			{
				Name: "get_user_info", Weight: 1,
				Method: http.MethodGet, Path: "/api/user/info",
				Accept: AnyStatus,
			},
		},
		OnStart: func(s *Session) error {
			s.Username = NewUsername(time.Now())
			s.Password = DefaultPassword
			return nil
		},
	}
}

// HallServerUser models a player browsing, creating and joining rooms.
func HallServerUser() *Profile {
	return &Profile{
		Name:        HallServer,
		Description: "room listing, creation, joining and leaderboard against the hall server",
		Weight:      1,
		Wait:        Between(1*time.Second, 2*time.Second),
		Tasks: []*Task{
			{
				Name: "health_check", Weight: 1,
				Method: http.MethodGet, Path: "/health",
				Accept: Codes(200), FailFormat: "Health check failed: %d",
			},
			{
				Name: "get_rooms", Weight: 3,
				Method: http.MethodGet, Path: "/api/rooms",
				Accept: Codes(200), FailFormat: "Get rooms failed: %d",
			},
			{
				Name: "create_room", Weight: 2,
				Method: http.MethodPost, Path: "/api/rooms",
				Payload:    createRoomPayload,
				Accept:     Codes(200, 201),
				FailFormat: "Create room failed: %d",
				Handle:     storeRoomID,
			},
			{
				Name: "join_room", Weight: 2,
				Method: http.MethodPost, Path: JoinRoomName,
				PathFunc: func(s *Session) string {
					if s.RoomID == "" {
						s.RoomID = strconv.Itoa(1 + s.Rand.Intn(1000))
					}
					return fmt.Sprintf("/api/rooms/%s/join", s.RoomID)
				},
				Payload: func(s *Session) any {
					userID := s.UserID
					if userID == 0 {
						userID = 1
					}
					return map[string]any{"user_id": userID}
				},
				// 400/404: the room is full or gone.
				Accept: Codes(200, 400, 404), FailFormat: "Join room failed: %d",
			},
			{
				Name: "get_leaderboard", Weight: 1,
				Method: http.MethodGet, Path: "/api/leaderboard",
				Accept: AnyStatus,
			},
		},
		OnStart: func(s *Session) error {
			s.UserID = 0
			s.RoomID = ""
			return nil
		},
	}
}

// StressTestUser hammers the cheap endpoints with short think times.
func StressTestUser() *Profile {
	return &Profile{
		Name:        StressTest,
		Description: "high-frequency health, status and ping requests",
		Weight:      1,
		Wait:        Between(100*time.Millisecond, 500*time.Millisecond),
		Tasks: []*Task{
			{Name: "rapid_health_checks", Weight: 5, Method: http.MethodGet, Path: "/health", Accept: AnyStatus},
			{Name: "rapid_status_checks", Weight: 10, Method: http.MethodGet, Path: "/api/status", Accept: AnyStatus},
			{Name: "rapid_pings", Weight: 5, Method: http.MethodGet, Path: "/api/ping", Accept: AnyStatus},
		},
	}
}

func createRoomPayload(s *Session) any {
	return map[string]any{
		"name":        fmt.Sprintf("room_%d", 10000+s.Rand.Intn(90000)),
		"max_players": maxPlayerChoices[s.Rand.Intn(len(maxPlayerChoices))],
		"entry_fee":   entryFeeChoices[s.Rand.Intn(len(entryFeeChoices))],
	}
}

// storeRoomID keeps the room_id of a freshly created room. A missing or
// empty room_id (null, false, 0 or "") clears the stored one, so the next
// join picks a random room.
func storeRoomID(s *Session, body []byte) error {
	if !gjson.ValidBytes(body) {
		return ErrParseResponse
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ErrParseResponse
	}
	id := root.Get("room_id")
	if emptyRoomID(id) {
		s.RoomID = ""
		return nil
	}
	s.RoomID = id.String()
	return nil
}

func emptyRoomID(id gjson.Result) bool {
	switch id.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.Number:
		return id.Num == 0
	case gjson.String:
		return id.Str == ""
	}
	return !id.Exists()
}
