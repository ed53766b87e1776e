package scenario

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskFact struct {
	name   string
	weight int
	method string
	path   string
	accept string
}

func TestProfiles_Declarations(t *testing.T) {
	tests := []struct {
		profile  *Profile
		waitMin  string
		waitMax  string
		expected []taskFact
	}{
		{
			profile: GameServerUser(), waitMin: "1s", waitMax: "3s",
			expected: []taskFact{
				{"health_check", 1, http.MethodGet, "/health", "200"},
				{"get_game_status", 2, http.MethodGet, "/api/status", "200"},
				{"get_version", 1, http.MethodGet, "/api/version", "any"},
				{"ping", 2, http.MethodGet, "/api/ping", "any"},
			},
		},
		{
			profile: LoginServerUser(), waitMin: "2s", waitMax: "5s",
			expected: []taskFact{
				{"health_check", 1, http.MethodGet, "/health", "200"},
				{"register_user", 2, http.MethodPost, "/api/register", "200,201,409"},
				{"login", 3, http.MethodPost, "/api/login", "200,401"},
				{"get_user_info", 1, http.MethodGet, "/api/user/info", "any"},
			},
		},
		{
			profile: HallServerUser(), waitMin: "1s", waitMax: "2s",
			expected: []taskFact{
				{"health_check", 1, http.MethodGet, "/health", "200"},
				{"get_rooms", 3, http.MethodGet, "/api/rooms", "200"},
				{"create_room", 2, http.MethodPost, "/api/rooms", "200,201"},
				{"join_room", 2, http.MethodPost, JoinRoomName, "200,400,404"},
				{"get_leaderboard", 1, http.MethodGet, "/api/leaderboard", "any"},
			},
		},
		{
			profile: StressTestUser(), waitMin: "100ms", waitMax: "500ms",
			expected: []taskFact{
				{"rapid_health_checks", 5, http.MethodGet, "/health", "any"},
				{"rapid_status_checks", 10, http.MethodGet, "/api/status", "any"},
				{"rapid_pings", 5, http.MethodGet, "/api/ping", "any"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.profile.Name, func(t *testing.T) {
			assert.Equal(t, tt.waitMin, tt.profile.Wait.Min.String())
			assert.Equal(t, tt.waitMax, tt.profile.Wait.Max.String())
			require.Len(t, tt.profile.Tasks, len(tt.expected))
			for i, want := range tt.expected {
				got := tt.profile.Tasks[i]
				assert.Equal(t, want.name, got.Name)
				assert.Equal(t, want.weight, got.Weight, want.name)
				assert.Equal(t, want.method, got.Method, want.name)
				assert.Equal(t, want.path, got.Path, want.name)
				assert.Equal(t, want.accept, got.Accept.String(), want.name)
			}
		})
	}
}

func TestLoginServerUser_OnStart(t *testing.T) {
	p := LoginServerUser()
	s := NewSession(p.Name, rand.New(rand.NewSource(1)))
	require.NoError(t, p.OnStart(s))

	assert.True(t, strings.HasPrefix(s.Username, "testuser_"))
	assert.Equal(t, DefaultPassword, s.Password)

	register, _ := p.Task("register_user")
	req := register.Build(s)
	body := req.Body.(map[string]any)
	assert.Equal(t, s.Username, body["username"])
	assert.Equal(t, "test123", body["password"])
	assert.Equal(t, s.Username+"@example.com", body["email"])

	login, _ := p.Task("login")
	body = login.Build(s).Body.(map[string]any)
	assert.Len(t, body, 2)
	assert.Equal(t, s.Username, body["username"])
}

func TestCreateRoomPayload(t *testing.T) {
	p := HallServerUser()
	task, ok := p.Task("create_room")
	require.True(t, ok)
	s := NewSession(p.Name, rand.New(rand.NewSource(3)))

	for i := 0; i < 200; i++ {
		body := task.Build(s).Body.(map[string]any)

		name := body["name"].(string)
		require.True(t, strings.HasPrefix(name, "room_"))
		n, err := strconv.Atoi(strings.TrimPrefix(name, "room_"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 10000)
		assert.LessOrEqual(t, n, 99999)

		assert.Contains(t, []int{2, 3, 4}, body["max_players"])
		assert.Contains(t, []int{10, 20, 50, 100}, body["entry_fee"])
	}
}

func TestStoreRoomID(t *testing.T) {
	tests := []struct {
		name    string
		before  string
		body    string
		want    string
		wantErr bool
	}{
		{"numeric id", "", `{"room_id": 42}`, "42", false},
		{"string id", "", `{"room_id": "r-7"}`, "r-7", false},
		{"missing id clears", "9", `{"ok": true}`, "", false},
		{"null id clears", "9", `{"room_id": null}`, "", false},
		{"zero id clears", "9", `{"room_id": 0}`, "", false},
		{"false id clears", "9", `{"room_id": false}`, "", false},
		{"empty string id clears", "9", `{"room_id": ""}`, "", false},
		{"not json", "9", `<html>`, "9", true},
		{"json array", "9", `[1,2]`, "9", true},
		{"empty body", "9", ``, "9", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{RoomID: tt.before}
			err := storeRoomID(s, []byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrParseResponse)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, s.RoomID)
		})
	}
}

func TestJoinRoom_PicksAndKeepsRandomRoom(t *testing.T) {
	p := HallServerUser()
	task, _ := p.Task("join_room")
	s := NewSession(p.Name, rand.New(rand.NewSource(5)))
	require.NoError(t, p.OnStart(s))

	first := task.Build(s)
	require.NotEmpty(t, s.RoomID)
	id, err := strconv.Atoi(s.RoomID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, 1)
	assert.LessOrEqual(t, id, 1000)
	assert.Equal(t, "/api/rooms/"+s.RoomID+"/join", first.Path)
	assert.Equal(t, JoinRoomName, first.Name)
	assert.Equal(t, map[string]any{"user_id": 1}, first.Body)

	second := task.Build(s)
	assert.Equal(t, first.Path, second.Path)
}

func TestJoinRoom_UsesCreatedRoomAndUserID(t *testing.T) {
	p := HallServerUser()
	task, _ := p.Task("join_room")
	s := &Session{RoomID: "77", UserID: 5, Rand: rand.New(rand.NewSource(1))}

	req := task.Build(s)
	assert.Equal(t, "/api/rooms/77/join", req.Path)
	assert.Equal(t, map[string]any{"user_id": 5}, req.Body)
}

func TestJoinRoom_ZeroRoomIDPicksRandomRoom(t *testing.T) {
	p := HallServerUser()
	task, _ := p.Task("join_room")
	s := NewSession(p.Name, rand.New(rand.NewSource(3)))
	require.NoError(t, p.OnStart(s))

	require.NoError(t, storeRoomID(s, []byte(`{"room_id": 0}`)))
	req := task.Build(s)
	assert.NotEqual(t, "/api/rooms/0/join", req.Path)
	id, err := strconv.Atoi(s.RoomID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, 1)
}
