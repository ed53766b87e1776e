// Package mockserver is an in-memory stand-in for the game, login and hall
// servers. It answers every endpoint the profiles call, for local dry runs.
package mockserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Version is reported by /api/version.
const Version = "1.0.0"

const (
	// DefaultListLimit is how many rooms /api/rooms returns without ?limit.
	DefaultListLimit = 50
	maxListLimit     = 200
	// DefaultMaxRooms bounds the rooms kept in memory. The oldest room is
	// dropped when a new one would exceed it.
	DefaultMaxRooms = 10000
)

type account struct {
	ID       int
	Username string
	Password string
	Email    string
}

type room struct {
	ID         int    `json:"room_id"`
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
	EntryFee   int    `json:"entry_fee"`
	Players    []int  `json:"players"`
}

// Server holds accounts and rooms in memory.
type Server struct {
	logger zerolog.Logger
	start  time.Time
	hits   atomic.Int64

	mu       sync.Mutex
	accounts   map[string]*account
	rooms      map[int]*room
	nextUser   int
	nextRoom   int
	oldestRoom int
	maxRooms   int
}

// New creates a server. Rooms 1..seedRooms exist from the start so joins
// against random room ids can succeed.
func New(logger zerolog.Logger, seedRooms int) *Server {
	s := &Server{
		logger:   logger,
		start:    time.Now(),
		accounts: make(map[string]*account),
		rooms:    make(map[int]*room),
		nextUser:   1,
		nextRoom:   1,
		oldestRoom: 1,
		maxRooms:   DefaultMaxRooms,
	}
	for i := 0; i < seedRooms; i++ {
		s.addRoom("seed_room_"+strconv.Itoa(i+1), 4, 10)
	}
	return s
}

// Hits returns the number of requests served.
func (s *Server) Hits() int64 {
	return s.hits.Load()
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/status", s.status)
	mux.HandleFunc("GET /api/version", s.version)
	mux.HandleFunc("GET /api/ping", s.ping)
	mux.HandleFunc("POST /api/register", s.register)
	mux.HandleFunc("POST /api/login", s.login)
	mux.HandleFunc("GET /api/user/info", s.userInfo)
	mux.HandleFunc("GET /api/rooms", s.listRooms)
	mux.HandleFunc("POST /api/rooms", s.createRoom)
	mux.HandleFunc("POST /api/rooms/{id}/join", s.joinRoom)
	mux.HandleFunc("GET /api/leaderboard", s.leaderboard)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		mux.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	players, rooms := len(s.accounts), len(s.rooms)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "running",
		"uptime":  time.Since(s.start).Seconds(),
		"players": players,
		"rooms":   rooms,
	})
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"pong": true, "time": time.Now().UnixMilli()})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Username == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[c.Username]; ok {
		writeError(w, http.StatusConflict, "username already exists")
		return
	}
	a := &account{ID: s.nextUser, Username: c.Username, Password: c.Password, Email: c.Email}
	s.nextUser++
	s.accounts[a.Username] = a
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user_id": a.ID, "username": a.Username})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	a, ok := s.accounts[c.Username]
	s.mu.Unlock()
	if !ok || a.Password != c.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": a.ID,
		"token":   "mock-" + strconv.Itoa(a.ID),
	})
}

func (s *Server) userInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  1,
		"username": "guest",
		"coins":    1000,
	})
}

// listRooms returns the newest rooms first, at most ?limit of them.
func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	s.mu.Lock()
	total := len(s.rooms)
	list := make([]room, 0, min(limit, total))
	for id := s.nextRoom - 1; id >= s.oldestRoom && len(list) < limit; id-- {
		if rm, ok := s.rooms[id]; ok {
			cp := *rm
			cp.Players = append([]int(nil), rm.Players...)
			list = append(list, cp)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": list, "total": total})
}

type roomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
	EntryFee   int    `json:"entry_fee"`
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MaxPlayers < 2 {
		writeError(w, http.StatusBadRequest, "invalid room")
		return
	}

	s.mu.Lock()
	rm := s.addRoom(req.Name, req.MaxPlayers, req.EntryFee)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]interface{}{"room_id": rm.ID, "name": rm.Name})
}

// addRoom must be called with mu held, or before the server is shared.
func (s *Server) addRoom(name string, maxPlayers, entryFee int) *room {
	rm := &room{ID: s.nextRoom, Name: name, MaxPlayers: maxPlayers, EntryFee: entryFee}
	s.nextRoom++
	s.rooms[rm.ID] = rm
	for len(s.rooms) > s.maxRooms {
		delete(s.rooms, s.oldestRoom)
		s.oldestRoom++
	}
	return rm
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	var body struct {
		UserID int `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[id]
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if len(rm.Players) >= rm.MaxPlayers {
		writeError(w, http.StatusBadRequest, "room is full")
		return
	}
	rm.Players = append(rm.Players, body.UserID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"room_id": rm.ID, "players": len(rm.Players)})
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": []map[string]interface{}{
			{"rank": 1, "username": "banker", "score": 9800},
			{"rank": 2, "username": "lucky", "score": 7200},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
