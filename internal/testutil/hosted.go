package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HostedBackend is an httptest server speaking the subset of the hosted
// backend's table and identity protocol that postgrest-go and gotrue-go
// use. Row
// policies are emulated: table requests only see rows whose user_id matches
// the bearer token's subject.
type HostedBackend struct {
	*httptest.Server
	AnonKey string
	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration
	// RequireConfirmation makes sign-up return a bare user without a session.
	RequireConfirmation bool

	secret []byte

	mu        sync.Mutex
	users     map[string]*hostedUser
	refreshes map[string]string
	sessions  map[string]map[string]any
	profiles  map[string]map[string]any
	failures  []injectedFailure
	requests  []RecordedRequest
	resets    []string
}

type hostedUser struct {
	ID       string
	Email    string
	Password string
}

type injectedFailure struct {
	method string
	path   string
	status int
	body   string
}

// RecordedRequest is one request the fake served.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Prefer        string
	Authorization string
}

// NewHostedBackend starts a fake hosted backend that shuts down with t.
func NewHostedBackend(t *testing.T) *HostedBackend {
	t.Helper()
	h := &HostedBackend{
		AnonKey:   "test-anon-key",
		TokenTTL:  time.Hour,
		secret:    []byte("test-jwt-secret"),
		users:     make(map[string]*hostedUser),
		refreshes: make(map[string]string),
		sessions:  make(map[string]map[string]any),
		profiles:  make(map[string]map[string]any),
	}

	r := mux.NewRouter()
	r.Use(h.record, h.requireAPIKey, h.injectFailures)
	auth := r.PathPrefix("/auth/v1").Subrouter()
	auth.HandleFunc("/signup", h.handleSignUp).Methods(http.MethodPost)
	auth.HandleFunc("/token", h.handleToken).Methods(http.MethodPost).Queries("grant_type", "{grant}")
	auth.HandleFunc("/logout", h.handleLogout).Methods(http.MethodPost)
	auth.HandleFunc("/recover", h.handleRecover).Methods(http.MethodPost)
	auth.HandleFunc("/user", h.handleUser).Methods(http.MethodGet)
	r.HandleFunc("/rest/v1/{table}", h.handleTable)

	h.Server = httptest.NewServer(r)
	t.Cleanup(h.Server.Close)
	return h
}

// FailNext makes the next request matching method and path fail with the
// given status and JSON body.
func (h *HostedBackend) FailNext(method, path string, status int, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, injectedFailure{method: method, path: path, status: status, body: body})
}

// Requests returns the requests served so far.
func (h *HostedBackend) Requests() []RecordedRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]RecordedRequest(nil), h.requests...)
}

// Resets returns the addresses password resets were requested for.
func (h *HostedBackend) Resets() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.resets...)
}

// CreateUser registers an account directly and returns its id.
func (h *HostedBackend) CreateUser(email, password string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	u := &hostedUser{ID: uuid.New().String(), Email: email, Password: password}
	h.users[email] = u
	return u.ID
}

// IssueToken signs an access token for userID with the given lifetime.
func (h *HostedBackend) IssueToken(userID, email string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  "authenticated",
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		panic(err)
	}
	return token
}

// SessionRows returns the stored feeding_sessions rows for userID.
func (h *HostedBackend) SessionRows(userID string) []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]any
	for _, row := range h.sessions {
		if row["user_id"] == userID {
			out = append(out, row)
		}
	}
	return out
}

func (h *HostedBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.requests = append(h.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Prefer:        r.Header.Get("Prefer"),
			Authorization: r.Header.Get("Authorization"),
		})
		h.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (h *HostedBackend) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != h.AnonKey {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HostedBackend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		for i, f := range h.failures {
			if f.method == r.Method && f.path == r.URL.Path {
				h.failures = append(h.failures[:i], h.failures[i+1:]...)
				h.mu.Unlock()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(f.status)
				_, _ = w.Write([]byte(f.body))
				return
			}
		}
		h.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *HostedBackend) sessionBody(u *hostedUser) map[string]any {
	refresh := uuid.New().String()
	h.refreshes[refresh] = u.Email
	return map[string]any{
		"access_token":  h.IssueToken(u.ID, u.Email, h.TokenTTL),
		"token_type":    "bearer",
		"expires_in":    int(h.TokenTTL.Seconds()),
		"expires_at":    time.Now().Add(h.TokenTTL).Unix(),
		"refresh_token": refresh,
		"user":          map[string]any{"id": u.ID, "email": u.Email},
	}
}

type credentialsBody struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

func (h *HostedBackend) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "msg": "email required"})
		return
	}
	if len(body.Password) < 6 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code": 422, "error_code": "weak_password", "msg": "Password should be at least 6 characters.",
		})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.users[body.Email]; ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code": 422, "error_code": "user_already_exists", "msg": "User already registered",
		})
		return
	}
	u := &hostedUser{ID: uuid.New().String(), Email: body.Email, Password: body.Password}
	h.users[body.Email] = u
	if h.RequireConfirmation {
		writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "email": u.Email})
		return
	}
	writeJSON(w, http.StatusOK, h.sessionBody(u))
}

func (h *HostedBackend) handleToken(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	_ = json.NewDecoder(r.Body).Decode(&body)

	h.mu.Lock()
	defer h.mu.Unlock()
	switch mux.Vars(r)["grant"] {
	case "password":
		u, ok := h.users[body.Email]
		if !ok || u.Password != body.Password {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"code": 400, "error_code": "invalid_credentials", "msg": "Invalid login credentials",
			})
			return
		}
		writeJSON(w, http.StatusOK, h.sessionBody(u))
	case "refresh_token":
		email, ok := h.refreshes[body.RefreshToken]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"code": 400, "error_code": "refresh_token_not_found", "msg": "Invalid Refresh Token: Refresh Token Not Found",
			})
			return
		}
		delete(h.refreshes, body.RefreshToken)
		writeJSON(w, http.StatusOK, h.sessionBody(h.users[email]))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "msg": "unsupported grant type"})
	}
}

// subject verifies the bearer token and returns its subject. An anon-key
// bearer yields an empty subject.
func (h *HostedBackend) subject(r *http.Request) (string, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == h.AnonKey {
		return "", true
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

func (h *HostedBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sub, ok := h.subject(r); !ok || sub == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "error_code": "bad_jwt", "msg": "invalid JWT"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HostedBackend) handleRecover(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	_ = json.NewDecoder(r.Body).Decode(&body)
	h.mu.Lock()
	h.resets = append(h.resets, body.Email)
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (h *HostedBackend) handleUser(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subject(r)
	if !ok || sub == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "error_code": "bad_jwt", "msg": "invalid JWT"})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, u := range h.users {
		if u.ID == sub {
			writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "email": u.Email})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"code": 404, "error_code": "user_not_found", "msg": "User not found"})
}

func (h *HostedBackend) handleTable(w http.ResponseWriter, r *http.Request) {
	var rows map[string]map[string]any
	table := mux.Vars(r)["table"]
	switch table {
	case "feeding_sessions":
		rows = h.sessions
	case "user_profiles":
		rows = h.profiles
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{
			"code": "42P01", "message": `relation "public.` + table + `" does not exist`,
		})
		return
	}

	sub, ok := h.subject(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": "PGRST301", "message": "JWT expired"})
		return
	}
	ownerKey := "user_id"
	if table == "user_profiles" {
		ownerKey = "id"
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.selectRows(rows, r, sub, ownerKey))
	case http.MethodPost:
		var incoming []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": "Empty or invalid json"})
			return
		}
		upsert := strings.Contains(r.Header.Get("Prefer"), "resolution=merge-duplicates")
		for _, row := range incoming {
			if sub == "" || row[ownerKey] != sub {
				writeJSON(w, http.StatusForbidden, map[string]any{
					"code": "42501", "message": `new row violates row-level security policy for table "` + table + `"`,
				})
				return
			}
			if d, ok := row["duration"].(float64); ok && (d <= 0 || d > 480) {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"code": "23514", "message": `new row violates check constraint "feeding_sessions_duration_check"`,
				})
				return
			}
			id, _ := row["id"].(string)
			if existing, ok := rows[id]; ok {
				if !upsert {
					writeJSON(w, http.StatusConflict, map[string]any{
						"code": "23505", "message": `duplicate key value violates unique constraint "` + table + `_pkey"`,
					})
					return
				}
				for k, v := range row {
					existing[k] = v
				}
				continue
			}
			row["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
			rows[id] = row
		}
		writeJSON(w, http.StatusCreated, incoming)
	case http.MethodPatch:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": "Empty or invalid json"})
			return
		}
		matched := h.selectRows(rows, r, sub, ownerKey)
		for _, row := range matched {
			for k, v := range patch {
				row[k] = v
			}
		}
		writeJSON(w, http.StatusOK, matched)
	case http.MethodDelete:
		matched := h.selectRows(rows, r, sub, ownerKey)
		for _, row := range matched {
			delete(rows, row["id"].(string))
		}
		writeJSON(w, http.StatusOK, matched)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// selectRows applies eq. filters and the owner policy, ordered by the
// order parameter when it names start_time.
func (h *HostedBackend) selectRows(rows map[string]map[string]any, r *http.Request, sub, ownerKey string) []map[string]any {
	q := r.URL.Query()
	out := []map[string]any{}
	for _, row := range rows {
		if sub == "" || row[ownerKey] != sub {
			continue
		}
		match := true
		for key, values := range q {
			if key == "select" || key == "order" || key == "limit" || key == "on_conflict" {
				continue
			}
			want := strings.TrimPrefix(values[0], "eq.")
			if got, _ := row[key].(string); got != want {
				match = false
				break
			}
		}
		if match {
			out = append(out, row)
		}
	}
	if order := strings.Split(q.Get("order"), "."); order[0] == "start_time" {
		desc := len(order) > 1 && order[1] == "desc"
		sort.Slice(out, func(i, j int) bool {
			a, _ := out[i]["start_time"].(string)
			b, _ := out[j]["start_time"].(string)
			ta, _ := time.Parse(time.RFC3339Nano, a)
			tb, _ := time.Parse(time.RFC3339Nano, b)
			if desc {
				return ta.After(tb)
			}
			return ta.Before(tb)
		})
	}
	return out
}
