// Package apptest runs the full application against an in-memory database
// for handler tests.
package apptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"blogpp/app"
	"blogpp/auth"
	"blogpp/models"
	"blogpp/testutil"
)

const (
	Domain   = "http://blogpp.test"
	Password = "password123"
)

type Harness struct {
	T      *testing.T
	DB     *gorm.DB
	Sender *testutil.RecordingSender
	App    *app.App
}

// New builds the application with inline mail delivery. staff lists the
// backoffice emails.
func New(t *testing.T, staff ...string) *Harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth.Cost = bcrypt.MinCost

	db := testutil.SetupTestDB(t)
	sender := &testutil.RecordingSender{}
	a := app.New(db, sender, app.Options{
		Domain:           Domain,
		SessionSecret:    "secret",
		BackofficeEmails: staff,
	}, nil)
	a.Start()
	t.Cleanup(a.Close)

	return &Harness{T: t, DB: db, Sender: sender, App: a}
}

// User creates a confirmed user whose password is Password.
func (h *Harness) User(username string) *models.User {
	h.T.Helper()

	user := testutil.CreateTestUser(h.T, h.DB, username)
	hash, err := auth.HashPassword(Password)
	if err != nil {
		h.T.Fatalf("hash password: %v", err)
	}
	if err := h.DB.Model(user).UpdateColumn("password_hash", hash).Error; err != nil {
		h.T.Fatalf("set password: %v", err)
	}
	return user
}

// Login signs username in and returns the session cookies.
func (h *Harness) Login(username string) []*http.Cookie {
	h.T.Helper()

	w := h.Do(http.MethodPost, "/login", map[string]string{"username": username, "password": Password}, nil)
	if w.Code != http.StatusOK {
		h.T.Fatalf("login %s: %d %s", username, w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

// Do sends a request with an optional JSON body.
func (h *Harness) Do(method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	h.T.Helper()

	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		raw, err := json.Marshal(body)
		if err != nil {
			h.T.Fatalf("encode body: %v", err)
		}
		req = httptest.NewRequest(method, path, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	h.App.Handler.ServeHTTP(w, req)
	return w
}

// DoHost sends a bodiless request addressed to host.
func (h *Harness) DoHost(method, host, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	h.T.Helper()

	req := httptest.NewRequest(method, path, nil)
	req.Host = host
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	h.App.Handler.ServeHTTP(w, req)
	return w
}

// Decode reads the JSON response into a generic map.
func Decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}
