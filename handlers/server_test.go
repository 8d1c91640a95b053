package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	appdb "github.com/padraicbc/riderapi/db"
	"github.com/padraicbc/riderapi/identity"
	"github.com/padraicbc/riderapi/models"
)

var testKey = []byte("test-signing-key")

type testServer struct {
	t     *testing.T
	e     *echo.Echo
	db    *bun.DB
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithAdmins(t, nil)
}

func newTestServerWithAdmins(t *testing.T, admins []string) *testServer {
	t.Helper()

	sqldb, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, appdb.CreateTables(context.Background(), db))

	logger := zaptest.NewLogger(t)
	h := New(db, identity.NewResolver(db, identity.Options{Logger: logger}), testKey, admins, logger)

	e := echo.New()
	e.Validator = NewValidator()
	h.Register(e)

	s := &testServer{t: t, e: e, db: db}
	s.user("admin", "s3cret")
	s.token = s.signin("admin", "s3cret")
	return s
}

func (s *testServer) user(name, password string) {
	s.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(s.t, err)
	_, err = s.db.NewInsert().Model(&models.User{
		Username:  name,
		Password:  string(hash),
		CreatedAt: time.Now().UTC(),
	}).Exec(context.Background())
	require.NoError(s.t, err)
}

func (s *testServer) signin(name, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/signin", `{"username":"`+name+`","password":"`+password+`"}`, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["token"]
}

func (s *testServer) rider(r models.Rider) int64 {
	s.t.Helper()
	_, err := s.db.NewInsert().Model(&r).Exec(context.Background())
	require.NoError(s.t, err)
	return r.ID
}

func (s *testServer) do(method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) api(method, target, body string) *httptest.ResponseRecorder {
	return s.do(method, target, body, s.token)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func strp(s string) *string { return &s }
