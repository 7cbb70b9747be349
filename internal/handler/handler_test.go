package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/repository"
)

const testPassword = "password123"

type fakePublisher struct {
	mu       sync.Mutex
	messages []domain.MailMessage
	err      error
}

func (f *fakePublisher) PublishMail(_ context.Context, msg domain.MailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

type testServer struct {
	t      *testing.T
	store  *repository.MemoryRepository
	mail   *fakePublisher
	tokens *auth.Tokens
	h      *Handler
	srv    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Course.PageSize = 10
	cfg.Roster.LookupConcurrency = 4

	store := repository.NewMemoryRepository()
	tokens := auth.NewTokens("test-secret", time.Hour)
	resolver := auth.NewResolver(tokens, store, nil)
	mail := &fakePublisher{}

	h, err := NewHandler(cfg, store, resolver, mail)
	require.NoError(t, err)
	h.RegisterRoutes()

	srv := httptest.NewServer(h.Mux)
	t.Cleanup(srv.Close)

	return &testServer{t: t, store: store, mail: mail, tokens: tokens, h: h, srv: srv}
}

// createUser 直接写入存储并返回该用户及其令牌
func (ts *testServer) createUser(name, email string, role domain.Role) (*domain.User, string) {
	ts.t.Helper()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(ts.t, err)

	user := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	require.NoError(ts.t, ts.store.CreateUser(context.Background(), user))

	token, _, _, err := ts.tokens.Issue(user.ID)
	require.NoError(ts.t, err)

	return user, token
}

func (ts *testServer) createCourse(instructorID string, students ...string) *domain.Course {
	ts.t.Helper()

	course := &domain.Course{
		Subject:      "CS",
		Number:       "101",
		Title:        "程序设计",
		Term:         "2026 春季",
		InstructorID: instructorID,
		StudentIDs:   students,
	}
	require.NoError(ts.t, ts.store.CreateCourse(context.Background(), course))
	return course
}

func (ts *testServer) do(method, path, token string, body any) *http.Response {
	ts.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewBuffer(buf)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(ts.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
