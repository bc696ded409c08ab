package books

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe-backend/internal/platform/auth"
	"scribe-backend/internal/platform/validation"
)

const (
	reader  = "01J0000000000000000000USR1"
	curator = "01J0000000000000000000ADM1"
)

type apiClient struct {
	t      *testing.T
	r      *gin.Engine
	tokens map[string]string
}

func newAPIClient(t *testing.T, svc *Service) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.Register())
	issuer := auth.NewTokenIssuer([]byte("books-handler-test-secret"), time.Hour, time.Hour)
	r := gin.New()
	RegisterRoutes(r, svc, auth.RequireAuth(issuer), auth.OptionalAuth(issuer))

	tokens := map[string]string{}
	for id, role := range map[string]string{reader: auth.RoleUser, curator: auth.RoleAdministrator} {
		pair, err := issuer.Issue(&auth.Account{ID: id, Role: role})
		require.NoError(t, err)
		tokens[id] = pair.AccessToken
	}
	return &apiClient{t: t, r: r, tokens: tokens}
}

func (a *apiClient) send(method, path, who string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok, ok := a.tokens[who]; ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func TestHandler_WritesRequireAdministrator(t *testing.T) {
	svc, _ := newTestService()
	api := newAPIClient(t, svc)
	body := map[string]any{"title": "The Word for World Is Forest", "author": "Ursula K. Le Guin", "quantity": 2}

	assert.Equal(t, http.StatusUnauthorized, api.send(http.MethodPost, "/books", "", body).Code)
	assert.Equal(t, http.StatusForbidden, api.send(http.MethodPost, "/books", reader, body).Code)

	w := api.send(http.MethodPost, "/books", curator, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created BookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "/books/"+created.ID, w.Header().Get("Location"))
	assert.Equal(t, 2, created.AvailableQuantity)

	assert.Equal(t, http.StatusForbidden, api.send(http.MethodPut, "/books/"+created.ID, reader, body).Code)
	assert.Equal(t, http.StatusForbidden, api.send(http.MethodDelete, "/books/"+created.ID, reader, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.send(http.MethodDelete, "/books/"+created.ID, "", nil).Code)

	// 一覧と詳細は匿名でも読める
	assert.Equal(t, http.StatusOK, api.send(http.MethodGet, "/books/"+created.ID, "", nil).Code)
	w = api.send(http.MethodGet, "/books", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = api.send(http.MethodPost, "/books", curator, map[string]any{"title": "Dune", "author": "Frank Herbert", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestHandler_GetUnknownBook(t *testing.T) {
	svc, _ := newTestService()
	api := newAPIClient(t, svc)

	w := api.send(http.MethodGet, "/books/01J00000000000000000000999", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Item with id 01J00000000000000000000999 not found.")
}

func TestHandler_InUseGuards(t *testing.T) {
	svc, repo := newTestService()
	api := newAPIClient(t, svc)
	b := seedBook(t, svc, 2)
	repo.loans = []memLoan{
		{bookID: b.ID, due: testNow.Add(time.Hour)},
		{bookID: b.ID, due: testNow.Add(time.Hour)},
	}

	w := api.send(http.MethodPut, "/books/"+b.ID, curator, map[string]any{"title": b.Title, "author": b.Author, "quantity": 1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Cannot set quantity less than what's currently in use.")

	w = api.send(http.MethodDelete, "/books/"+b.ID, curator, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot delete book that is currently in use.")
	assert.Contains(t, repo.books, b.ID)

	repo.loans = nil
	assert.Equal(t, http.StatusNoContent, api.send(http.MethodDelete, "/books/"+b.ID, curator, nil).Code)
	assert.NotContains(t, repo.books, b.ID)
}

func TestHandler_ArchivedBooks(t *testing.T) {
	svc, repo := newTestService()
	api := newAPIClient(t, svc)
	kept := seedBook(t, svc, 1)
	gone := seedBook(t, svc, 1)
	repo.referenced[gone.ID] = true
	require.Equal(t, http.StatusNoContent, api.send(http.MethodDelete, "/books/"+gone.ID, curator, nil).Code)
	require.True(t, repo.books[gone.ID].Archived)

	assert.Equal(t, http.StatusNotFound, api.send(http.MethodGet, "/books/"+gone.ID, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.send(http.MethodGet, "/books/"+gone.ID, curator, nil).Code)
	w := api.send(http.MethodPut, "/books/"+gone.ID, curator, map[string]any{"title": kept.Title, "author": kept.Author, "quantity": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, repo.books[gone.ID].Quantity)

	assert.Equal(t, http.StatusForbidden, api.send(http.MethodGet, "/books?archived=true", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, api.send(http.MethodGet, "/books?archived=true", reader, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.send(http.MethodGet, "/books?archived=maybe", curator, nil).Code)

	w = api.send(http.MethodGet, "/books", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = api.send(http.MethodGet, "/books?archived=true", curator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}
