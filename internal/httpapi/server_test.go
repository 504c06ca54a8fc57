package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookLendingManagement/internal/auth"
	"bookLendingManagement/internal/lending"
	"bookLendingManagement/internal/testutil"
	"bookLendingManagement/repository"
)

const testSecret = "test-secret"

func newTestAPI(t *testing.T, name string) *httptest.Server {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	users := repository.NewUserRepository(d)
	books := repository.NewBookRepository(d)
	loans := repository.NewLendingRepository(d)
	coord := lending.NewCoordinator(books, loans)
	gate := &auth.Gate{Secret: testSecret, Users: users}
	lgr := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := NewServer(lgr, d, users, books, coord, gate, testSecret, time.Hour)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// doJSON sends a request and decodes the JSON response into out (when non-nil).
func doJSON(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func signupAndLogin(t *testing.T, ts *httptest.Server, username, password, role string) (token, userID string) {
	t.Helper()
	status := doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"username": username, "password": password, "role": role,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var login struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		UserID      string `json:"user_id"`
	}
	status = doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"username": username, "password": password,
	}, &login)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "bearer", login.TokenType)
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken, login.UserID
}

func createBook(t *testing.T, ts *httptest.Server, adminToken, title, isbn string, copies int) int64 {
	t.Helper()
	var book struct {
		ID              int64 `json:"id"`
		AvailableCopies int   `json:"available_copies"`
	}
	status := doJSON(t, http.MethodPost, ts.URL+"/admin/books", adminToken, map[string]any{
		"title": title, "author": "Author", "genre": "Fiction", "isbn": isbn, "total_copies": copies,
	}, &book)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, copies, book.AvailableCopies)
	return book.ID
}

type errBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func TestSignupLoginMe(t *testing.T) {
	ts := newTestAPI(t, "apiauth")

	token, userID := signupAndLogin(t, ts, "alice", "pw123456", "")

	var me struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	status := doJSON(t, http.MethodGet, ts.URL+"/auth/me", token, nil, &me)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "user", me.Role)
	assert.Equal(t, userID, me.UserID)
}

func TestSignup_DuplicateUsername(t *testing.T) {
	ts := newTestAPI(t, "apidup")

	status := doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"username": "alice", "password": "pw123456",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var e errBody
	status = doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"username": "alice", "password": "pw654321",
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "conflict", e.Error)
}

func TestSignup_Validation(t *testing.T) {
	ts := newTestAPI(t, "apivalid")

	var e errBody
	status := doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"username": "al", "password": "pw123456",
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", e.Error)

	status = doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"username": "alice", "password": "pw",
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)

	status = doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"username": "alice", "password": "pw123456", "role": "librarian",
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := newTestAPI(t, "apibadlogin")
	signupAndLogin(t, ts, "alice", "pw123456", "")

	var e errBody
	status := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong-password",
	}, &e)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", e.Error)

	status = doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"username": "nobody", "password": "pw123456",
	}, &e)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMe_TokenFailures(t *testing.T) {
	ts := newTestAPI(t, "apitokens")
	_, userID := signupAndLogin(t, ts, "alice", "pw123456", "")

	status := doJSON(t, http.MethodGet, ts.URL+"/auth/me", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = doJSON(t, http.MethodGet, ts.URL+"/auth/me", "garbage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	expired := testutil.SignExpiredToken(t, testSecret, userID, "user")
	status = doJSON(t, http.MethodGet, ts.URL+"/auth/me", expired, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBooks_PublicEndpoints(t *testing.T) {
	ts := newTestAPI(t, "apibooks")
	adminToken, _ := signupAndLogin(t, ts, "root", "pw123456", "admin")
	id := createBook(t, ts, adminToken, "Dune", "978-0441172719", 2)

	var books []map[string]any
	status := doJSON(t, http.MethodGet, ts.URL+"/books", "", nil, &books)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, books, 1)

	var book map[string]any
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/books/%d", ts.URL, id), "", nil, &book)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Dune", book["title"])

	status = doJSON(t, http.MethodGet, ts.URL+"/books/9999", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = doJSON(t, http.MethodGet, ts.URL+"/books/abc", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var found []map[string]any
	status = doJSON(t, http.MethodGet, ts.URL+"/books/search?query=dune", "", nil, &found)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, found, 1)

	status = doJSON(t, http.MethodGet, ts.URL+"/books/search", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBorrowReturnFlow(t *testing.T) {
	ts := newTestAPI(t, "apilend")
	adminToken, _ := signupAndLogin(t, ts, "root", "pw123456", "admin")
	aliceToken, _ := signupAndLogin(t, ts, "alice", "pw123456", "")
	bobToken, _ := signupAndLogin(t, ts, "bob", "pw123456", "")

	id := createBook(t, ts, adminToken, "Dune", "978-0441172719", 1)
	borrowURL := fmt.Sprintf("%s/books/%d/borrow", ts.URL, id)
	returnURL := fmt.Sprintf("%s/books/%d/return", ts.URL, id)

	// Alice takes the only copy.
	status := doJSON(t, http.MethodPost, borrowURL, aliceToken, nil, nil)
	require.Equal(t, http.StatusOK, status)

	var book map[string]any
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/books/%d", ts.URL, id), "", nil, &book)
	assert.Equal(t, float64(0), book["available_copies"])

	// Bob is refused while no copy is available.
	var e errBody
	status = doJSON(t, http.MethodPost, borrowURL, bobToken, nil, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "conflict", e.Error)

	// Alice cannot double-borrow.
	status = doJSON(t, http.MethodPost, borrowURL, aliceToken, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// Admins are barred from borrowing.
	status = doJSON(t, http.MethodPost, borrowURL, adminToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Bob cannot return what he never borrowed.
	status = doJSON(t, http.MethodPost, returnURL, bobToken, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var mine []map[string]any
	status = doJSON(t, http.MethodGet, ts.URL+"/mybooks", aliceToken, nil, &mine)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, mine, 1)

	// Alice returns; Bob succeeds.
	status = doJSON(t, http.MethodPost, returnURL, aliceToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	status = doJSON(t, http.MethodPost, borrowURL, bobToken, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodGet, ts.URL+"/mybooks", aliceToken, nil, &mine)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, mine)

	// Borrowing without a token is unauthorized.
	status = doJSON(t, http.MethodPost, borrowURL, "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	ts := newTestAPI(t, "apiadmin")
	adminToken, _ := signupAndLogin(t, ts, "root", "pw123456", "admin")
	userToken, _ := signupAndLogin(t, ts, "alice", "pw123456", "")

	var e errBody
	status := doJSON(t, http.MethodPost, ts.URL+"/admin/books", userToken, map[string]any{
		"title": "Dune", "author": "Herbert", "isbn": "1", "total_copies": 1,
	}, &e)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", e.Error)

	status = doJSON(t, http.MethodGet, ts.URL+"/admin/users", userToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = doJSON(t, http.MethodGet, ts.URL+"/admin/users", adminToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminBookManagement(t *testing.T) {
	ts := newTestAPI(t, "apiadminbooks")
	adminToken, _ := signupAndLogin(t, ts, "root", "pw123456", "admin")

	id := createBook(t, ts, adminToken, "Dune", "978-0441172719", 2)

	// Duplicate ISBN is refused.
	var e errBody
	status := doJSON(t, http.MethodPost, ts.URL+"/admin/books", adminToken, map[string]any{
		"title": "Dune Copy", "author": "Herbert", "isbn": "978-0441172719", "total_copies": 1,
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "conflict", e.Error)

	var updated map[string]any
	status = doJSON(t, http.MethodPut, fmt.Sprintf("%s/admin/books/%d", ts.URL, id), adminToken, map[string]any{
		"total_copies": 5,
	}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), updated["total_copies"])
	assert.Equal(t, float64(5), updated["available_copies"])

	status = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/admin/books/%d", ts.URL, id), adminToken, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/books/%d", ts.URL, id), "", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminUserManagement(t *testing.T) {
	ts := newTestAPI(t, "apiadminusers")
	adminToken, _ := signupAndLogin(t, ts, "root", "pw123456", "admin")
	aliceToken, aliceID := signupAndLogin(t, ts, "alice", "pw123456", "")

	var got map[string]any
	status := doJSON(t, http.MethodGet, ts.URL+"/admin/users/"+aliceID, adminToken, nil, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", got["username"])

	var e errBody
	status = doJSON(t, http.MethodPut, ts.URL+"/admin/users/"+aliceID+"/role", adminToken, map[string]string{
		"role": "librarian",
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", e.Error)

	var promoted map[string]any
	status = doJSON(t, http.MethodPut, ts.URL+"/admin/users/"+aliceID+"/role", adminToken, map[string]string{
		"role": "admin",
	}, &promoted)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin", promoted["role"])

	// Deleting alice returns her books and removes the account.
	bookID := createBook(t, ts, adminToken, "Dune", "978-0441172719", 1)
	doJSON(t, http.MethodPut, ts.URL+"/admin/users/"+aliceID+"/role", adminToken, map[string]string{"role": "user"}, nil)
	status = doJSON(t, http.MethodPost, fmt.Sprintf("%s/books/%d/borrow", ts.URL, bookID), aliceToken, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodDelete, ts.URL+"/admin/users/"+aliceID, adminToken, nil, nil)
	require.Equal(t, http.StatusOK, status)

	var book map[string]any
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/books/%d", ts.URL, bookID), "", nil, &book)
	assert.Equal(t, float64(1), book["available_copies"])

	status = doJSON(t, http.MethodGet, ts.URL+"/admin/users/"+aliceID, adminToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Her token no longer authenticates.
	status = doJSON(t, http.MethodGet, ts.URL+"/auth/me", aliceToken, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealth(t *testing.T) {
	ts := newTestAPI(t, "apihealth")

	var h map[string]string
	status := doJSON(t, http.MethodGet, ts.URL+"/health", "", nil, &h)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", h["status"])
	assert.Equal(t, "up", h["database"])
	assert.NotEmpty(t, h["timestamp"])
}
