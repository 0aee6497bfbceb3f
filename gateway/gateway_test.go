package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/meikuraledutech/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   []byte
}

func newBackend(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization"), body: data})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func loggedInSession(t *testing.T) (*builder.Session, string) {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	s := builder.NewSession()
	require.NoError(t, s.Login(token))
	return s, token
}

var payload = builder.Payload{
	Name:        "Triage",
	Modules:     []builder.ModuleInstance{{ID: "a", Type: "webhook", Config: map[string]any{}}},
	Connections: []builder.Connection{},
}

func TestSave(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, calls := newBackend(t, status, `{"id":"wf-1"}`)
			session, token := loggedInSession(t)

			resp, err := New(srv.URL+"/", WithSession(session)).Save(t.Context(), payload)
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"wf-1"}`, string(resp))

			require.Len(t, *calls, 1)
			call := (*calls)[0]
			assert.Equal(t, http.MethodPost, call.method)
			assert.Equal(t, SavePath, call.path)
			assert.Equal(t, "Bearer "+token, call.auth)

			var sent builder.Payload
			require.NoError(t, json.Unmarshal(call.body, &sent))
			assert.Equal(t, "Triage", sent.Name)
			assert.Len(t, sent.Modules, 1)
		})
	}
}

func TestSave_Failures(t *testing.T) {
	t.Run("StatusError", func(t *testing.T) {
		srv, _ := newBackend(t, http.StatusUnprocessableEntity, `{"error":"bad graph"}`+"\n")
		_, err := New(srv.URL).Save(t.Context(), payload)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnprocessableEntity, se.StatusCode)
		assert.Equal(t, `{"error":"bad graph"}`, se.Body)
	})

	t.Run("AcceptedIsNotSuccess", func(t *testing.T) {
		srv, _ := newBackend(t, http.StatusAccepted, `{}`)
		_, err := New(srv.URL).Save(t.Context(), payload)
		var se *StatusError
		assert.ErrorAs(t, err, &se)
	})

	t.Run("NonJSONBody", func(t *testing.T) {
		srv, _ := newBackend(t, http.StatusOK, `ok`)
		_, err := New(srv.URL).Save(t.Context(), payload)
		assert.ErrorContains(t, err, "not JSON")
	})

	t.Run("NotLoggedIn", func(t *testing.T) {
		srv, calls := newBackend(t, http.StatusOK, `{}`)
		_, err := New(srv.URL, WithSession(builder.NewSession())).Save(t.Context(), payload)
		assert.ErrorIs(t, err, builder.ErrNotLoggedIn)
		assert.Empty(t, *calls)
	})
}

func TestList(t *testing.T) {
	srv, calls := newBackend(t, http.StatusOK, `[{"id":"wf-1","name":"Triage","status":"active","moduleCount":2}]`)

	list, err := New(srv.URL).List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Triage", list[0].Name)
	assert.Equal(t, 2, list[0].ModuleCount)
	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.Empty(t, (*calls)[0].auth)
}

func TestEditorSavesThroughClient(t *testing.T) {
	srv, calls := newBackend(t, http.StatusCreated, `{"ok":true}`)

	e := builder.NewEditor(builder.DefaultCatalog())
	e.SetName("From editor")
	_, ok := e.AddModule("webhook", builder.Position{X: 1, Y: 2})
	require.True(t, ok)

	_, err := e.Save(t.Context(), New(srv.URL))
	require.NoError(t, err)
	assert.False(t, e.Saving())
	require.Len(t, *calls, 1)
	assert.Contains(t, string((*calls)[0].body), `"name":"From editor"`)
}

func TestDeploy(t *testing.T) {
	_, err := New("http://unused").Deploy(t.Context(), "wf-1")
	assert.ErrorIs(t, err, ErrDeployNotImplemented)
}
