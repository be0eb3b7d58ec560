package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servertycoon/internal/auth"
	"servertycoon/internal/catalog"
	"servertycoon/internal/clock"
	"servertycoon/internal/engine"
	"servertycoon/internal/store"
)

func testServer(t *testing.T) (*httptest.Server, *clock.Fake) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	eng := engine.New(store.NewMemory(), catalog.Default(), clk, log)
	api := &API{Engine: eng, Auth: auth.NewManager("test-secret"), Log: log}
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return srv, clk
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func registerAndLogin(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	creds := map[string]string{"nickname": "player", "password": "hunter2"}
	resp, _ := doJSON(t, "POST", srv.URL+"/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, "POST", srv.URL+"/auth/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	resp, body := doJSON(t, "GET", srv.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestRegisterLoginMe(t *testing.T) {
	srv, _ := testServer(t)
	token := registerAndLogin(t, srv)

	resp, body := doJSON(t, "GET", srv.URL+"/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "player", body["nickname"])
	assert.Equal(t, float64(1000), body["balance"])
	assert.Equal(t, float64(1), body["level"])
	assert.Equal(t, float64(100), body["experience_to_next"])
	assert.NotContains(t, body, "password_hash")
}

func TestRegisterDuplicateNickname(t *testing.T) {
	srv, _ := testServer(t)
	creds := map[string]string{"nickname": "player", "password": "hunter2"}

	resp, _ := doJSON(t, "POST", srv.URL+"/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, "POST", srv.URL+"/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errObj, _ := body["error"].(map[string]any)
	assert.Equal(t, "NICKNAME_TAKEN", errObj["code"])
}

func TestLoginBadPassword(t *testing.T) {
	srv, _ := testServer(t)
	registerAndLogin(t, srv)

	resp, _ := doJSON(t, "POST", srv.URL+"/auth/login", "", map[string]string{"nickname": "player", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := testServer(t)
	for _, path := range []string{"/me", "/fleet", "/quests/", "/achievements"} {
		resp, _ := doJSON(t, "GET", srv.URL+path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "path %s", path)
	}
}

func TestJobFlowOverHTTP(t *testing.T) {
	srv, _ := testServer(t)
	token := registerAndLogin(t, srv)

	resp, body := doJSON(t, "POST", srv.URL+"/jobs/cleanup/start", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(50), body["reward"])
	assert.Equal(t, float64(10), body["experience"])

	// An immediate repeat hits the cooldown.
	resp, body = doJSON(t, "POST", srv.URL+"/jobs/cleanup/start", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	errObj, _ := body["error"].(map[string]any)
	assert.Equal(t, "COOLDOWN_ACTIVE", errObj["code"])

	// The job listing reflects the running cooldown.
	resp, body = doJSON(t, "GET", srv.URL+"/jobs/", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	jobs, _ := body["jobs"].([]any)
	require.NotEmpty(t, jobs)
	var cleanup map[string]any
	for _, j := range jobs {
		job := j.(map[string]any)
		if job["id"] == "cleanup" {
			cleanup = job
		}
	}
	require.NotNil(t, cleanup)
	assert.Equal(t, false, cleanup["available"])
	assert.Greater(t, cleanup["remaining_seconds"], float64(0))
}

func TestPurchaseServerOverHTTP(t *testing.T) {
	srv, _ := testServer(t)
	token := registerAndLogin(t, srv)

	// 1000 starting balance does not cover the 1500 basic server.
	resp, body := doJSON(t, "POST", srv.URL+"/servers/", token, map[string]string{"product_id": "basic-web"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj, _ := body["error"].(map[string]any)
	assert.Equal(t, "INSUFFICIENT_FUNDS", errObj["code"])

	// Earn with jobs until the price is covered, waiting out cooldowns.
	earnTo(t, srv, token, 1500)

	resp, body = doJSON(t, "POST", srv.URL+"/servers/", token, map[string]string{"product_id": "basic-web"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["online"])
	assert.Equal(t, float64(50), body["load"])

	resp, body = doJSON(t, "GET", srv.URL+"/fleet", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fleet, _ := body["fleet"].([]any)
	require.Len(t, fleet, 1)
	row := fleet[0].(map[string]any)
	assert.Equal(t, "player", row["owner_nickname"])
}

// earnTo runs jobs across all types until the balance reaches the target.
func earnTo(t *testing.T, srv *httptest.Server, token string, target float64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, body := doJSON(t, "GET", srv.URL+"/me", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		if body["balance"].(float64) >= target {
			return
		}
		for _, id := range []string{"cleanup", "backup", "ddos", "migration"} {
			doJSON(t, "POST", srv.URL+fmt.Sprintf("/jobs/%s/start", id), token, nil)
		}
	}
	t.Fatal("could not earn enough for the test purchase")
}

func TestServerLoadValidationOverHTTP(t *testing.T) {
	srv, _ := testServer(t)
	token := registerAndLogin(t, srv)
	earnTo(t, srv, token, 1500)

	resp, body := doJSON(t, "POST", srv.URL+"/servers/", token, map[string]string{"product_id": "basic-web"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	serverID := body["id"].(string)

	resp, body = doJSON(t, "PUT", srv.URL+"/servers/"+serverID+"/load", token, map[string]int{"load": 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj, _ := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_RANGE", errObj["code"])

	resp, body = doJSON(t, "PUT", srv.URL+"/servers/"+serverID+"/load", token, map[string]int{"load": 80})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(80), body["load"])
}

func TestExpiredTokenRejected(t *testing.T) {
	srv, _ := testServer(t)
	registerAndLogin(t, srv)

	manager := auth.NewManager("test-secret")
	expired, err := manager.GenerateToken("whatever", -time.Minute)
	require.NoError(t, err)

	resp, body := doJSON(t, "GET", srv.URL+"/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errObj, _ := body["error"].(map[string]any)
	assert.Equal(t, "TOKEN_EXPIRED", errObj["code"])
}
