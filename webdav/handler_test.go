package webdav

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SchnorcherSepp/otpvault/core"
	"github.com/SchnorcherSepp/otpvault/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testServer serves the test vault with the users 'admin' (all) and 'reader' (/pads/ only).
func testServer(t *testing.T) (*httptest.Server, vault.Layout, []byte) {
	l, pad := testVault(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	userFile := filepath.Join(t.TempDir(), "users")
	users := "admin:" + string(hash) + ":/\n" + "reader:" + string(hash) + ":/pads/\n"
	require.NoError(t, os.WriteFile(userFile, []byte(users), 0600))

	srv := httptest.NewServer(NewHandler(l.Root, core.NewLocker(), userFile, 0))
	t.Cleanup(srv.Close)
	return srv, l, pad
}

func doRequest(t *testing.T, method, url, user string, body io.Reader) (*http.Response, []byte) {
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if user != "" {
		req.SetBasicAuth(user, "secret")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestHandler_Auth(t *testing.T) {
	srv, _, _ := testServer(t)

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/pads/available/p1.pad", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/pads/available/p1.pad", "nobody", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/pads/available/p1.pad", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// reader: no API
	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/pads", "reader", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandler_WebDAV(t *testing.T) {
	srv, _, pad := testServer(t)

	resp, b := doRequest(t, http.MethodGet, srv.URL+"/pads/available/p1.pad", "reader", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pad, b)

	// folder listing
	resp, b = doRequest(t, http.MethodGet, srv.URL+"/pads/available/?html", "reader", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "p1.pad")

	resp, b = doRequest(t, "PROPFIND", srv.URL+"/pads/", "reader", nil)
	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	assert.Contains(t, string(b), "available")

	// read only
	resp, _ = doRequest(t, http.MethodPut, srv.URL+"/pads/available/x.pad", "admin", strings.NewReader("x"))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/pads/available/p1.pad", "admin", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPI(t *testing.T) {
	srv, l, pad := testServer(t)
	api := srv.URL + "/api"

	// status
	resp, b := doRequest(t, http.MethodGet, api+"/vault/status", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var vs core.VaultStatus
	require.NoError(t, json.Unmarshal(b, &vs))
	assert.Equal(t, int64(20), vs.Total)
	assert.Equal(t, 1, vs.FullyUsed)

	// take segment
	resp, b = doRequest(t, http.MethodPost, api+"/pads/take_segment", "admin", strings.NewReader(`{"length": 6}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var seg core.Segment
	require.NoError(t, json.Unmarshal(b, &seg))
	assert.Equal(t, "p1", seg.PadID)
	assert.Equal(t, pad[:6], seg.Data)

	// no space
	resp, _ = doRequest(t, http.MethodPost, api+"/pads/take_segment", "admin", strings.NewReader(`{"length": 100}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// mark used
	resp, b = doRequest(t, http.MethodPost, api+"/pads/mark_used", "admin", strings.NewReader(`{"pad_id": "p1", "start": 6, "end": 10}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	resp, _ = doRequest(t, http.MethodPost, api+"/pads/mark_used", "admin", strings.NewReader(`{"pad_id": "p1", "start": 8, "end": 12}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = doRequest(t, http.MethodPost, api+"/pads/mark_used", "admin", strings.NewReader(`{"pad_id": "nope", "start": 0, "end": 1}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	st, err := vault.Load(l.Root)
	require.NoError(t, err)
	p, _ := st.Pad("p1")
	assert.Equal(t, int64(10), p.TotalUsedBytes())

	// list
	resp, b = doRequest(t, http.MethodGet, api+"/pads", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pads []vault.Pad
	require.NoError(t, json.Unmarshal(b, &pads))
	require.Len(t, pads, 2)
	assert.Equal(t, "p1", pads[0].ID)

	// download
	resp, b = doRequest(t, http.MethodGet, api+"/pads/p1/download", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pad, b)
	resp, _ = doRequest(t, http.MethodGet, api+"/pads/nope/download", "admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// upload
	resp, b = doRequest(t, http.MethodPost, api+"/pads/upload?id=friend", "admin", bytes.NewReader([]byte("0123")))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(b))
	resp, _ = doRequest(t, http.MethodPost, api+"/pads/upload?id=friend", "admin", bytes.NewReader([]byte("0123")))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// the read-only view follows the changes
	resp, b = doRequest(t, http.MethodGet, srv.URL+"/pads/available/friend.pad", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0123", string(b))

	// delete
	resp, _ = doRequest(t, http.MethodDelete, api+"/pads/friend", "admin", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doRequest(t, http.MethodDelete, api+"/pads/friend", "admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// generate
	resp, b = doRequest(t, http.MethodPost, api+"/pads/generate", "admin", strings.NewReader(`{"size": 1, "count": 2}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(b))
	var gen map[string][]string
	require.NoError(t, json.Unmarshal(b, &gen))
	assert.Len(t, gen["pad_ids"], 2)
	resp, _ = doRequest(t, http.MethodPost, api+"/pads/generate", "admin", strings.NewReader(`{"size": 0, "count": 2}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// invalid
	resp, _ = doRequest(t, http.MethodPost, api+"/pads/generate", "admin", strings.NewReader(`{"bad": 1}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = doRequest(t, http.MethodGet, api+"/unknown", "admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// clear
	resp, _ = doRequest(t, http.MethodPost, api+"/vault/clear", "admin", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	st, err = vault.Load(l.Root)
	require.NoError(t, err)
	assert.Empty(t, st.Pads)
}
