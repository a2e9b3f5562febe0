package licenseclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStateStore struct {
	state State
	saves int
}

func (m *memStateStore) Load() (State, error) { return m.state, nil }

func (m *memStateStore) Save(s State) error {
	m.state = s
	m.saves++
	return nil
}

type verifyStub struct {
	calls    atomic.Int64
	response map[string]any
	status   int
}

func (v *verifyStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/licenses/verify", r.URL.Path)
		v.calls.Add(1)
		if v.status != 0 {
			w.WriteHeader(v.status)
		}
		json.NewEncoder(w).Encode(v.response)
	}))
}

func TestNewSession_CreatesAndPersistsDeviceID(t *testing.T) {
	store := &memStateStore{}

	s, err := NewSession("http://unused", store)
	require.NoError(t, err)

	assert.NotEmpty(t, s.DeviceID())
	assert.Equal(t, s.DeviceID(), store.state.DeviceID)

	// A second session over the same store keeps the identity.
	s2, err := NewSession("http://unused", store)
	require.NoError(t, err)
	assert.Equal(t, s.DeviceID(), s2.DeviceID())
	assert.Equal(t, 1, store.saves)
}

func TestRefresh_NoCodeStaysLocalAndLocked(t *testing.T) {
	stub := &verifyStub{response: map[string]any{"success": true, "type": "full"}}
	srv := stub.server(t)
	defer srv.Close()

	s, err := NewSession(srv.URL, &memStateStore{})
	require.NoError(t, err)

	status := s.Refresh(context.Background())
	assert.Equal(t, StatusLocked, status)
	assert.Zero(t, stub.calls.Load(), "limited mode must not call the server")
}

func TestRefresh_CachedCodeResolvesStatus(t *testing.T) {
	tests := []struct {
		name       string
		response   map[string]any
		wantStatus Status
		wantHours  int
	}{
		{"full", map[string]any{"success": true, "type": "full"}, StatusFull, 0},
		{"dev", map[string]any{"success": true, "type": "dev"}, StatusDev, 0},
		{"trial", map[string]any{"success": true, "type": "trial", "hoursRemaining": 7}, StatusTrial, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &verifyStub{response: tt.response}
			srv := stub.server(t)
			defer srv.Close()

			store := &memStateStore{state: State{DeviceID: "dev-1", Code: "SOME-CODE"}}
			s, err := NewSession(srv.URL, store)
			require.NoError(t, err)

			status := s.Refresh(context.Background())
			assert.Equal(t, tt.wantStatus, status)
			_, hours := s.Status()
			assert.Equal(t, tt.wantHours, hours)
		})
	}
}

func TestRefresh_ExpiredPurgesCachedCode(t *testing.T) {
	stub := &verifyStub{response: map[string]any{"success": false, "status": "expired", "message": "Trial has ended."}}
	srv := stub.server(t)
	defer srv.Close()

	store := &memStateStore{state: State{DeviceID: "dev-1", Code: "TRIAL-DEAD0000"}}
	s, err := NewSession(srv.URL, store)
	require.NoError(t, err)

	status := s.Refresh(context.Background())
	assert.Equal(t, StatusLocked, status)
	assert.Empty(t, store.state.Code, "expired code must be dropped from local state")
	assert.Equal(t, "dev-1", store.state.DeviceID)
}

func TestRefresh_ServerUnreachableFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	store := &memStateStore{state: State{DeviceID: "dev-1", Code: "ABCD-1234"}}
	s, err := NewSession(srv.URL, store)
	require.NoError(t, err)

	assert.Equal(t, StatusLocked, s.Refresh(context.Background()))
	assert.Equal(t, "ABCD-1234", store.state.Code, "a transport failure must not discard the code")
}

func TestRefresh_ServerErrorFailsClosed(t *testing.T) {
	stub := &verifyStub{status: http.StatusInternalServerError, response: map[string]any{"success": false}}
	srv := stub.server(t)
	defer srv.Close()

	store := &memStateStore{state: State{DeviceID: "dev-1", Code: "ABCD-1234"}}
	s, err := NewSession(srv.URL, store)
	require.NoError(t, err)

	assert.Equal(t, StatusLocked, s.Refresh(context.Background()))
}

func TestActivate_SuccessPersistsCode(t *testing.T) {
	stub := &verifyStub{response: map[string]any{"success": true, "type": "full"}}
	srv := stub.server(t)
	defer srv.Close()

	store := &memStateStore{}
	s, err := NewSession(srv.URL, store)
	require.NoError(t, err)

	result := s.Activate(context.Background(), "ABCD-1234")
	assert.True(t, result.Success)
	assert.Equal(t, "ABCD-1234", store.state.Code)

	status, _ := s.Status()
	assert.Equal(t, StatusFull, status)
}

func TestActivate_RejectionDoesNotPersist(t *testing.T) {
	stub := &verifyStub{status: http.StatusBadRequest, response: map[string]any{"success": false, "message": "invalid license key"}}
	srv := stub.server(t)
	defer srv.Close()

	store := &memStateStore{}
	s, err := NewSession(srv.URL, store)
	require.NoError(t, err)

	result := s.Activate(context.Background(), "WRONG-0000")
	assert.False(t, result.Success)
	assert.Equal(t, "invalid license key", result.Message)
	assert.Empty(t, store.state.Code)
}

func TestDevUnlock_SkipsNetwork(t *testing.T) {
	stub := &verifyStub{response: map[string]any{"success": false}}
	srv := stub.server(t)
	defer srv.Close()

	s, err := NewSession(srv.URL, &memStateStore{}, WithDevUnlock())
	require.NoError(t, err)

	assert.Equal(t, StatusDev, s.Refresh(context.Background()))
	assert.True(t, s.Activate(context.Background(), "anything").Success)
	assert.Zero(t, stub.calls.Load())
}

func TestRequestTrial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/licenses/trial", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body["deviceId"])
		json.NewEncoder(w).Encode(map[string]any{"success": true, "code": "TRIAL-AAAA1111"})
	}))
	defer srv.Close()

	s, err := NewSession(srv.URL, &memStateStore{})
	require.NoError(t, err)

	code, err := s.RequestTrial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TRIAL-AAAA1111", code)
}

func TestRequestTrial_AlreadyUsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "trial already used on this device"})
	}))
	defer srv.Close()

	s, err := NewSession(srv.URL, &memStateStore{})
	require.NoError(t, err)

	_, err = s.RequestTrial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trial already used")
}

func TestFileStateStore_RoundTripAndCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "license.json")
	store := NewFileStateStore(path)

	// Missing file reads as a fresh install.
	state, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.DeviceID)

	require.NoError(t, store.Save(State{DeviceID: "dev-1", Code: "ABCD-1234"}))

	state, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "dev-1", state.DeviceID)
	assert.Equal(t, "ABCD-1234", state.Code)

	// A corrupt file degrades to a fresh install instead of erroring.
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	state, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.DeviceID)
}
