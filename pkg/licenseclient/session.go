// Package licenseclient is the client side of the license protocol: it owns
// the device identity, caches the activation code locally, and re-verifies
// it against the server before granting access. The server stays the sole
// source of truth; a tampered local state can never upgrade access.
package licenseclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusLocked  Status = "locked"
	StatusTrial   Status = "trial"
	StatusFull    Status = "full"
	StatusDev     Status = "dev"
)

type ActivationResult struct {
	Success bool
	Message string
}

type Option func(*Session)

// WithDevUnlock forces dev status unconditionally and skips all network
// calls. Build-time convenience for development and UI work.
func WithDevUnlock() Option {
	return func(s *Session) { s.devUnlock = true }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.httpClient = c }
}

type Session struct {
	mu         sync.Mutex
	store      StateStore
	httpClient *http.Client
	baseURL    string
	devUnlock  bool

	deviceID   string
	code       string
	status     Status
	trialHours int
}

// NewSession loads (or creates) the device identity and starts in the
// loading state. Call Refresh to resolve the real status.
func NewSession(baseURL string, store StateStore, opts ...Option) (*Session, error) {
	s := &Session{
		store:      store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		status:     StatusLoading,
	}
	for _, opt := range opts {
		opt(s)
	}

	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load license state: %w", err)
	}

	if state.DeviceID == "" {
		state.DeviceID = newDeviceID()
		if err := store.Save(state); err != nil {
			return nil, fmt.Errorf("persist device id: %w", err)
		}
	}
	s.deviceID = state.DeviceID
	s.code = state.Code

	if s.devUnlock {
		s.status = StatusDev
	}

	return s, nil
}

func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

func (s *Session) Status() (Status, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.trialHours
}

// Refresh re-derives the gating status. With no cached code the session is
// locked without any network call (limited mode); with one, the server is
// asked, and any transport failure leaves the session locked rather than
// trusting the stale local state.
func (s *Session) Refresh(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.devUnlock {
		s.status = StatusDev
		return s.status
	}

	if s.code == "" {
		s.status = StatusLocked
		s.trialHours = 0
		return s.status
	}

	resp, err := s.verify(ctx, s.code)
	if err != nil {
		s.status = StatusLocked
		s.trialHours = 0
		return s.status
	}

	s.apply(resp)
	return s.status
}

// Activate verifies a user-entered code and persists it on success.
func (s *Session) Activate(ctx context.Context, code string) ActivationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.devUnlock {
		return ActivationResult{Success: true}
	}

	resp, err := s.verify(ctx, code)
	if err != nil {
		return ActivationResult{Message: "Could not reach the license server"}
	}

	if !resp.Success {
		s.apply(resp)
		msg := resp.Message
		if msg == "" {
			msg = "Invalid code"
		}
		return ActivationResult{Message: msg}
	}

	s.code = code
	if err := s.persist(); err != nil {
		// Access is granted for this run either way; the user just has to
		// re-enter the code next launch.
		return ActivationResult{Success: true, Message: "Activated, but saving the code failed"}
	}

	s.apply(resp)
	return ActivationResult{Success: true}
}

// RequestTrial asks the server for this device's one-off trial code. The
// returned code still has to be activated.
func (s *Session) RequestTrial(ctx context.Context) (string, error) {
	s.mu.Lock()
	deviceID := s.deviceID
	s.mu.Unlock()

	payload, err := json.Marshal(map[string]string{"deviceId": deviceID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/licenses/trial", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	var resp struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", err
	}

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "trial not available"
		}
		return "", fmt.Errorf("%s", msg)
	}
	return resp.Code, nil
}

type verifyResponse struct {
	Success        bool   `json:"success"`
	Type           string `json:"type"`
	HoursRemaining int    `json:"hoursRemaining"`
	Status         string `json:"status"`
	Message        string `json:"message"`
}

func (s *Session) verify(ctx context.Context, code string) (*verifyResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"code":     code,
		"deviceId": s.deviceID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/licenses/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("server error: status %d", httpResp.StatusCode)
	}

	var resp verifyResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// apply folds a server response into the session. Callers hold the lock.
func (s *Session) apply(resp *verifyResponse) {
	if resp.Success {
		switch resp.Type {
		case "trial":
			s.status = StatusTrial
			s.trialHours = resp.HoursRemaining
		case "dev":
			s.status = StatusDev
			s.trialHours = 0
		default:
			s.status = StatusFull
			s.trialHours = 0
		}
		return
	}

	s.status = StatusLocked
	s.trialHours = 0
	if resp.Status == "expired" {
		// The trial is over; keeping the dead code around would just replay
		// the same answer forever.
		s.code = ""
		_ = s.persist()
	}
}

func (s *Session) persist() error {
	return s.store.Save(State{DeviceID: s.deviceID, Code: s.code})
}
