package auth_test

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/frahmantamala/training-identity/internal/auth"
	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/frahmantamala/training-identity/internal/core/events"
)

// mockEmployeeRepository stores copies so the flow cannot mutate state
// without calling SaveCredentials.
type mockEmployeeRepository struct {
	mu         sync.Mutex
	byID       map[string]employee.Employee
	saves      int
	shouldFail bool
	failError  error
}

func newMockEmployeeRepository() *mockEmployeeRepository {
	return &mockEmployeeRepository{byID: make(map[string]employee.Employee)}
}

func (m *mockEmployeeRepository) setError(err error) {
	m.shouldFail = true
	m.failError = err
}

func (m *mockEmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	e, ok := m.byID[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &e, nil
}

func (m *mockEmployeeRepository) FindOne(ctx context.Context, filter map[string]string) (*employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	for _, e := range m.byID {
		if email, ok := filter["email"]; ok && e.Email != email {
			continue
		}
		found := e
		return &found, nil
	}
	return nil, account.ErrNotFound
}

func (m *mockEmployeeRepository) Create(ctx context.Context, e *employee.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return m.failError
	}
	for _, existing := range m.byID {
		if existing.Email == e.Email || existing.PhoneNumber == e.PhoneNumber {
			return account.ErrDuplicate
		}
	}
	m.byID[e.ID] = *e
	return nil
}

func (m *mockEmployeeRepository) SaveCredentials(ctx context.Context, e *employee.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return m.failError
	}
	m.saves++
	m.byID[e.ID] = *e
	return nil
}

func (m *mockEmployeeRepository) stored(id string) employee.Employee {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

// countingHasher is a fast stand-in for bcrypt that counts comparisons.
type countingHasher struct {
	compares int
}

func (h *countingHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func (h *countingHasher) Compare(hash, plain string) bool {
	h.compares++
	return hash == "hashed:"+plain
}

type recordingNotifier struct {
	mu            sync.Mutex
	verifications []auth.VerificationMessage
	otps          []auth.OTPMessage
	resets        []auth.PasswordResetMessage
}

func (n *recordingNotifier) SendVerification(ctx context.Context, msg auth.VerificationMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, msg)
	return nil
}

func (n *recordingNotifier) SendOTP(ctx context.Context, msg auth.OTPMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps = append(n.otps, msg)
	return nil
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, msg auth.PasswordResetMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, msg)
	return nil
}

func (n *recordingNotifier) lastVerificationToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return tokenFromURL(n.verifications[len(n.verifications)-1].URL)
}

func (n *recordingNotifier) lastResetToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return tokenFromURL(n.resets[len(n.resets)-1].URL)
}

func (n *recordingNotifier) lastOTP() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.otps[len(n.otps)-1].Code
}

func tokenFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

type stubSMSGateway struct {
	code string
	err  error
}

func (s *stubSMSGateway) RequestCode(ctx context.Context, phone string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.code, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.EventType())
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

var errStoreDown = errors.New("store down")
