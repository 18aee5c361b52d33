package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"authsvc/internal/domain"
	"authsvc/internal/repository"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	createErr    error
	getErr       error
	updateErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrEmailTaken
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	getErr := m.getErr
	m.mu.Unlock()
	if getErr != nil {
		return domain.User{}, getErr
	}
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) Update(_ context.Context, id string, upd domain.UserUpdate) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return domain.User{}, m.updateErr
	}
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	if upd.Email != nil && *upd.Email != user.Email {
		if _, taken := m.usersByEmail[*upd.Email]; taken {
			return domain.User{}, repository.ErrEmailTaken
		}
		delete(m.usersByEmail, user.Email)
		user.Email = *upd.Email
		m.usersByEmail[user.Email] = id
	}
	if upd.Name != nil {
		if *upd.Name == "" {
			user.Name = nil
		} else {
			name := *upd.Name
			user.Name = &name
		}
	}
	if upd.PasswordHash != nil {
		user.PasswordHash = *upd.PasswordHash
	}
	if upd.EmailVerified != nil {
		user.EmailVerified = *upd.EmailVerified
	}
	m.usersByID[id] = user
	return user, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.usersByID, id)
	delete(m.usersByEmail, user.Email)
	return nil
}

func (m *mockUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.usersByID)
}

type mockTokenRepo struct {
	mu           sync.Mutex
	tokens       map[domain.TokenPurpose]map[string]domain.SingleUseToken
	insertErr    error
	findErr      error
	deleteErr    error
	deleteAllErr error
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[domain.TokenPurpose]map[string]domain.SingleUseToken)}
}

func (m *mockTokenRepo) bucket(p domain.TokenPurpose) map[string]domain.SingleUseToken {
	b, ok := m.tokens[p]
	if !ok {
		b = make(map[string]domain.SingleUseToken)
		m.tokens[p] = b
	}
	return b
}

func (m *mockTokenRepo) DeleteAllForUser(_ context.Context, userID string, purpose domain.TokenPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteAllErr != nil {
		return m.deleteAllErr
	}
	b := m.bucket(purpose)
	for h, tok := range b {
		if tok.UserID == userID {
			delete(b, h)
		}
	}
	return nil
}

func (m *mockTokenRepo) Insert(_ context.Context, tok domain.SingleUseToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	b := m.bucket(tok.Purpose)
	for h, existing := range b {
		if existing.UserID == tok.UserID {
			delete(b, h)
		}
	}
	b[tok.TokenHash] = tok
	return nil
}

func (m *mockTokenRepo) FindByHash(_ context.Context, hash string, purpose domain.TokenPurpose) (domain.SingleUseToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return domain.SingleUseToken{}, m.findErr
	}
	tok, ok := m.bucket(purpose)[hash]
	if !ok {
		return domain.SingleUseToken{}, repository.ErrNotFound
	}
	return tok, nil
}

func (m *mockTokenRepo) DeleteByHash(_ context.Context, hash string, purpose domain.TokenPurpose) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	b := m.bucket(purpose)
	if _, ok := b[hash]; !ok {
		return false, nil
	}
	delete(b, hash)
	return true, nil
}

func (m *mockTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.tokens {
		for h, tok := range b {
			if tok.IsExpiredAt(now) {
				delete(b, h)
				n++
			}
		}
	}
	return n, nil
}

func (m *mockTokenRepo) countFor(userID string, purpose domain.TokenPurpose) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tok := range m.bucket(purpose) {
		if tok.UserID == userID {
			n++
		}
	}
	return n
}

func (m *mockTokenRepo) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.tokens {
		n += len(b)
	}
	return n
}

type sentEmail struct {
	kind  string
	to    string
	token string
}

type mockEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *mockEmailSender) SendVerificationEmail(_ context.Context, toEmail, token string) error {
	return m.record("verification", toEmail, token)
}

func (m *mockEmailSender) SendPasswordResetEmail(_ context.Context, toEmail, token string) error {
	return m.record("reset", toEmail, token)
}

func (m *mockEmailSender) record(kind, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{kind: kind, to: to, token: token})
	return nil
}

func (m *mockEmailSender) last(kind string) (sentEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i], true
		}
	}
	return sentEmail{}, false
}

var errBackendDown = errors.New("backend down")
