package identity

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	serviceName = "bingelog"
	sessionKey  = "session_token"
)

// ErrInvalidToken wraps token parsing and validation failures.
var ErrInvalidToken = errors.New("invalid session token")

// Claims is the session token payload issued by the identity provider.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// OpenKeyring returns the OS keyring, falling back to an encrypted file
// store under dir.
func OpenKeyring(dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt("bingelog-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// KeyringProvider keeps the session token in a keyring and derives the
// current user from its claims.
type KeyringProvider struct {
	ring   keyring.Keyring
	secret []byte
	log    zerolog.Logger
	now    func() time.Time

	mu   sync.RWMutex
	user *User
}

// NewKeyringProvider loads any stored session from ring. secret verifies
// HS256 signatures; when empty, claims are read without verification.
func NewKeyringProvider(ring keyring.Keyring, secret string, log zerolog.Logger) *KeyringProvider {
	p := &KeyringProvider{
		ring:   ring,
		secret: []byte(secret),
		log:    log,
		now:    time.Now,
	}
	if err := p.Refresh(); err != nil {
		log.Warn().Err(err).Msg("stored session ignored")
	}
	return p
}

// CurrentUser returns the signed-in user or nil.
func (p *KeyringProvider) CurrentUser() *User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

// Login validates token, stores it and makes its subject the current user.
func (p *KeyringProvider) Login(token string) (*User, error) {
	user, err := p.parse(token)
	if err != nil {
		return nil, err
	}

	if err := p.ring.Set(keyring.Item{Key: sessionKey, Data: []byte(token)}); err != nil {
		return nil, fmt.Errorf("storing session token: %w", err)
	}

	p.mu.Lock()
	p.user = user
	p.mu.Unlock()

	p.log.Info().Str("user_id", user.ID).Msg("signed in")
	return user, nil
}

// Logout forgets the stored session. Logging out twice is not an error.
func (p *KeyringProvider) Logout() error {
	p.mu.Lock()
	p.user = nil
	p.mu.Unlock()

	if err := p.ring.Remove(sessionKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing session token: %w", err)
	}
	return nil
}

// Refresh re-reads the stored token. An expired or invalid token signs the
// user out and is reported as an error.
func (p *KeyringProvider) Refresh() error {
	item, err := p.ring.Get(sessionKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		p.setUser(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading session token: %w", err)
	}

	user, err := p.parse(string(item.Data))
	p.setUser(user)
	return err
}

func (p *KeyringProvider) setUser(u *User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = u
}

func (p *KeyringProvider) parse(token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(p.now),
	)

	var err error
	if len(p.secret) == 0 {
		_, _, err = parser.ParseUnverified(token, claims)
		if err == nil {
			err = p.checkExpiry(claims)
		}
	} else {
		_, err = parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return p.secret, nil
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &User{ID: claims.Subject, Email: claims.Email}, nil
}

// checkExpiry applies the exp check that ParseUnverified skips.
func (p *KeyringProvider) checkExpiry(claims *Claims) error {
	if claims.ExpiresAt != nil && !p.now().Before(claims.ExpiresAt.Time) {
		return jwt.ErrTokenExpired
	}
	return nil
}

// IssueToken signs an HS256 session token for userID. It backs local
// development sign-in and tests.
func IssueToken(secret, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}
