// Package token issues and validates the signed tokens the engine hands
// out: access tokens for authenticated sessions, pending tokens bridging
// the password step and the second factor, and single-use reset tokens.
//
// Every token carries an explicit purpose claim, enforced at parse time.
// A token minted for one step of a flow is never accepted by another.
package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Purpose values. Parsing with the wrong purpose fails with ErrWrongPurpose.
const (
	PurposeAccess  = "access"
	PurposePending = "2fa"
	PurposeReset   = "reset"
)

var (
	// ErrWrongPurpose means the token is genuine but minted for a
	// different step of a flow.
	ErrWrongPurpose = errors.New("token purpose mismatch")
)

// Config holds the key material and validation settings shared by all
// token kinds.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration

	AccessTTL  time.Duration
	PendingTTL time.Duration
	ResetTTL   time.Duration
}

// Manager signs and parses tokens. Safe for concurrent use.
type Manager struct {
	config Config
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UID     string   `json:"uid"`
	Alias   string   `json:"alias,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Purpose string   `json:"prp"`
	jwt.RegisteredClaims
}

// PendingClaims is the payload of a pending-second-factor token. It
// names the challenge it bridges to and nothing else.
type PendingClaims struct {
	UID         string `json:"uid"`
	ChallengeID string `json:"cid"`
	Purpose     string `json:"prp"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of a password reset token. It is scoped to
// the recovery challenge that earned it and to its user; the registered
// ID (jti) is the handle the consumed-token registry tracks.
type ResetClaims struct {
	UID         string `json:"uid"`
	ChallengeID string `json:"cid"`
	Purpose     string `json:"prp"`
	jwt.RegisteredClaims
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.PendingTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// CreateAccess mints an access token for an authenticated user.
func (m *Manager) CreateAccess(uid, alias string, roles []string) (string, error) {
	claims := AccessClaims{
		UID:              uid,
		Alias:            alias,
		Roles:            roles,
		Purpose:          PurposeAccess,
		RegisteredClaims: m.registered(m.config.AccessTTL),
	}
	return m.sign(claims)
}

// CreatePending mints a token scoping a login to its pending challenge.
// It grants no access; its only use is correlating the second-factor
// step with the password step that preceded it.
func (m *Manager) CreatePending(uid, challengeID string) (string, error) {
	claims := PendingClaims{
		UID:              uid,
		ChallengeID:      challengeID,
		Purpose:          PurposePending,
		RegisteredClaims: m.registered(m.config.PendingTTL),
	}
	return m.sign(claims)
}

// CreateReset mints a single-use reset token bound to the recovery
// challenge that was just verified. It returns the token, its jti, and
// the expiry; the caller registers the jti on consumption.
func (m *Manager) CreateReset(uid, challengeID string) (string, string, time.Time, error) {
	reg := m.registered(m.config.ResetTTL)
	reg.ID = uuid.NewString()

	claims := ResetClaims{
		UID:              uid,
		ChallengeID:      challengeID,
		Purpose:          PurposeReset,
		RegisteredClaims: reg,
	}
	token, err := m.sign(claims)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, reg.ID, reg.ExpiresAt.Time, nil
}

// ParseAccess validates an access token and its purpose.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeAccess {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// ParsePending validates a pending-second-factor token and its purpose.
func (m *Manager) ParsePending(tokenStr string) (*PendingClaims, error) {
	claims := &PendingClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposePending {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// ParseReset validates a reset token and its purpose.
func (m *Manager) ParseReset(tokenStr string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeReset {
		return nil, ErrWrongPurpose
	}
	if claims.ID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (m *Manager) registered(ttl time.Duration) jwt.RegisteredClaims {
	reg := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    m.config.Issuer,
	}
	if m.config.Audience != "" {
		reg.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	return reg
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(m.getMethod(), claims)

	signKey, err := m.getSignKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.getVerifyKey()
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

func (m *Manager) getMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) getSignKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(m.config.PrivateKey)
	}
}

func (m *Manager) getVerifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPublicKey(m.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
