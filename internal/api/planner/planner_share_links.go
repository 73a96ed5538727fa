package planner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-trip-fusion/internal/types"
)

const shareIssuer = "trip-fusion"

var (
	ErrShareLinksDisabled = errors.New("planner: share links need a signing key")
	ErrInvalidShareToken  = errors.New("planner: share link is invalid or expired")
)

// ShareClaims is the payload of a signed share token. The token ID names
// the itinerary snapshot.
type ShareClaims struct {
	Title string `json:"title,omitempty"`
	jwt.RegisteredClaims
}

type ShareLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ShareLinks signs share tokens and keeps the itineraries they point to
// until the tokens expire.
type ShareLinks struct {
	key       []byte
	ttl       time.Duration
	baseURL   string
	snapshots *cache.Cache
	now       func() time.Time
}

func NewShareLinks(signingKey string, ttl time.Duration, publicBaseURL string) *ShareLinks {
	return &ShareLinks{
		key:       []byte(signingKey),
		ttl:       ttl,
		baseURL:   strings.TrimRight(publicBaseURL, "/"),
		snapshots: cache.New(ttl, time.Hour),
		now:       time.Now,
	}
}

func (s *ShareLinks) Enabled() bool { return len(s.key) > 0 }

// Create stores a copy of it and returns a signed link to it.
func (s *ShareLinks) Create(it types.Itinerary) (ShareLink, error) {
	if !s.Enabled() {
		return ShareLink{}, ErrShareLinksDisabled
	}
	now := s.now()
	expires := now.Add(s.ttl)
	id := uuid.NewString()

	claims := ShareClaims{
		Title: it.Title,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    shareIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return ShareLink{}, fmt.Errorf("failed to sign share token: %w", err)
	}

	s.snapshots.Set(id, it.Clone(), s.ttl)
	return ShareLink{Token: token, URL: s.URL(token), ExpiresAt: expires.UTC()}, nil
}

func (s *ShareLinks) URL(token string) string {
	return s.baseURL + "/api/v1/shared/" + token
}

// Resolve verifies token and returns the itinerary it points to.
func (s *ShareLinks) Resolve(token string) (types.Itinerary, error) {
	if !s.Enabled() {
		return types.Itinerary{}, ErrShareLinksDisabled
	}
	claims := &ShareClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(shareIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return types.Itinerary{}, fmt.Errorf("%w: %v", ErrInvalidShareToken, err)
	}

	v, found := s.snapshots.Get(claims.ID)
	if !found {
		return types.Itinerary{}, ErrInvalidShareToken
	}
	return v.(types.Itinerary).Clone(), nil
}
