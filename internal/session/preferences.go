package session

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/domain"
)

// DefaultDark is the theme a client sees before choosing one.
const DefaultDark = true

type PreferenceStore interface {
	GetTheme(ctx context.Context, key string) (dark bool, found bool, err error)
	SetTheme(ctx context.Context, key string, dark bool) error
}

type Theme struct {
	Dark bool `json:"dark"`
}

type Preferences struct {
	store PreferenceStore
}

func NewPreferences(store PreferenceStore) *Preferences {
	return &Preferences{store: store}
}

// ClientKey picks whose preference is meant: the signed-in user, else the
// browser's client id.
func ClientKey(userID uuid.UUID, clientID string) (string, error) {
	if userID != uuid.Nil {
		return "user:" + userID.String(), nil
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || len(clientID) > 128 {
		return "", errors.Wrap(domain.ErrInvalidInput, "missing client id")
	}
	return "client:" + clientID, nil
}

func (p *Preferences) Theme(ctx context.Context, key string) (Theme, error) {
	dark, found, err := p.store.GetTheme(ctx, key)
	if err != nil {
		return Theme{}, errors.Wrap(err, "get theme")
	}
	if !found {
		return Theme{Dark: DefaultDark}, nil
	}
	return Theme{Dark: dark}, nil
}

func (p *Preferences) SetTheme(ctx context.Context, key string, dark bool) (Theme, error) {
	if err := p.store.SetTheme(ctx, key, dark); err != nil {
		return Theme{}, errors.Wrap(err, "set theme")
	}
	return Theme{Dark: dark}, nil
}

func (p *Preferences) ToggleTheme(ctx context.Context, key string) (Theme, error) {
	cur, err := p.Theme(ctx, key)
	if err != nil {
		return Theme{}, err
	}
	return p.SetTheme(ctx, key, !cur.Dark)
}
