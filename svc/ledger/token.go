package ledger

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"oxypaste/pkg/domain"
	"oxypaste/svc/util"
)

// Well-known keys for the auth token, matching the names the original
// web client used in localStorage.
const (
	tokenKey       = "token"
	tokenExpiryKey = "expireAt"
)

// TokenSource is the single place the current bearer token is read
// from. Every operation asks it once instead of poking at storage ad
// hoc; an expired token reads as "not logged in".
type TokenSource struct {
	store Store
}

func NewTokenSource(store Store) *TokenSource {
	if store == nil {
		panic("token source: nil store")
	}
	return &TokenSource{store: store}
}

// Token returns the stored bearer token, or ok=false when there is
// none or it has expired. An expired token is cleared on sight.
func (t *TokenSource) Token(ctx context.Context) (string, bool) {
	token, ok, err := t.store.Get(ctx, tokenKey)
	if err != nil {
		util.Warn().Err(err).Msg("token read failed, treating as anonymous")
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	raw, ok, err := t.store.Get(ctx, tokenExpiryKey)
	if err == nil && ok && raw != "" {
		expiry, perr := time.Parse(time.RFC3339, raw)
		if perr == nil && time.Now().After(expiry) {
			if cerr := t.Clear(ctx); cerr != nil {
				util.Warn().Err(cerr).Msg("failed to clear expired token")
			}
			return "", false
		}
	}
	return token, true
}

// Save stores a login grant.
func (t *TokenSource) Save(ctx context.Context, grant domain.TokenGrant) error {
	if grant.SessionToken == "" {
		return errors.New("empty session token")
	}
	if err := t.store.Set(ctx, tokenKey, grant.SessionToken); err != nil {
		return errors.Wrap(err, "store token")
	}
	if grant.ExpireAt.IsZero() {
		// No expiry from the server means the token lives until logout.
		return errors.Wrap(t.store.Delete(ctx, tokenExpiryKey), "clear token expiry")
	}
	return errors.Wrap(t.store.Set(ctx, tokenExpiryKey, grant.ExpireAt.Format(time.RFC3339)), "store token expiry")
}

// Clear logs the client out locally.
func (t *TokenSource) Clear(ctx context.Context) error {
	if err := t.store.Delete(ctx, tokenKey); err != nil {
		return errors.Wrap(err, "clear token")
	}
	return errors.Wrap(t.store.Delete(ctx, tokenExpiryKey), "clear token expiry")
}
