package keychain

import (
	"context"
	"fmt"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Keyfunc returns a jwt.Keyfunc over the current keyset, for callers that
// parse tokens with golang-jwt. The keyset is snapshotted at call time;
// call again after Invalidate or Refresh to pick up rotated keys.
func (k *Keychain) Keyfunc(ctx context.Context) (jwt.Keyfunc, error) {
	raw, err := k.RawKeyset(ctx)
	if err != nil {
		return nil, err
	}
	kf, err := keyfunc.NewJWKSetJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("keychain: build keyfunc: %w", err)
	}
	return kf.Keyfunc, nil
}
