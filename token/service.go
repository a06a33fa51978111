package token

import (
	"context"
	"errors"
	"log/slog"
)

// Service is the token verification pipeline: deserialize, validate claims,
// then validate the signature. It holds no mutable state and is safe for
// concurrent use.
type Service struct {
	deserializer *Deserializer
	claims       *ClaimsValidator
	signature    *SignatureValidator
	log          *slog.Logger
}

// New assembles a Service from explicit components.
func New(d *Deserializer, claims *ClaimsValidator, signature *SignatureValidator, opts ...Option) *Service {
	cfg := newConfig(opts)
	return &Service{
		deserializer: d,
		claims:       claims,
		signature:    signature,
		log:          cfg.log,
	}
}

// NewService builds the standard pipeline for tokens addressed to audience,
// verified against keys. The same options configure every stage.
func NewService(audience string, keys KeysetSource, opts ...Option) (*Service, error) {
	if audience == "" {
		return nil, errors.New("token: audience is required")
	}
	if keys == nil {
		return nil, errors.New("token: keyset source is required")
	}
	cfg := newConfig(opts)
	return &Service{
		deserializer: NewDeserializer(),
		claims:       newClaimsValidator(audience, cfg),
		signature:    &SignatureValidator{keys: keys, cfg: cfg},
		log:          cfg.log,
	}, nil
}

// VerifyToken returns the Token for s if it is well formed, its header and
// claims are valid and it carries a valid signature. Claims are validated
// before the signature, so a token failing claim checks never triggers a
// keyset fetch.
//
// Errors match one of ErrMalformedToken, ErrInvalidHeader, ErrInvalidClaim,
// ErrSignatureInvalid or ErrKeysetUnavailable.
func (s *Service) VerifyToken(ctx context.Context, raw string) (*Token, error) {
	tok, err := s.deserializer.Parse(raw)
	if err != nil {
		s.log.DebugContext(ctx, "token.verify.fail", slog.String("stage", "parse"), slog.String("err", err.Error()))
		return nil, err
	}

	if err := s.claims.Validate(tok); err != nil {
		s.log.DebugContext(ctx, "token.verify.fail", slog.String("stage", "claims"), slog.String("err", err.Error()))
		return nil, err
	}

	ok, err := s.signature.Validate(ctx, tok)
	if err != nil {
		s.log.WarnContext(ctx, "token.verify.fail", slog.String("stage", "keyset"), slog.String("err", err.Error()))
		return nil, err
	}
	if !ok {
		s.log.DebugContext(ctx, "token.verify.fail", slog.String("stage", "signature"))
		return nil, ErrSignatureInvalid
	}

	sub, _ := tok.Subject()
	use, _ := tok.TokenUse()
	s.log.DebugContext(ctx, "token.verify.ok", slog.String("sub", sub), slog.String("token_use", use))
	return tok, nil
}
