package assets

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	apperrors "fxjournal/internal/errors"
)

// Promoter moves staged uploads into permanent storage as part of saving a
// trade. Promotion happens before the record write; if the write then fails,
// Rollback removes the promoted copies so no orphaned permanent objects
// remain.
type Promoter struct {
	blob   BlobStore
	logger zerolog.Logger
}

// NewPromoter builds a promoter over the given blob store.
func NewPromoter(blob BlobStore, logger zerolog.Logger) *Promoter {
	return &Promoter{blob: blob, logger: logger}
}

// Promotion records the permanent keys created by one Finalize call so the
// caller can undo them when the record write fails.
type Promotion struct {
	promoter *Promoter
	keys     []string
}

// Finalize rewrites staged image URLs to their permanent location. URLs that
// are empty, point at an external chart host, or already reference permanent
// storage pass through unchanged. Each staged object is copied to the
// permanent prefix and then removed from staging.
//
// On a copy failure the promotions already made by this call are undone and
// an error is returned; the input map is never partially applied.
func (p *Promoter) Finalize(ctx context.Context, urls map[string]string) (map[string]string, *Promotion, error) {
	final := make(map[string]string, len(urls))
	promo := &Promotion{promoter: p}

	for field, rawURL := range urls {
		if rawURL == "" || IsExternalLink(rawURL) {
			final[field] = rawURL
			continue
		}

		key := keyFromURL(rawURL, p.blob.BaseURL())
		if key == "" || !strings.HasPrefix(key, TempPrefix) {
			// Not ours, or already permanent.
			final[field] = rawURL
			continue
		}

		permanentKey := PermanentPrefix + strings.TrimPrefix(key, TempPrefix)
		if err := p.blob.Copy(ctx, key, permanentKey); err != nil {
			promo.Rollback(ctx)
			return nil, nil, apperrors.Wrapf(err, "promoting %s", field)
		}
		promo.keys = append(promo.keys, permanentKey)

		// The staged copy is gone either way; a failed delete only leaks a
		// staging object, so log and move on.
		if err := p.blob.Delete(ctx, key); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("Failed to remove staged upload after promotion")
		}

		final[field] = p.blob.BaseURL() + "/" + permanentKey
	}
	return final, promo, nil
}

// Rollback deletes the permanent objects created by the promotion. Called
// when the record write that the promotion served has failed.
func (pr *Promotion) Rollback(ctx context.Context) {
	for _, key := range pr.keys {
		if err := pr.promoter.blob.Delete(ctx, key); err != nil {
			pr.promoter.logger.Error().Err(err).Str("key", key).Msg("Rollback failed to delete promoted object")
		}
	}
	pr.keys = nil
}

// DeleteSuperseded removes permanent objects whose URLs were replaced by an
// edit. Runs after the record write has succeeded; failures are logged and
// swallowed since the record already points elsewhere.
func (p *Promoter) DeleteSuperseded(ctx context.Context, oldURLs, newURLs []string) {
	keep := make(map[string]struct{}, len(newURLs))
	for _, u := range newURLs {
		keep[u] = struct{}{}
	}

	for _, old := range oldURLs {
		if old == "" {
			continue
		}
		if _, still := keep[old]; still {
			continue
		}
		key := keyFromURL(old, p.blob.BaseURL())
		if key == "" || !strings.HasPrefix(key, PermanentPrefix) {
			continue
		}
		if err := p.blob.Delete(ctx, key); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete superseded image")
		}
	}
}
