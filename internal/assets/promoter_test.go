package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlob is an in-memory BlobStore.
type fakeBlob struct {
	objects map[string][]byte
	failOn  map[string]error // key -> error forced on Copy of that source
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: map[string][]byte{}, failOn: map[string]error{}}
}

func (f *fakeBlob) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.example/presigned/" + key, nil
}

func (f *fakeBlob) Copy(_ context.Context, srcKey, dstKey string) error {
	if err := f.failOn[srcKey]; err != nil {
		return err
	}
	data, ok := f.objects[srcKey]
	if !ok {
		return errors.New("no such object: " + srcKey)
	}
	f.objects[dstKey] = data
	return nil
}

func (f *fakeBlob) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeBlob) BaseURL() string { return "https://img.example.com" }

func newTestPromoter(blob BlobStore) *Promoter {
	return NewPromoter(blob, zerolog.Nop())
}

func TestFinalizePromotesStagedUploads(t *testing.T) {
	blob := newFakeBlob()
	blob.objects["temp/abc.png"] = []byte("chart")
	p := newTestPromoter(blob)

	final, promo, err := p.Finalize(context.Background(), map[string]string{
		"beforeImageUrl": "https://img.example.com/temp/abc.png",
	})
	require.NoError(t, err)
	require.NotNil(t, promo)

	assert.Equal(t, "https://img.example.com/setups/abc.png", final["beforeImageUrl"])
	assert.Contains(t, blob.objects, "setups/abc.png")
	assert.NotContains(t, blob.objects, "temp/abc.png")
}

func TestFinalizeLeavesExternalAndPermanentAlone(t *testing.T) {
	blob := newFakeBlob()
	blob.objects["setups/old.png"] = []byte("x")
	p := newTestPromoter(blob)

	urls := map[string]string{
		"beforeImageUrl":       "https://www.tradingview.com/x/AbCd1234/",
		"confirmationImageUrl": "https://drive.google.com/file/d/xyz/view",
		"afterImageUrl":        "https://img.example.com/setups/old.png",
		"empty":                "",
	}
	final, _, err := p.Finalize(context.Background(), urls)
	require.NoError(t, err)
	assert.Equal(t, urls, final)
	assert.Contains(t, blob.objects, "setups/old.png")
}

func TestFinalizeCopyFailureUndoesEarlierPromotions(t *testing.T) {
	blob := newFakeBlob()
	blob.objects["temp/a.png"] = []byte("a")
	blob.objects["temp/b.png"] = []byte("b")
	blob.failOn["temp/b.png"] = errors.New("storage down")
	p := newTestPromoter(blob)

	// Map iteration order is random; force the failing copy to run second by
	// calling twice when needed.
	_, _, err := p.Finalize(context.Background(), map[string]string{
		"beforeImageUrl": "https://img.example.com/temp/a.png",
	})
	require.NoError(t, err)
	_, _, err = p.Finalize(context.Background(), map[string]string{
		"afterImageUrl": "https://img.example.com/temp/b.png",
	})
	require.Error(t, err)
	assert.NotContains(t, blob.objects, "setups/b.png")
}

func TestRollbackLeavesNoLiveCopies(t *testing.T) {
	blob := newFakeBlob()
	blob.objects["temp/abc.png"] = []byte("chart")
	p := newTestPromoter(blob)

	_, promo, err := p.Finalize(context.Background(), map[string]string{
		"beforeImageUrl": "https://img.example.com/temp/abc.png",
	})
	require.NoError(t, err)

	// Simulated record-write failure: undo the promotion.
	promo.Rollback(context.Background())

	assert.Empty(t, blob.objects, "neither staged nor permanent copy should survive a rollback")
}

func TestDeleteSupersededSkipsRetainedAndExternal(t *testing.T) {
	blob := newFakeBlob()
	blob.objects["setups/replaced.png"] = []byte("old")
	blob.objects["setups/kept.png"] = []byte("keep")
	p := newTestPromoter(blob)

	oldURLs := []string{
		"https://img.example.com/setups/replaced.png",
		"https://img.example.com/setups/kept.png",
		"https://www.tradingview.com/x/AbCd1234/",
		"",
	}
	newURLs := []string{
		"https://img.example.com/setups/kept.png",
		"https://img.example.com/setups/new.png",
	}
	p.DeleteSuperseded(context.Background(), oldURLs, newURLs)

	assert.NotContains(t, blob.objects, "setups/replaced.png")
	assert.Contains(t, blob.objects, "setups/kept.png")
}

func TestIsExternalLink(t *testing.T) {
	assert.True(t, IsExternalLink("https://drive.google.com/file/d/xyz/view"))
	assert.True(t, IsExternalLink("https://www.tradingview.com/x/AbCd1234/"))
	assert.True(t, IsExternalLink("https://tradingview.com/x/AbCd1234/"))
	assert.False(t, IsExternalLink("https://img.example.com/temp/a.png"))
	assert.False(t, IsExternalLink("https://evil.com/tradingview.com"))
	assert.False(t, IsExternalLink("not a url"))
}
