package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banterhq/banter/pkg/internal/models"
)

func randomPublicKey(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestPublishKeyBundle(t *testing.T) {
	useTestDB(t)
	fx := seedFixture(t)

	key := randomPublicKey(t)
	bundle, err := PublishKeyBundle(fx.alice, key)
	require.NoError(t, err)
	assert.Equal(t, models.KeyAlgorithmX25519, bundle.Algorithm)
	assert.Equal(t, key, bundle.PublicKey)

	raw, _ := base64.StdEncoding.DecodeString(key)
	digest := sha256.Sum256(raw)
	assert.Equal(t, hex.EncodeToString(digest[:]), bundle.Fingerprint,
		"the fingerprint is derived server-side, not taken from the publisher")

	fetched, err := GetKeyBundle(fx.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, bundle.ID, fetched.ID)
}

func TestPublishKeyBundleRotatesInPlace(t *testing.T) {
	useTestDB(t)
	fx := seedFixture(t)

	first, err := PublishKeyBundle(fx.alice, randomPublicKey(t))
	require.NoError(t, err)

	rotatedKey := randomPublicKey(t)
	second, err := PublishKeyBundle(fx.alice, rotatedKey)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "republishing rotates the one bundle instead of stacking")
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)

	fetched, err := GetKeyBundle(fx.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, rotatedKey, fetched.PublicKey)
}

func TestPublishKeyBundleValidation(t *testing.T) {
	useTestDB(t)
	fx := seedFixture(t)

	_, err := PublishKeyBundle(fx.alice, "not base64 at all!!!")
	requireCode(t, err, ErrCodeValidation)

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = PublishKeyBundle(fx.alice, short)
	requireCode(t, err, ErrCodeValidation)
}

func TestGetKeyBundleMissing(t *testing.T) {
	useTestDB(t)
	fx := seedFixture(t)

	_, err := GetKeyBundle(fx.bob.ID)
	requireCode(t, err, ErrCodeNotFound)
}
