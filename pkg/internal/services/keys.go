package services

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"gorm.io/gorm"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
)

func GetKeyBundle(accountId uint) (models.KeyBundle, error) {
	var bundle models.KeyBundle
	if err := database.C.
		Where("account_id = ?", accountId).
		Preload("Account").
		First(&bundle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return bundle, NewNotFound("account #%d has not published a key bundle", accountId)
		}
		return bundle, err
	}
	return bundle, nil
}

// PublishKeyBundle stores or rotates the account's public key. The server
// never holds private material; the fingerprint is derived here so clients
// can compare it out of band without trusting the publisher's own claim.
func PublishKeyBundle(account models.Account, publicKey string) (models.KeyBundle, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return models.KeyBundle{}, NewValidation("public key must be base64 encoded")
	}
	if len(raw) != 32 {
		return models.KeyBundle{}, NewValidation("an x25519 public key is exactly 32 bytes")
	}

	digest := sha256.Sum256(raw)
	fingerprint := hex.EncodeToString(digest[:])

	var bundle models.KeyBundle
	if err := database.C.Where("account_id = ?", account.ID).First(&bundle).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return bundle, err
		}
		bundle = models.KeyBundle{AccountID: account.ID}
	}

	bundle.Algorithm = models.KeyAlgorithmX25519
	bundle.PublicKey = publicKey
	bundle.Fingerprint = fingerprint

	if err := database.C.Save(&bundle).Error; err != nil {
		return bundle, err
	}
	return bundle, nil
}
