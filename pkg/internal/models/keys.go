package models

const KeyAlgorithmX25519 = "x25519"

// KeyBundle is the public half of an account's messaging keypair. One bundle
// per account; republishing rotates the key in place.
type KeyBundle struct {
	BaseModel

	AccountID   uint    `json:"account_id" gorm:"uniqueIndex"`
	Account     Account `json:"account"`
	Algorithm   string  `json:"algorithm"`
	PublicKey   string  `json:"public_key"`
	Fingerprint string  `json:"fingerprint"`
}
