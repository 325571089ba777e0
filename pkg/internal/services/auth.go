package services

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"

	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/models"
)

type AccountClaims struct {
	Name   string  `json:"name"`
	Nick   string  `json:"nick"`
	Avatar *string `json:"avatar,omitempty"`

	jwt.RegisteredClaims
}

// Authenticate verifies a bearer token minted by the identity provider and
// syncs the embedded profile into the local account table, so relations can
// point at a real row even for first-time visitors.
func Authenticate(tk string) (models.Account, error) {
	var account models.Account
	var claims AccountClaims
	token, err := jwt.ParseWithClaims(tk, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return []byte(viper.GetString("security.jwt_secret")), nil
	})
	if err != nil {
		return account, err
	}
	if !token.Valid {
		return account, fmt.Errorf("invalid token")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return account, fmt.Errorf("invalid token subject: %v", err)
	}

	if err := database.C.Where("id = ?", uint(id)).First(&account).Error; err == nil {
		if account.Name != claims.Name || account.Nick != claims.Nick {
			account.Name = claims.Name
			account.Nick = claims.Nick
			account.Avatar = claims.Avatar
			database.C.Save(&account)
		}
		return account, nil
	}

	account = models.Account{
		BaseModel: models.BaseModel{ID: uint(id)},
		Name:      claims.Name,
		Nick:      claims.Nick,
		Avatar:    claims.Avatar,
	}
	if err := database.C.Create(&account).Error; err != nil {
		return account, fmt.Errorf("unable to sync account: %v", err)
	}

	return account, nil
}
