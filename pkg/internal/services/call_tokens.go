package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/banterhq/banter/pkg/internal/models"
)

type CallClaims struct {
	Room string `json:"room"`
	Nick string `json:"nick"`

	jwt.RegisteredClaims
}

func callTokenDuration() time.Duration {
	if val := viper.GetDuration("calling.token_duration"); val > 0 {
		return val
	}
	return 6 * time.Hour
}

// EncodeCallToken mints the short-lived credential a client presents to the
// media plane; the room claim pins it to one call.
func EncodeCallToken(user models.Account, call models.CallSession) (string, error) {
	claims := CallClaims{
		Room: call.Room,
		Nick: user.Nick,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "banter",
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(callTokenDuration())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	tks, err := token.SignedString([]byte(viper.GetString("security.call_token_secret")))
	if err != nil {
		return "", fmt.Errorf("failed to sign call token: %v", err)
	}
	return tks, nil
}

func DecodeCallToken(tk string) (CallClaims, error) {
	var claims CallClaims
	token, err := jwt.ParseWithClaims(tk, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return []byte(viper.GetString("security.call_token_secret")), nil
	})
	if err != nil {
		return claims, err
	}
	if !token.Valid {
		return claims, fmt.Errorf("invalid call token")
	}
	return claims, nil
}

type IceServer struct {
	URLs       []string `json:"urls" mapstructure:"urls"`
	Username   string   `json:"username,omitempty" mapstructure:"username"`
	Credential string   `json:"credential,omitempty" mapstructure:"credential"`
}

// GetIceServers reads the STUN/TURN list handed to joining clients. An empty
// list is valid; peers on the same network can still connect host-to-host.
func GetIceServers() []IceServer {
	var servers []IceServer
	if err := viper.UnmarshalKey("calling.ice_servers", &servers); err != nil {
		log.Warn().Err(err).Msg("Unable to parse ICE server list in settings...")
		return nil
	}
	return servers
}
