package services

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banterhq/banter/pkg/internal/models"
)

func TestCallTokenRoundTrip(t *testing.T) {
	viper.Set("security.call_token_secret", "test-secret")
	defer viper.Set("security.call_token_secret", "")

	user := models.Account{BaseModel: models.BaseModel{ID: 42}, Nick: "Alice"}
	call := models.CallSession{Room: "room-uuid-1"}

	tk, err := EncodeCallToken(user, call)
	require.NoError(t, err)

	claims, err := DecodeCallToken(tk)
	require.NoError(t, err)
	assert.Equal(t, "room-uuid-1", claims.Room)
	assert.Equal(t, "Alice", claims.Nick)
	assert.Equal(t, "42", claims.Subject)
}

func TestCallTokenRejectsWrongSecret(t *testing.T) {
	viper.Set("security.call_token_secret", "test-secret")
	defer viper.Set("security.call_token_secret", "")

	tk, err := EncodeCallToken(models.Account{BaseModel: models.BaseModel{ID: 1}}, models.CallSession{Room: "r"})
	require.NoError(t, err)

	viper.Set("security.call_token_secret", "another-secret")
	_, err = DecodeCallToken(tk)
	assert.Error(t, err)
}

func TestGetIceServers(t *testing.T) {
	viper.Set("calling.ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.example.com:3478"}},
		{"urls": []string{"turn:turn.example.com:3478"}, "username": "u", "credential": "c"},
	})
	defer viper.Set("calling.ice_servers", nil)

	servers := GetIceServers()
	require.Len(t, servers, 2)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, servers[0].URLs)
	assert.Equal(t, "u", servers[1].Username)
	assert.Equal(t, "c", servers[1].Credential)
}
