package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docketly/docketly-api/api"
)

func TestCollabToken_RoundTrip(t *testing.T) {
	token, err := api.NewCollabToken("s3cret", "u1", "Alice Park", "alice@firm.test", "doc-1", time.Hour)
	require.NoError(t, err)

	claims, err := api.ParseCollabToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "Alice Park", claims.Name)
	assert.Equal(t, "alice@firm.test", claims.Email)
	assert.Equal(t, "doc-1", claims.DocumentID)
}

func TestCollabToken_WrongSecretRejected(t *testing.T) {
	token, err := api.NewCollabToken("s3cret", "u1", "Alice Park", "", "doc-1", time.Hour)
	require.NoError(t, err)

	_, err = api.ParseCollabToken("other-secret", token)
	assert.Error(t, err)
}

func TestCollabToken_ExpiredRejected(t *testing.T) {
	token, err := api.NewCollabToken("s3cret", "u1", "Alice Park", "", "doc-1", -time.Minute)
	require.NoError(t, err)

	_, err = api.ParseCollabToken("s3cret", token)
	assert.Error(t, err)
}

func TestCollabToken_GarbageRejected(t *testing.T) {
	_, err := api.ParseCollabToken("s3cret", "not-a-token")
	assert.Error(t, err)
}
