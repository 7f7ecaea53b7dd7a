package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-32-characters-long-minimum"

func TestGenerateAndValidate(t *testing.T) {
	t.Run("签发后可验证", func(t *testing.T) {
		m := NewManager(testSecret, "dropmail", time.Hour)

		token, expiresIn, err := m.Generate("alice")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, int64(3600), expiresIn)

		localPart, err := m.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", localPart)
	})

	t.Run("过期令牌被拒绝", func(t *testing.T) {
		m := NewManager(testSecret, "dropmail", -time.Minute)

		token, _, err := m.Generate("alice")
		require.NoError(t, err)

		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("错误密钥签发的令牌被拒绝", func(t *testing.T) {
		other := NewManager("another-secret-key-32-characters-long!!", "dropmail", time.Hour)
		token, _, err := other.Generate("alice")
		require.NoError(t, err)

		m := NewManager(testSecret, "dropmail", time.Hour)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("垃圾字符串被拒绝", func(t *testing.T) {
		m := NewManager(testSecret, "dropmail", time.Hour)
		_, err := m.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
