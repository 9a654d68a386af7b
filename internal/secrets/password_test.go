package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobcrawl-engine/internal/config"
)

func TestIMAPPasswordRoundTrip(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvIMAPPassword, "")

	var cfg config.Config
	cfg.Email.Username = "me@example.com"
	cfg.Email.IMAPHost = "imap.gmail.com"
	acct := IMAPKeyringAccount(cfg)
	assert.Equal(t, "jobcrawl:imap:me@example.com@imap.gmail.com", acct)

	_, err := GetIMAPPassword(acct)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetIMAPPassword(acct, "hunter2"))
	pw, err := GetIMAPPassword(acct)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	require.NoError(t, DeleteIMAPPassword(acct))
	_, err = GetIMAPPassword(acct)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnvFallback(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvIMAPPassword, "from-env")

	pw, err := GetIMAPPassword("nobody@nowhere")
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)
}

func TestSetRejectsEmpty(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetIMAPPassword("", "x"))
	assert.Error(t, SetIMAPPassword("acct", "  "))
}

func TestTelegramToken(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvTelegramToken, "")

	var cfg config.Config
	cfg.Notify.ChatID = 42
	_, err := TelegramToken(cfg)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetTelegramToken(cfg, "123:abc"))
	tok, err := TelegramToken(cfg)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", tok)

	cfg.Notify.Token = "from-config"
	tok, err = TelegramToken(cfg)
	require.NoError(t, err)
	assert.Equal(t, "from-config", tok)
}
