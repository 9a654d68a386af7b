// Package secrets keeps credentials in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"jobcrawl-engine/internal/config"
)

// KeyringService groups the engine's secrets in the OS keychain.
const KeyringService = "jobcrawl"

// Env fallbacks for headless hosts without a keychain.
const (
	EnvIMAPPassword  = "JOBCRAWL_IMAP_PASSWORD"
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
)

var ErrNotFound = errors.New("secret not found")

func get(account, env string) (string, error) {
	if strings.TrimSpace(account) != "" {
		pw, err := keyring.Get(KeyringService, account)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: set it in the keychain or via %s", ErrNotFound, env)
}

func set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func GetIMAPPassword(account string) (string, error) { return get(account, EnvIMAPPassword) }

func SetIMAPPassword(account, password string) error { return set(account, password) }

func DeleteIMAPPassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func IMAPKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf("jobcrawl:imap:%s@%s", cfg.Email.Username, cfg.Email.IMAPHost)
}

// TelegramToken prefers a token already in the config (loaded from the
// environment), then the keychain.
func TelegramToken(cfg config.Config) (string, error) {
	if t := strings.TrimSpace(cfg.Notify.Token); t != "" {
		return t, nil
	}
	return get(TelegramKeyringAccount(cfg), EnvTelegramToken)
}

func SetTelegramToken(cfg config.Config, token string) error {
	return set(TelegramKeyringAccount(cfg), token)
}

func TelegramKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf("jobcrawl:telegram:%d", cfg.Notify.ChatID)
}
