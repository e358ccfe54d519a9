package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, StoreSQL, cfg.StoreDriver)
	assert.Equal(t, MailLog, cfg.MailDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 8, cfg.OutboxMaxAttempts)
}

func TestFromViper_RejectsUnknownStore(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]any{"STORE_DRIVER": "cassandra"}))
	assert.Error(t, err)
}

func TestFromViper_SMTPNeedsHost(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]any{"MAIL_DRIVER": "smtp"}))
	assert.Error(t, err)
}

func TestFromViper_ProdRejectsDefaultSecret(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]any{
		"APP_ENV":     "production",
		"MAIL_DRIVER": "smtp",
		"SMTP_HOST":   "smtp.example.com",
	}))
	assert.Error(t, err)

	cfg, err := fromViper(newTestViper(map[string]any{
		"APP_ENV":     "production",
		"MAIL_DRIVER": "smtp",
		"SMTP_HOST":   "smtp.example.com",
		"JWT_SECRET":  "a-real-secret",
	}))
	require.NoError(t, err)
	assert.True(t, IsProdLike(cfg.AppEnv))
}
