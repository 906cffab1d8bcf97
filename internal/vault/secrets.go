package vault

import (
	"fmt"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// Seal encrypts the secret fields of cfg for storage.
func (v *Vault) Seal(cfg domain.NotificationConfig) (domain.NotificationConfig, error) {
	var err error
	if cfg.Email.SMTP.Auth.Pass, err = v.Encrypt(cfg.Email.SMTP.Auth.Pass); err != nil {
		return cfg, fmt.Errorf("seal email password: %w", err)
	}
	if cfg.SMS.AccountSID, err = v.Encrypt(cfg.SMS.AccountSID); err != nil {
		return cfg, fmt.Errorf("seal sms account sid: %w", err)
	}
	if cfg.SMS.AuthToken, err = v.Encrypt(cfg.SMS.AuthToken); err != nil {
		return cfg, fmt.Errorf("seal sms auth token: %w", err)
	}
	return cfg, nil
}

// Open decrypts the secret fields of a stored cfg. Fields that cannot be
// decrypted come back empty, which leaves their channel unconfigured.
func (v *Vault) Open(cfg domain.NotificationConfig) domain.NotificationConfig {
	cfg.Email.SMTP.Auth.Pass = v.Decrypt(cfg.Email.SMTP.Auth.Pass)
	cfg.SMS.AccountSID = v.Decrypt(cfg.SMS.AccountSID)
	cfg.SMS.AuthToken = v.Decrypt(cfg.SMS.AuthToken)
	return cfg
}
