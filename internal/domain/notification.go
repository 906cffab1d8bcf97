package domain

import "strings"

// SecretMask replaces stored secrets in responses. An update carrying it keeps the stored value.
const SecretMask = "********"

type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelTeams  Channel = "teams"
	ChannelSMS    Channel = "sms"
	ChannelIPhone Channel = "iphone"
)

// Channels lists every channel in dispatch order.
var Channels = []Channel{ChannelEmail, ChannelTeams, ChannelSMS, ChannelIPhone}

func ParseChannel(s string) (Channel, bool) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Channels {
		if c == known {
			return c, true
		}
	}
	return "", false
}

type SMTPAuth struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

type SMTPConfig struct {
	Host       string   `json:"host"`
	Port       int      `json:"port"`
	Secure     bool     `json:"secure"`
	RequireTLS bool     `json:"requireTLS"`
	Auth       SMTPAuth `json:"auth"`
}

type EmailConfig struct {
	Enabled bool       `json:"enabled"`
	SMTP    SMTPConfig `json:"smtp"`
	From    string     `json:"from"`
	To      string     `json:"to"`
}

// Configured requires a password whenever a user is set; an undecryptable
// password comes back empty.
func (c EmailConfig) Configured() bool {
	if c.SMTP.Auth.User != "" && c.SMTP.Auth.Pass == "" {
		return false
	}
	return c.SMTP.Host != "" && c.From != "" && c.To != ""
}

type TeamsConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhookUrl"`
}

func (c TeamsConfig) Configured() bool { return c.WebhookURL != "" }

type SMSConfig struct {
	Enabled    bool   `json:"enabled"`
	AccountSID string `json:"accountSid"`
	AuthToken  string `json:"authToken"`
	From       string `json:"from"`
	To         string `json:"to"`
}

func (c SMSConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != "" && c.To != ""
}

type IPhoneConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhookUrl"`
}

func (c IPhoneConfig) Configured() bool { return c.WebhookURL != "" }

// NotificationConfig holds every channel. Secret fields are plaintext in memory
// and vault ciphertext on disk.
type NotificationConfig struct {
	Email  EmailConfig  `json:"email"`
	Teams  TeamsConfig  `json:"teams"`
	SMS    SMSConfig    `json:"sms"`
	IPhone IPhoneConfig `json:"iphone"`
}

func (c NotificationConfig) Enabled(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return c.Email.Enabled
	case ChannelTeams:
		return c.Teams.Enabled
	case ChannelSMS:
		return c.SMS.Enabled
	case ChannelIPhone:
		return c.IPhone.Enabled
	}
	return false
}

// Ready reports whether a channel is enabled and has every required field.
func (c NotificationConfig) Ready(ch Channel) bool {
	if !c.Enabled(ch) {
		return false
	}
	switch ch {
	case ChannelEmail:
		return c.Email.Configured()
	case ChannelTeams:
		return c.Teams.Configured()
	case ChannelSMS:
		return c.SMS.Configured()
	case ChannelIPhone:
		return c.IPhone.Configured()
	}
	return false
}

// Masked returns a copy safe to hand to API readers.
func (c NotificationConfig) Masked() NotificationConfig {
	c.Email.SMTP.Auth.Pass = mask(c.Email.SMTP.Auth.Pass)
	c.SMS.AccountSID = mask(c.SMS.AccountSID)
	c.SMS.AuthToken = mask(c.SMS.AuthToken)
	return c
}

// KeepSecrets replaces masked secret fields in c with the values from stored.
func (c NotificationConfig) KeepSecrets(stored NotificationConfig) NotificationConfig {
	if c.Email.SMTP.Auth.Pass == SecretMask {
		c.Email.SMTP.Auth.Pass = stored.Email.SMTP.Auth.Pass
	}
	if c.SMS.AccountSID == SecretMask {
		c.SMS.AccountSID = stored.SMS.AccountSID
	}
	if c.SMS.AuthToken == SecretMask {
		c.SMS.AuthToken = stored.SMS.AuthToken
	}
	return c
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	return SecretMask
}
