package domain

import "strings"

// ConfigEntry is one WalletPay key pair configured for a tenant. Entries
// live in the app's private metadata on the Saleor side, one list per
// tenant, addressed by ConfigurationID.
type ConfigEntry struct {
	ConfigurationID   string `json:"configurationId"`
	ConfigurationName string `json:"configurationName"`
	PublishableKey    string `json:"publishableKey"`
	SecretKey         string `json:"secretKey"`
}

// AppConfig is the full per-tenant payment configuration: all entries plus
// the channel→configuration mapping.
type AppConfig struct {
	Configurations    []ConfigEntry     `json:"configurations"`
	ChannelToConfigID map[string]string `json:"channelToConfigurationId"`
}

// EntryForChannel returns the entry mapped to channelID, or nil.
func (c *AppConfig) EntryForChannel(channelID string) *ConfigEntry {
	id, ok := c.ChannelToConfigID[channelID]
	if !ok {
		return nil
	}
	for i := range c.Configurations {
		if c.Configurations[i].ConfigurationID == id {
			return &c.Configurations[i]
		}
	}
	return nil
}

const obfuscatedTail = 4

// Obfuscated returns a copy safe to show in the dashboard: the secret key
// is reduced to asterisks plus its last four characters.
func (e ConfigEntry) Obfuscated() ConfigEntry {
	out := e
	if n := len(e.SecretKey); n > obfuscatedTail {
		out.SecretKey = strings.Repeat("*", n-obfuscatedTail) + e.SecretKey[n-obfuscatedTail:]
	} else if n > 0 {
		out.SecretKey = strings.Repeat("*", n)
	}
	return out
}
