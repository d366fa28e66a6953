package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/openweb3"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/saleor"
	"github.com/saleor-apps/openweb3-payment/internal/pkg/id"
)

// configMetadataKey is the private-metadata key the whole app configuration
// is serialized under.
const configMetadataKey = "app-config"

// MetadataClient is the subset of the Saleor client the config manager uses.
type MetadataClient interface {
	AppPrivateMetadata(ctx context.Context) (appID string, metadata map[string]string, err error)
	UpdateAppPrivateMetadata(ctx context.Context, appID string, input []saleor.MetadataInput) error
}

// ConfigManager stores WalletPay key pairs and the channel mapping in the
// app's private metadata on the Saleor side.
type ConfigManager struct {
	saleor MetadataClient
	logger zerolog.Logger
}

func NewConfigManager(client MetadataClient, logger zerolog.Logger) *ConfigManager {
	return &ConfigManager{
		saleor: client,
		logger: logger.With().Str("component", "app_config").Logger(),
	}
}

// GetConfig loads the stored configuration. A tenant with no stored config
// gets an empty one, not an error.
func (m *ConfigManager) GetConfig(ctx context.Context) (*domain.AppConfig, error) {
	cfg, _, err := m.load(ctx)
	return cfg, err
}

// GetConfigObfuscated is GetConfig with every secret key masked, for
// dashboard consumption.
func (m *ConfigManager) GetConfigObfuscated(ctx context.Context) (*domain.AppConfig, error) {
	cfg, err := m.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cfg.Configurations {
		cfg.Configurations[i] = cfg.Configurations[i].Obfuscated()
	}
	return cfg, nil
}

// AddEntry validates the key pair, assigns a configuration id and persists
// the new entry. The returned copy is obfuscated.
func (m *ConfigManager) AddEntry(ctx context.Context, entry domain.ConfigEntry) (domain.ConfigEntry, error) {
	if err := openweb3.ValidateKeys(entry.SecretKey, entry.PublishableKey); err != nil {
		return domain.ConfigEntry{}, fmt.Errorf("%w: %s", domain.ErrBadRequest, err)
	}

	cfg, appID, err := m.load(ctx)
	if err != nil {
		return domain.ConfigEntry{}, err
	}
	entry.ConfigurationID = id.New()
	cfg.Configurations = append(cfg.Configurations, entry)

	if err := m.save(ctx, appID, cfg); err != nil {
		return domain.ConfigEntry{}, err
	}
	m.logger.Info().Str("configurationId", entry.ConfigurationID).Msg("config entry added")
	return entry.Obfuscated(), nil
}

// UpdateEntry replaces the named fields of an existing entry. Empty key
// fields keep the stored values, so the dashboard can resubmit obfuscated
// forms without wiping secrets.
func (m *ConfigManager) UpdateEntry(ctx context.Context, entry domain.ConfigEntry) (domain.ConfigEntry, error) {
	cfg, appID, err := m.load(ctx)
	if err != nil {
		return domain.ConfigEntry{}, err
	}

	for i := range cfg.Configurations {
		if cfg.Configurations[i].ConfigurationID != entry.ConfigurationID {
			continue
		}
		if entry.ConfigurationName != "" {
			cfg.Configurations[i].ConfigurationName = entry.ConfigurationName
		}
		if entry.PublishableKey != "" {
			cfg.Configurations[i].PublishableKey = entry.PublishableKey
		}
		if entry.SecretKey != "" {
			cfg.Configurations[i].SecretKey = entry.SecretKey
		}
		updated := cfg.Configurations[i]
		if err := openweb3.ValidateKeys(updated.SecretKey, updated.PublishableKey); err != nil {
			return domain.ConfigEntry{}, fmt.Errorf("%w: %s", domain.ErrBadRequest, err)
		}
		if err := m.save(ctx, appID, cfg); err != nil {
			return domain.ConfigEntry{}, err
		}
		m.logger.Info().Str("configurationId", entry.ConfigurationID).Msg("config entry updated")
		return updated.Obfuscated(), nil
	}
	return domain.ConfigEntry{}, fmt.Errorf("%w: configuration %s", domain.ErrNotFound, entry.ConfigurationID)
}

// DeleteEntry removes an entry and any channel mappings pointing at it.
func (m *ConfigManager) DeleteEntry(ctx context.Context, configurationID string) error {
	cfg, appID, err := m.load(ctx)
	if err != nil {
		return err
	}

	kept := cfg.Configurations[:0]
	found := false
	for _, e := range cfg.Configurations {
		if e.ConfigurationID == configurationID {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%w: configuration %s", domain.ErrNotFound, configurationID)
	}
	cfg.Configurations = kept
	for channel, mapped := range cfg.ChannelToConfigID {
		if mapped == configurationID {
			delete(cfg.ChannelToConfigID, channel)
		}
	}

	if err := m.save(ctx, appID, cfg); err != nil {
		return err
	}
	m.logger.Info().Str("configurationId", configurationID).Msg("config entry deleted")
	return nil
}

// MapChannel points channelID at an entry. An empty configurationID clears
// the mapping.
func (m *ConfigManager) MapChannel(ctx context.Context, channelID, configurationID string) error {
	cfg, appID, err := m.load(ctx)
	if err != nil {
		return err
	}

	if configurationID == "" {
		delete(cfg.ChannelToConfigID, channelID)
	} else {
		exists := false
		for _, e := range cfg.Configurations {
			if e.ConfigurationID == configurationID {
				exists = true
				break
			}
		}
		if !exists {
			return fmt.Errorf("%w: configuration %s", domain.ErrNotFound, configurationID)
		}
		if cfg.ChannelToConfigID == nil {
			cfg.ChannelToConfigID = map[string]string{}
		}
		cfg.ChannelToConfigID[channelID] = configurationID
	}

	if err := m.save(ctx, appID, cfg); err != nil {
		return err
	}
	m.logger.Info().Str("channelId", channelID).Str("configurationId", configurationID).Msg("channel mapping updated")
	return nil
}

func (m *ConfigManager) load(ctx context.Context) (*domain.AppConfig, string, error) {
	appID, metadata, err := m.saleor.AppPrivateMetadata(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("payment: load app config: %w", err)
	}
	cfg := &domain.AppConfig{ChannelToConfigID: map[string]string{}}
	if raw, ok := metadata[configMetadataKey]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), cfg); err != nil {
			return nil, "", fmt.Errorf("payment: decode app config: %w", err)
		}
		if cfg.ChannelToConfigID == nil {
			cfg.ChannelToConfigID = map[string]string{}
		}
	}
	return cfg, appID, nil
}

func (m *ConfigManager) save(ctx context.Context, appID string, cfg *domain.AppConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("payment: encode app config: %w", err)
	}
	input := []saleor.MetadataInput{{Key: configMetadataKey, Value: string(raw)}}
	if err := m.saleor.UpdateAppPrivateMetadata(ctx, appID, input); err != nil {
		return fmt.Errorf("payment: save app config: %w", err)
	}
	return nil
}
