package payment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/saleor"
)

type mockMetadataClient struct{ mock.Mock }

func (m *mockMetadataClient) AppPrivateMetadata(ctx context.Context) (string, map[string]string, error) {
	args := m.Called(ctx)
	md, _ := args.Get(1).(map[string]string)
	return args.String(0), md, args.Error(2)
}
func (m *mockMetadataClient) UpdateAppPrivateMetadata(ctx context.Context, appID string, input []saleor.MetadataInput) error {
	return m.Called(ctx, appID, input).Error(0)
}

func storedConfig(t *testing.T, cfg domain.AppConfig) map[string]string {
	t.Helper()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	return map[string]string{configMetadataKey: string(raw)}
}

// savedConfig decodes the config persisted through UpdateAppPrivateMetadata.
func savedConfig(t *testing.T, input []saleor.MetadataInput) domain.AppConfig {
	t.Helper()
	require.Len(t, input, 1)
	require.Equal(t, configMetadataKey, input[0].Key)
	var cfg domain.AppConfig
	require.NoError(t, json.Unmarshal([]byte(input[0].Value), &cfg))
	return cfg
}

func TestConfigManager_GetConfigEmptyWhenUnset(t *testing.T) {
	client := &mockMetadataClient{}
	client.On("AppPrivateMetadata", mock.Anything).Return("app-1", map[string]string{}, nil)
	m := NewConfigManager(client, zerolog.Nop())

	cfg, err := m.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cfg.Configurations)
	assert.NotNil(t, cfg.ChannelToConfigID)
}

func TestConfigManager_AddEntry(t *testing.T) {
	client := &mockMetadataClient{}
	client.On("AppPrivateMetadata", mock.Anything).Return("app-1", map[string]string{}, nil)

	var persisted []saleor.MetadataInput
	client.On("UpdateAppPrivateMetadata", mock.Anything, "app-1", mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(2).([]saleor.MetadataInput) }).
		Return(nil)

	m := NewConfigManager(client, zerolog.Nop())
	entry, err := m.AddEntry(context.Background(), domain.ConfigEntry{
		ConfigurationName: "prod",
		PublishableKey:    "pk_live_abc",
		SecretKey:         "sk_live_secret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ConfigurationID)
	assert.Equal(t, "**********cret", entry.SecretKey)

	cfg := savedConfig(t, persisted)
	require.Len(t, cfg.Configurations, 1)
	assert.Equal(t, "sk_live_secret", cfg.Configurations[0].SecretKey)
}

func TestConfigManager_AddEntryRejectsEmptyKeys(t *testing.T) {
	m := NewConfigManager(&mockMetadataClient{}, zerolog.Nop())
	_, err := m.AddEntry(context.Background(), domain.ConfigEntry{ConfigurationName: "x"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestConfigManager_UpdateEntryKeepsSecretsOnEmptyFields(t *testing.T) {
	stored := domain.AppConfig{Configurations: []domain.ConfigEntry{{
		ConfigurationID:   "cfg-1",
		ConfigurationName: "old",
		PublishableKey:    "pk_1",
		SecretKey:         "sk_original",
	}}}
	client := &mockMetadataClient{}
	client.On("AppPrivateMetadata", mock.Anything).Return("app-1", storedConfig(t, stored), nil)

	var persisted []saleor.MetadataInput
	client.On("UpdateAppPrivateMetadata", mock.Anything, "app-1", mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(2).([]saleor.MetadataInput) }).
		Return(nil)

	m := NewConfigManager(client, zerolog.Nop())
	_, err := m.UpdateEntry(context.Background(), domain.ConfigEntry{
		ConfigurationID:   "cfg-1",
		ConfigurationName: "renamed",
	})
	require.NoError(t, err)

	cfg := savedConfig(t, persisted)
	assert.Equal(t, "renamed", cfg.Configurations[0].ConfigurationName)
	assert.Equal(t, "sk_original", cfg.Configurations[0].SecretKey)
}

func TestConfigManager_UpdateEntryNotFound(t *testing.T) {
	client := &mockMetadataClient{}
	client.On("AppPrivateMetadata", mock.Anything).Return("app-1", map[string]string{}, nil)
	m := NewConfigManager(client, zerolog.Nop())

	_, err := m.UpdateEntry(context.Background(), domain.ConfigEntry{ConfigurationID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigManager_DeleteEntryRemovesMappings(t *testing.T) {
	stored := domain.AppConfig{
		Configurations: []domain.ConfigEntry{
			{ConfigurationID: "cfg-1", PublishableKey: "pk", SecretKey: "sk"},
			{ConfigurationID: "cfg-2", PublishableKey: "pk", SecretKey: "sk"},
		},
		ChannelToConfigID: map[string]string{"ch-1": "cfg-1", "ch-2": "cfg-2"},
	}
	client := &mockMetadataClient{}
	client.On("AppPrivateMetadata", mock.Anything).Return("app-1", storedConfig(t, stored), nil)

	var persisted []saleor.MetadataInput
	client.On("UpdateAppPrivateMetadata", mock.Anything, "app-1", mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(2).([]saleor.MetadataInput) }).
		Return(nil)

	m := NewConfigManager(client, zerolog.Nop())
	require.NoError(t, m.DeleteEntry(context.Background(), "cfg-1"))

	cfg := savedConfig(t, persisted)
	require.Len(t, cfg.Configurations, 1)
	assert.Equal(t, "cfg-2", cfg.Configurations[0].ConfigurationID)
	assert.NotContains(t, cfg.ChannelToConfigID, "ch-1")
	assert.Contains(t, cfg.ChannelToConfigID, "ch-2")
}

func TestConfigManager_MapChannel(t *testing.T) {
	stored := domain.AppConfig{Configurations: []domain.ConfigEntry{
		{ConfigurationID: "cfg-1", PublishableKey: "pk", SecretKey: "sk"},
	}}
	client := &mockMetadataClient{}
	client.On("AppPrivateMetadata", mock.Anything).Return("app-1", storedConfig(t, stored), nil)

	var persisted []saleor.MetadataInput
	client.On("UpdateAppPrivateMetadata", mock.Anything, "app-1", mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(2).([]saleor.MetadataInput) }).
		Return(nil)

	m := NewConfigManager(client, zerolog.Nop())
	require.NoError(t, m.MapChannel(context.Background(), "ch-1", "cfg-1"))
	assert.Equal(t, "cfg-1", savedConfig(t, persisted).ChannelToConfigID["ch-1"])

	assert.ErrorIs(t, m.MapChannel(context.Background(), "ch-1", "ghost"), domain.ErrNotFound)
}

func TestConfigManager_MapChannelClearsOnEmptyID(t *testing.T) {
	stored := domain.AppConfig{
		Configurations:    []domain.ConfigEntry{{ConfigurationID: "cfg-1", PublishableKey: "pk", SecretKey: "sk"}},
		ChannelToConfigID: map[string]string{"ch-1": "cfg-1"},
	}
	client := &mockMetadataClient{}
	client.On("AppPrivateMetadata", mock.Anything).Return("app-1", storedConfig(t, stored), nil)

	var persisted []saleor.MetadataInput
	client.On("UpdateAppPrivateMetadata", mock.Anything, "app-1", mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(2).([]saleor.MetadataInput) }).
		Return(nil)

	m := NewConfigManager(client, zerolog.Nop())
	require.NoError(t, m.MapChannel(context.Background(), "ch-1", ""))
	assert.NotContains(t, savedConfig(t, persisted).ChannelToConfigID, "ch-1")
}
