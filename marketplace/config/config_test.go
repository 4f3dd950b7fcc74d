package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	settings, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, 1, settings.InitialDeliveryStatusId)
	assert.Equal(t, 5, settings.PlaceholderPaymentTypeId)
	assert.Equal(t, []string{"Pettah", "Dambulla"}, settings.ReportLocations)
	assert.Equal(t, "seller", settings.SellerRoleName)
	assert.Equal(t, int64(16*1024*1024), settings.PaymentFileMaxBytes)
	assert.Equal(t, 45, settings.PaymentNoteMaxLen)
}

func TestLoadSettingsFromFile(t *testing.T) {
	content := `
initial_delivery_status_id: 3
report_locations: [Colombo, Jaffna]
`
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, 3, settings.InitialDeliveryStatusId)
	assert.Equal(t, []string{"Colombo", "Jaffna"}, settings.ReportLocations)
	// Unset fields keep their defaults.
	assert.Equal(t, 5, settings.PlaceholderPaymentTypeId)
	assert.Equal(t, 45, settings.PaymentNoteMaxLen)
}

func TestLoadSettingsInvalid(t *testing.T) {
	content := `
report_locations: [Colombo]
`
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadSettings(path)
	assert.Error(t, err)

	_, err = LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
