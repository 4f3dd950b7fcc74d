package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds the marketplace constants that used to be hard-coded
// literals in the application: the delivery status every new delivery
// starts in, the payment type used for placeholder payments, the wholesale
// market locations compared by the price report, and the payment file cap.
type Settings struct {
	InitialDeliveryStatusId  int      `yaml:"initial_delivery_status_id"`
	PlaceholderPaymentTypeId int      `yaml:"placeholder_payment_type_id"`
	ReportLocations          []string `yaml:"report_locations"`
	SellerRoleName           string   `yaml:"seller_role_name"`
	PaymentFileMaxBytes      int64    `yaml:"payment_file_max_bytes"`
	PaymentNoteMaxLen        int      `yaml:"payment_note_max_len"`
}

func DefaultSettings() Settings {
	return Settings{
		InitialDeliveryStatusId:  1,
		PlaceholderPaymentTypeId: 5,
		ReportLocations:          []string{"Pettah", "Dambulla"},
		SellerRoleName:           "seller",
		PaymentFileMaxBytes:      16 * 1024 * 1024,
		PaymentNoteMaxLen:        45,
	}
}

// LoadSettings reads settings from a yaml file, filling unset fields with
// defaults. An empty path returns the defaults unchanged.
func LoadSettings(configPath string) (Settings, error) {
	settings := DefaultSettings()

	if configPath == "" {
		return settings, nil
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return settings, fmt.Errorf("error reading settings file: %w", err)
	}

	err = yaml.Unmarshal(configData, &settings)
	if err != nil {
		return settings, fmt.Errorf("error decoding settings file: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return settings, err
	}

	return settings, nil
}

func (s Settings) Validate() error {
	if s.InitialDeliveryStatusId <= 0 {
		return fmt.Errorf("initial_delivery_status_id must be positive, got %d", s.InitialDeliveryStatusId)
	}
	if s.PlaceholderPaymentTypeId <= 0 {
		return fmt.Errorf("placeholder_payment_type_id must be positive, got %d", s.PlaceholderPaymentTypeId)
	}
	if len(s.ReportLocations) != 2 {
		return fmt.Errorf("report_locations must name exactly two markets, got %d", len(s.ReportLocations))
	}
	if s.PaymentFileMaxBytes <= 0 {
		return fmt.Errorf("payment_file_max_bytes must be positive, got %d", s.PaymentFileMaxBytes)
	}
	if s.PaymentNoteMaxLen <= 0 {
		return fmt.Errorf("payment_note_max_len must be positive, got %d", s.PaymentNoteMaxLen)
	}
	return nil
}
