// Package clinic provides clinic-specific configuration: contact details
// and notification preferences, stored in redis.
package clinic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NotificationPrefs holds notification preferences for a clinic.
type NotificationPrefs struct {
	EmailEnabled    bool     `json:"email_enabled"`
	EmailRecipients []string `json:"email_recipients,omitempty"`

	NotifyOnBooking      bool `json:"notify_on_booking"`
	NotifyOnCancellation bool `json:"notify_on_cancellation"`
	NotifyOnReschedule   bool `json:"notify_on_reschedule"`
	NotifyOnCompletion   bool `json:"notify_on_completion"`
}

// Config holds clinic-specific configuration.
type Config struct {
	ClinicID string `json:"clinic_id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	// Timezone such as "America/New_York"; reminder windows are computed
	// in UTC, this only affects rendered times in outbound messages.
	Timezone      string            `json:"timezone"`
	Notifications NotificationPrefs `json:"notifications"`
}

// DefaultConfig returns the configuration used before a clinic customizes
// anything: notifications on, addressed to the clinic email.
func DefaultConfig(clinicID string) *Config {
	return &Config{
		ClinicID: clinicID,
		Timezone: "UTC",
		Notifications: NotificationPrefs{
			EmailEnabled:         true,
			NotifyOnBooking:      true,
			NotifyOnCancellation: true,
			NotifyOnReschedule:   true,
			NotifyOnCompletion:   false,
		},
	}
}

// Recipients returns the notification addresses, falling back to the
// clinic contact email.
func (c *Config) Recipients() []string {
	if len(c.Notifications.EmailRecipients) > 0 {
		return c.Notifications.EmailRecipients
	}
	if c.Email != "" {
		return []string{c.Email}
	}
	return nil
}

// Store provides persistence for clinic configurations.
type Store struct {
	redis *redis.Client
}

// NewStore creates a new clinic config store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(clinicID string) string {
	return fmt.Sprintf("clinic:config:%s", clinicID)
}

// Get retrieves clinic config, returning the default if not found.
func (s *Store) Get(ctx context.Context, clinicID string) (*Config, error) {
	data, err := s.redis.Get(ctx, s.key(clinicID)).Bytes()
	if err == redis.Nil {
		return DefaultConfig(clinicID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("clinic: unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Set saves clinic config.
func (s *Store) Set(ctx context.Context, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("clinic: marshal config: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(cfg.ClinicID), data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: set config: %w", err)
	}
	return nil
}
