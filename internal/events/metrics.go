// Package events publishes user activity metrics to the message broker.
package events

import "time"

const (
	TypeRegistration = "registration"
	TypeLogin        = "login"
	TypeGeoZone      = "geozone"
	TypeBlock        = "block"
)

const (
	LoginEntityEmail      = "email"
	LoginEntityBiometrics = "biometrics"
)

// Event is a metric message. Key partitions messages per user.
type Event interface {
	EventType() string
	Key() string
}

// Base carries the fields shared by every metric.
type Base struct {
	TimestampStart  time.Time `json:"timestamp_start"`
	TimestampFinish time.Time `json:"timestamp_finish"`
	UserEmail       string    `json:"user_email"`
	Type            string    `json:"event_type"`
}

func (b Base) EventType() string { return b.Type }
func (b Base) Key() string       { return b.UserEmail }

func newBase(eventType, email string, start time.Time) Base {
	return Base{
		TimestampStart:  start.UTC(),
		TimestampFinish: time.Now().UTC(),
		UserEmail:       email,
		Type:            eventType,
	}
}

type RegistrationMetric struct {
	Base
}

func NewRegistrationMetric(email string, start time.Time) RegistrationMetric {
	return RegistrationMetric{Base: newBase(TypeRegistration, email, start)}
}

type LoginMetric struct {
	Base
	Successful  bool   `json:"successful"`
	LoginEntity string `json:"login_entity"`
}

func NewLoginMetric(email string, start time.Time, successful bool, entity string) LoginMetric {
	return LoginMetric{
		Base:        newBase(TypeLogin, email, start),
		Successful:  successful,
		LoginEntity: entity,
	}
}

// GeoZoneMetric records a location change.
type GeoZoneMetric struct {
	Base
	OldLocation string `json:"old_location"`
	NewLocation string `json:"new_location"`
}

func NewGeoZoneMetric(email string, start time.Time, oldLocation, newLocation string) GeoZoneMetric {
	return GeoZoneMetric{
		Base:        newBase(TypeGeoZone, email, start),
		OldLocation: oldLocation,
		NewLocation: newLocation,
	}
}

// BlockMetric records an admin blocking or unblocking a user.
type BlockMetric struct {
	Base
	AdminEmail string `json:"admin_email"`
	Blocked    bool   `json:"blocked"`
}

func NewBlockMetric(adminEmail, email string, start time.Time, blocked bool) BlockMetric {
	return BlockMetric{
		Base:       newBase(TypeBlock, email, start),
		AdminEmail: adminEmail,
		Blocked:    blocked,
	}
}
