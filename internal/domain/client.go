package domain

import (
	"fmt"
	"strings"
	"time"
)

// ClientStatus is the lifecycle state of a tenant organization.
type ClientStatus string

const (
	ClientActive   ClientStatus = "ACTIVE"
	ClientInactive ClientStatus = "INACTIVE"
)

func (s ClientStatus) String() string { return string(s) }

func (s ClientStatus) IsValid() bool {
	switch s {
	case ClientActive, ClientInactive:
		return true
	}
	return false
}

// Client is a tenant organization on the platform.
type Client struct {
	ID           string
	Name         string
	ContactEmail string
	Status       ClientStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const maxClientNameLen = 255

func (c *Client) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: client is required", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: client name is required", ErrValidation)
	}
	if len([]rune(c.Name)) > maxClientNameLen {
		return fmt.Errorf("%w: client name exceeds %d characters", ErrValidation, maxClientNameLen)
	}
	if strings.TrimSpace(c.ContactEmail) == "" {
		return fmt.Errorf("%w: contact email is required", ErrValidation)
	}
	if !strings.Contains(c.ContactEmail, "@") {
		return fmt.Errorf("%w: invalid contact email %q", ErrValidation, c.ContactEmail)
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: invalid client status %q", ErrValidation, c.Status)
	}
	return nil
}
