package models

import "time"

// DefaultServiceColor is used when a service is created without a color.
const DefaultServiceColor = "#FF4444"

// Service is an entry of the garage's service catalog.
type Service struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Duration  int       `json:"duration"` // minutes
	Color     string    `json:"color"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ServiceInput is the body for creating or editing a service
type ServiceInput struct {
	Name     string `json:"name"`
	Duration int    `json:"duration"`
	Color    string `json:"color"`
	Active   *bool  `json:"active,omitempty"`
}
