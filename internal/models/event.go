package models

import "time"

// Event is one appointment row. A booking spanning several days is stored
// as one row per occupied day, each carrying the same Duration.
type Event struct {
	ID           string    `json:"id"`
	EventDate    string    `json:"event_date"` // YYYY-MM-DD
	StartTime    string    `json:"start_time"` // HH:MM
	Duration     int       `json:"duration"`   // span in days
	CarInfo      string    `json:"car_info"`
	Price        *int      `json:"price"`
	Remark       string    `json:"remark"`
	ClientName   string    `json:"client_name"`
	ClientPhone  string    `json:"client_phone"`
	ClientRemark *string   `json:"client_remark"`
	Employees    []string  `json:"employees"`
	Services     []string  `json:"services"`
	MultiDay     bool      `json:"multi_day"`
	CreatedBy    *string   `json:"created_by"`
	CreatorName  string    `json:"creator_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// EventInput is the booking form as submitted by the UI.
type EventInput struct {
	Date      string   `json:"date"`
	StartTime string   `json:"start_time"`
	Days      int      `json:"days"`
	CarInfo   string   `json:"car_info"`
	Price     string   `json:"price"` // digits only, empty for none
	Remark    string   `json:"remark"`
	Employees []string `json:"employees"`
	Services  []string `json:"services"`

	// ClientID picks a roster client, NewClient creates one inline. With
	// neither set the snapshot fields below are stored as given.
	ClientID     string       `json:"client_id,omitempty"`
	NewClient    *ClientInput `json:"new_client,omitempty"`
	ClientName   string       `json:"client_name,omitempty"`
	ClientPhone  string       `json:"client_phone,omitempty"`
	ClientRemark *string      `json:"client_remark,omitempty"`
}
