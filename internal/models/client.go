package models

import "time"

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Remark    string    `json:"remark"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientInput is the body for creating or editing a client
type ClientInput struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Remark string `json:"remark"`
}
