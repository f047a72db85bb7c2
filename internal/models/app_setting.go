package models

import "time"

// Keys stored in app_settings.
const (
	SettingSignupCodeHash = "signup_code_hash"
)

type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppInfo is the public branding block shown on the login screen.
type AppInfo struct {
	NamePart1   string `json:"name_part_1"`
	NamePart2   string `json:"name_part_2"`
	Description string `json:"description"`
	Version     string `json:"version"`
}
