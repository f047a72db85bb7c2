package models

// TOTPSetupResponse returned when initiating 2FA setup
type TOTPSetupResponse struct {
	Secret      string `json:"secret"`  // Base32 secret for manual entry
	URL         string `json:"otp_url"` // otpauth:// URL for authenticator apps
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"`
}

// TOTPCodeRequest carries a 6-digit code for enable/disable
type TOTPCodeRequest struct {
	Code string `json:"code"`
}

// TOTPVerifyRequest for login 2FA verification
type TOTPVerifyRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}
