package core

// TokenRecord is the persisted result of an OAuth code exchange, keyed by UserEmail.
type TokenRecord struct {
	AccessToken  string `json:"access_token" yaml:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	// ExpiryDate is milliseconds since the Unix epoch, zero when unknown.
	ExpiryDate int64  `json:"expiry_date,omitempty" yaml:"expiry_date,omitempty"`
	Scope      string `json:"scope,omitempty" yaml:"scope,omitempty"`
	TokenType  string `json:"token_type,omitempty" yaml:"token_type,omitempty"`
	UserEmail  string `json:"user_email" yaml:"user_email"`
	UserName   string `json:"user_name" yaml:"user_name"`
	CreatedAt  string `json:"created_at" yaml:"created_at"`
	UpdatedAt  string `json:"updated_at" yaml:"updated_at"`
}

// Redacted returns a copy with secret material masked for display.
func (t TokenRecord) Redacted() TokenRecord {
	out := t
	out.AccessToken = redact(t.AccessToken)
	out.RefreshToken = redact(t.RefreshToken)
	return out
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}
