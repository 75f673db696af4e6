package models

// Record is a principal record as stored in the identity store. Secret-bearing
// fields are populated only inside this subsystem and must be stripped before
// a record is returned to any caller.
type Record struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	Verified  bool   `json:"verified"`

	// Preference fields subject to the null-backfill side effect on login.
	Theme                  string  `json:"theme"`
	Language               string  `json:"language"`
	FontScale              float64 `json:"fontScale"`
	BorderRadiusMultiplier float64 `json:"borderRadiusMultiplier"`

	// Sensitive fields. Never serialized on the way out; Sanitized() clears
	// them as a second line of defense.
	Password    string `json:"-"`
	TokenKey    string `json:"-"`
	TwoFASecret string `json:"-"`

	TwoFAEnabled bool `json:"twoFAEnabled"`
}

// Sanitized returns a copy of the record with every secret-bearing field
// removed. Redaction before a record leaves the subsystem is a hard contract.
func (r *Record) Sanitized() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Password = ""
	out.TokenKey = ""
	out.TwoFASecret = ""
	return &out
}

// NeedsDefaults reports whether any preference field is unset and the
// idempotent backfill should run.
func (r *Record) NeedsDefaults() bool {
	return r.Theme == "" || r.Language == "" || r.FontScale == 0 || r.BorderRadiusMultiplier == 0
}

// DefaultFields returns the subset of preference fields that are unset,
// mapped to their default values.
func (r *Record) DefaultFields() map[string]any {
	fields := map[string]any{}
	if r.Theme == "" {
		fields["theme"] = "system"
	}
	if r.Language == "" {
		fields["language"] = "en"
	}
	if r.FontScale == 0 {
		fields["fontScale"] = 1.0
	}
	if r.BorderRadiusMultiplier == 0 {
		fields["borderRadiusMultiplier"] = 1.0
	}
	return fields
}
