package models

// SMTPSettings is the mail configuration resource managed on the settings
// page. Password is write-only: the backend never returns it, and the form
// buffer must be blanked after every load or save so a stale value is never
// re-submitted. An empty password on save means "leave unchanged".
type SMTPSettings struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
	UseTLS    bool   `json:"use_tls"`
	UseSSL    bool   `json:"use_ssl"`
	CCList    string `json:"cc_list"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// BlankPassword clears the password buffer. Called after every successful
// load and save.
func (s *SMTPSettings) BlankPassword() {
	s.Password = ""
}
