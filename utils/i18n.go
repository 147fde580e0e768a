package utils

import (
	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var (
	// Bundle is the global translation bundle
	Bundle *i18n.Bundle
	// Localizer is the default localizer
	Localizer *i18n.Localizer
)

// defaultMessages are the English strings the console ships with. Locale
// files under locales/ may override or extend them.
var defaultMessages = []*i18n.Message{
	{ID: "smtp_loaded", Other: "SMTP settings loaded."},
	{ID: "smtp_saved", Other: "SMTP settings saved."},
	{ID: "smtp_load_failed", Other: "Failed to load SMTP settings."},
	{ID: "smtp_save_failed", Other: "Failed to save SMTP settings."},
	{ID: "users_load_failed", Other: "Failed to load users."},
	{ID: "user_created", Other: "User created."},
	{ID: "user_create_failed", Other: "Failed to create user."},
	{ID: "user_updated", Other: "User updated."},
	{ID: "user_update_failed", Other: "Failed to update user."},
	{ID: "user_deleted", Other: "User deleted."},
	{ID: "user_delete_failed", Other: "Failed to delete user."},
	{ID: "user_fields_required", Other: "Email, username and password are required."},
	{ID: "temp_password_required", Other: "A temporary password is required."},
	{ID: "temp_password_set", Other: "Temporary password set."},
	{ID: "reset_link_failed", Other: "Failed to generate reset link."},
	{ID: "reset_link_ready", Other: "Reset link: {{.URL}}"},
	{ID: "search_failed", Other: "Employee search failed."},
	{ID: "no_employee_selected", Other: "Select an employee first."},
	{ID: "dispatch_failed", Other: "Failed to run notifications."},
	{ID: "dispatch_running", Other: "A notification run is already in progress."},
	{ID: "no_report_yet", Other: "No notification run to export yet."},
	{ID: "login_failed", Other: "Invalid username or password."},
	{ID: "login_required_fields", Other: "Username and password are required."},
	{ID: "access_denied", Other: "You do not have permission to view this page."},
	{ID: "error_404", Other: "Page not found."},
}

// InitI18n initializes the i18n system
func InitI18n() error {
	Bundle = i18n.NewBundle(language.English)
	Bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	if err := Bundle.AddMessages(language.English, defaultMessages...); err != nil {
		return err
	}

	// Optional overrides shipped alongside the binary.
	for _, file := range []string{"locales/active.en.toml", "locales/active.tr.toml"} {
		if _, err := Bundle.LoadMessageFile(file); err != nil {
			Log.Debug("Locale file %s not loaded: %v", file, err)
		}
	}

	Localizer = i18n.NewLocalizer(Bundle, language.English.String())

	Log.Info("i18n system initialized")
	return nil
}

// GetLocalizer returns a localizer for the specified language
func GetLocalizer(lang string) *i18n.Localizer {
	if lang == "" {
		lang = "en"
	}
	return i18n.NewLocalizer(Bundle, lang)
}

// T translates a message ID
func T(localizer *i18n.Localizer, messageID string) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID: messageID,
	})
	if err != nil {
		Log.Debug("Translation error for '%s': %v", messageID, err)
		return messageID
	}
	return msg
}

// TWithData translates a message ID with template data
func TWithData(localizer *i18n.Localizer, messageID string, data map[string]interface{}) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		Log.Debug("Translation error for '%s': %v", messageID, err)
		return messageID
	}
	return msg
}
