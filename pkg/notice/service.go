package notice

import (
	"embed"
	"log/slog"

	"github.com/wafra-app/wafra-backend/pkg/notification"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NewNotificationManager builds a manager with an SMTP notifier and all of
// the email notices registered.
func NewNotificationManager(smtpConfig notification.SMTPConfig) (*notification.NotificationManager, error) {
	notificationManager := notification.NewNotificationManager()

	emailNotifier, err := notification.NewEmailNotifier(smtpConfig)
	if err != nil {
		return nil, err
	}
	notificationManager.RegisterNotifier(notification.EmailSystem, emailNotifier)

	if err := registerNotices(notificationManager); err != nil {
		return nil, err
	}
	return notificationManager, nil
}

// NewMockNotificationManager builds a manager backed by a recording notifier.
// Used in tests and in deployments without SMTP configured.
func NewMockNotificationManager() (*notification.NotificationManager, *notification.MockNotifier, error) {
	notificationManager := notification.NewNotificationManager()
	mock := &notification.MockNotifier{}
	notificationManager.RegisterNotifier(notification.EmailSystem, mock)

	if err := registerNotices(notificationManager); err != nil {
		return nil, nil, err
	}
	return notificationManager, mock, nil
}

func registerNotices(nm *notification.NotificationManager) error {
	err := nm.RegisterNotification(notification.EmailVerificationNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Verify your email address",
		Html:    loadTemplate("templates/email/email_verification.tmpl"),
	})
	if err != nil {
		return err
	}

	err = nm.RegisterNotification(notification.PasswordResetNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Password Reset Request",
		Html:    loadTemplate("templates/email/password_reset.tmpl"),
	})
	if err != nil {
		return err
	}

	err = nm.RegisterNotification(notification.WelcomeNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Welcome to Wafra",
		Html:    loadTemplate("templates/email/welcome.tmpl"),
	})
	if err != nil {
		return err
	}

	err = nm.RegisterNotification(notification.IdentityVerifiedNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Your identity has been verified",
		Html:    loadTemplate("templates/email/identity_verified.tmpl"),
	})
	if err != nil {
		return err
	}

	return nil
}
