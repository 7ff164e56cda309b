package notification

// NoticeType identifies a kind of notice (e.g. "email_verification").
type NoticeType string

const (
	EmailVerificationNotice NoticeType = "email_verification"
	PasswordResetNotice     NoticeType = "password_reset_init"
	WelcomeNotice           NoticeType = "welcome"
	IdentityVerifiedNotice  NoticeType = "identity_verified"
)

// NoticeTemplate holds the renderable parts of a notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type NotificationData struct {
	To      string            // Recipient identifier (e.g., email address, phone number)
	Subject string            // Optional: overrides the template subject
	Body    string            // Optional: pre-rendered content
	Data    map[string]string // Template data (names, links, tokens)
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
