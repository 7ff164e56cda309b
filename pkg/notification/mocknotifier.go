package notification

import "fmt"

// MockNotifier records notifications instead of delivering them.
type MockNotifier struct {
	SentNotifications []NotificationData
	FailSend          bool
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	if m.FailSend {
		return fmt.Errorf("mock notifier configured to fail")
	}
	m.SentNotifications = append(m.SentNotifications, notification)
	return nil
}
