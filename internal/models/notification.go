package models

import (
	"fmt"
	"time"
)

// NotificationType tags what a notification is about. Uniqueness against a
// transaction is scoped per type.
type NotificationType uint8

const (
	NotificationUnknown NotificationType = iota
	NotificationPaymentDue
)

var notificationTypeNames = map[NotificationType]string{
	NotificationPaymentDue: "PAYMENT_DUE",
}

func (t NotificationType) String() string {
	if s, ok := notificationTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

func ParseNotificationType(s string) (NotificationType, error) {
	for t, name := range notificationTypeNames {
		if name == s {
			return t, nil
		}
	}
	return NotificationUnknown, fmt.Errorf("unknown notification type %q", s)
}

func (t NotificationType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *NotificationType) UnmarshalText(b []byte) error {
	v, err := ParseNotificationType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type Notification struct {
	ID            string           `json:"id"`
	UserID        string           `json:"-"`
	CustomerID    *string          `json:"customerId"`
	TransactionID *string          `json:"-"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	IsRead        bool             `json:"isRead"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// NotificationView is a notification as listed in the inbox, with the
// referenced customer's contact details.
type NotificationView struct {
	Notification
	CustomerName  *string `json:"customerName"`
	CustomerPhone *string `json:"customerPhone"`
}
