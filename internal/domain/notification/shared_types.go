// internal/domain/notification/shared_types.go
package notification

// Kind identifies a notification channel. The channel registry keeps at most one channel per kind.
type Kind string

const (
	KindEmail     Kind = "email"
	KindSMS       Kind = "sms"
	KindLog       Kind = "log"
	KindDashboard Kind = "dashboard"
)
