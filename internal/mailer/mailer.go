package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"attendance/internal/attendance"
)

// Mailer sends attendance notification mail over SMTP. It implements
// attendance.Notifier; constructed once at process start and shared.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New creates a mailer for the given SMTP account.
func New(host string, port int, user, pass, from string) *Mailer {
	if from == "" {
		from = user
	}
	return &Mailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   from,
	}
}

// humanProgress renders a progress value for mail and kiosk text.
func humanProgress(p attendance.Progress) string {
	switch p {
	case attendance.ProgressNotLate:
		return "not late"
	case attendance.ProgressLate:
		return "late"
	case attendance.ProgressLeaveOnTime:
		return "leave on time"
	case attendance.ProgressLeaveEarly:
		return "leave early"
	case attendance.ProgressNotMarkedPresentAM:
		return "not marked as present in the morning"
	}
	return string(p)
}

// Notify sends the attendance mail for a freshly created record.
func (m *Mailer) Notify(ctx context.Context, rec attendance.Record) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e0e0e0; border-radius: 5px;">
			<h2 style="color: #333; text-align: center;">Attendance Notification</h2>
			<p>Dear %s %s,</p>
			<p>Your attendance has been marked as <strong>%s</strong> (%s) at %s.</p>
			<p>Date: %s</p>
			<p>If you believe this is an error, please contact the administrator.</p>
			<p style="margin-top: 20px;">Best regards,</p>
			<p>The Attendance System Team</p>
		</div>`,
		rec.FirstName, rec.LastName,
		rec.Status, humanProgress(rec.Progress),
		rec.EventTime.Format("15:04:05"),
		rec.CalendarDay.Format("2006-01-02"),
	)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", rec.Email)
	msg.SetHeader("Subject", "Attendance Notification")
	msg.SetBody("text/html", body)

	// gomail has no context support; bail early if the caller gave up.
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.dialer.DialAndSend(msg)
}
