package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"geo-attendance/internal/attendance"

	"gopkg.in/gomail.v2"
)

// Violation describes a clock action refused by zone policy.
type Violation struct {
	SubjectID     uint
	Action        attendance.Action
	At            time.Time
	Zones         []attendance.ZoneRef
	PositionKnown bool
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends geofence violation notices to the compliance mailbox.
type Mailer struct {
	sender sender
	from   string
	to     string
}

func NewMailer(host string, port int, username, password, from, to string) *Mailer {
	return &Mailer{
		sender: gomail.NewDialer(host, port, username, password),
		from:   from,
		to:     to,
	}
}

func (m *Mailer) NotifyViolation(ctx context.Context, v Violation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.sender.DialAndSend(m.message(v)); err != nil {
		return fmt.Errorf("send violation notice: %w", err)
	}
	return nil
}

func (m *Mailer) message(v Violation) *gomail.Message {
	names := make([]string, 0, len(v.Zones))
	for _, z := range v.Zones {
		names = append(names, fmt.Sprintf("%s (#%d)", z.Name, z.ID))
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Employee #%d attempted %s at %s.\n", v.SubjectID, v.Action, v.At.Format(time.RFC3339))
	fmt.Fprintf(&body, "Required zone(s) not satisfied: %s\n", strings.Join(names, ", "))
	if !v.PositionKnown {
		body.WriteString("No device location was available for this attempt.\n")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", fmt.Sprintf("[attendance] geofence violation: employee #%d %s", v.SubjectID, v.Action))
	msg.SetBody("text/plain", body.String())
	return msg
}
