package notify

import (
	"fmt"
	"time"

	"github.com/wolfman30/medspa-practice/internal/appointment"
)

const (
	whenLayout = "Mon Jan 2 at 3:04 PM"
	dayLayout  = "January 2, 2006"
)

func greeting(c Contact) string {
	if c.Name == "" {
		return "Hi"
	}
	return "Hi " + c.Name
}

func localStart(appt *appointment.Appointment, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return appt.StartTime.In(loc).Format(whenLayout)
}

// SMSBody renders the text for an SMS channel.
func SMSBody(msg Message, practice string, loc *time.Location) (string, error) {
	when := localStart(msg.Appointment, loc)
	hello := greeting(msg.Contact)
	switch msg.Channel {
	case ChannelSMSConfirmation:
		return fmt.Sprintf("%s, your appointment at %s is confirmed for %s. Reply to this message if you need to change it.", hello, practice, when), nil
	case ChannelSMSReschedule:
		return fmt.Sprintf("%s, your appointment at %s has been moved to %s.", hello, practice, when), nil
	case ChannelSMSCancellation:
		return fmt.Sprintf("%s, your appointment at %s on %s has been cancelled.", hello, practice, when), nil
	case ChannelSMSReminder:
		return fmt.Sprintf("Reminder: %s has you booked for %s. See you soon!", practice, when), nil
	default:
		return "", fmt.Errorf("notify: %s is not an sms channel", msg.Channel)
	}
}

// InvoiceEmail renders the invoice notice sent after completion.
func InvoiceEmail(msg Message, practice string, loc *time.Location) EmailMessage {
	appt := msg.Appointment
	if loc == nil {
		loc = time.UTC
	}
	body := fmt.Sprintf(`%s,

Thank you for visiting %s on %s.

Services: %d
Total: %s

Your invoice is ready. Please contact the front desk with any questions.`,
		greeting(msg.Contact), practice, appt.StartTime.In(loc).Format(dayLayout),
		len(appt.ServiceIDs), appt.TotalPrice.StringFixed(2))
	return EmailMessage{
		To:       msg.Contact.Email,
		ToName:   msg.Contact.Name,
		Subject:  fmt.Sprintf("Your invoice from %s", practice),
		Body:     body,
		Category: CategoryInvoice,
	}
}
