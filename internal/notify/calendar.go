package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Queue publishes a message body.
type Queue interface {
	Send(ctx context.Context, body string) error
}

// SQSAPI is the subset of the SQS client the queue uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSQueue publishes to an AWS (or LocalStack) SQS queue.
type SQSQueue struct {
	client   SQSAPI
	queueURL string
}

func NewSQSQueue(client SQSAPI, queueURL string) *SQSQueue {
	if client == nil {
		panic("notify: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("notify: SQS queueURL cannot be empty")
	}
	return &SQSQueue{client: client, queueURL: queueURL}
}

func (q *SQSQueue) Send(ctx context.Context, body string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("notify: send SQS message: %w", err)
	}
	return nil
}

// CalendarAction is what the calendar consumer should do with the event.
type CalendarAction string

const (
	CalendarUpsert CalendarAction = "upsert"
	CalendarRemove CalendarAction = "remove"
)

// CalendarSyncCommand is the JSON document placed on the calendar queue.
type CalendarSyncCommand struct {
	Action         CalendarAction `json:"action"`
	Event          EventKind      `json:"event"`
	AppointmentID  string         `json:"appointment_id"`
	PractitionerID string         `json:"practitioner_id"`
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	Status         string         `json:"status"`
	ClientName     string         `json:"client_name,omitempty"`
	IssuedAt       time.Time      `json:"issued_at"`
}

// CalendarDispatcher publishes calendar sync commands.
type CalendarDispatcher struct {
	queue Queue
	now   func() time.Time
}

func NewCalendarDispatcher(queue Queue) *CalendarDispatcher {
	if queue == nil {
		panic("notify: calendar queue required")
	}
	return &CalendarDispatcher{queue: queue, now: func() time.Time { return time.Now().UTC() }}
}

func (d *CalendarDispatcher) Dispatch(ctx context.Context, msg Message) error {
	action := CalendarUpsert
	if msg.Event == EventCancellation {
		action = CalendarRemove
	}
	appt := msg.Appointment
	cmd := CalendarSyncCommand{
		Action:         action,
		Event:          msg.Event,
		AppointmentID:  appt.ID,
		PractitionerID: appt.PractitionerID,
		Start:          appt.StartTime.UTC(),
		End:            appt.EndTime.UTC(),
		Status:         string(appt.Status),
		ClientName:     msg.Contact.Name,
		IssuedAt:       d.now(),
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("notify: marshal calendar command: %w", err)
	}
	return d.queue.Send(ctx, string(body))
}
