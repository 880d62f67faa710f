// Package notify delivers progress events of jobs and tasks to outside listeners.
//
// Delivery is fire-and-forget: failures are logged, never returned to senders.
package notify

import (
	"errors"
	"time"
)

// Well-known topics.
const (
	TopicJobStatus  = "job.status"
	TopicTaskStatus = "task.status"
	TopicJobError   = "job.error"
)

var ErrDeliveryFailed = errors.New("notification delivery failed")

type Sink interface {
	Send(principal string, topic string, message any)
}

// Envelope is the form in which events are delivered.
type Envelope struct {
	Principal string    `json:"principal"`
	Topic     string    `json:"topic"`
	Message   any       `json:"message"`
	SentAt    time.Time `json:"sentAt"`
}

// StatusChange is a message of TopicJobStatus and TopicTaskStatus.
type StatusChange struct {
	JobId  string `json:"jobId"`
	TaskId string `json:"taskId,omitempty"`
	NodeId string `json:"nodeId,omitempty"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// ErrorReport is a message of TopicJobError.
type ErrorReport struct {
	JobId  string `json:"jobId,omitempty"`
	TaskId string `json:"taskId,omitempty"`
	Error  string `json:"error"`
}

type null struct{}

// Null discards everything.
func Null() Sink {
	return null{}
}

func (null) Send(string, string, any) {}

// Func adapts a function as a Sink.
type Func func(principal string, topic string, message any)

func (f Func) Send(principal string, topic string, message any) {
	f(principal, topic, message)
}

type multi []Sink

// Multi sends events to all of sinks, in order.
func Multi(sinks ...Sink) Sink {
	flat := multi{}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if m, ok := s.(multi); ok {
			flat = append(flat, m...)
			continue
		}
		flat = append(flat, s)
	}
	return flat
}

func (m multi) Send(principal string, topic string, message any) {
	for _, s := range m {
		s.Send(principal, topic, message)
	}
}
