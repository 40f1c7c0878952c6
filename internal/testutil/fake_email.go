package testutil

import (
	"context"
	"sync"

	platformemail "github.com/tessera-social/tessera/internal/platform/email"
)

// FakeEmailSender records outbound mail in memory. Setting Fail makes every
// Send return that error without recording, for delivery-failure paths.
type FakeEmailSender struct {
	mu   sync.Mutex
	Sent []platformemail.Message
	Fail error
}

func NewFakeEmailSender() *FakeEmailSender {
	return &FakeEmailSender{}
}

func (f *FakeEmailSender) Send(_ context.Context, msg platformemail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	f.Sent = append(f.Sent, msg)
	return nil
}

// LastSent returns the most recent message, or nil when nothing was sent.
func (f *FakeEmailSender) LastSent() *platformemail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return nil
	}
	return &f.Sent[len(f.Sent)-1]
}

func (f *FakeEmailSender) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = nil
	f.Fail = nil
}
