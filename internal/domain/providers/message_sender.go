package providers

import "context"

// MessageSender delivers a patient-facing message over one channel.
// Delivery failures are reported as errors; the caller logs and audits them
// but never lets them interrupt a reconciliation pass.
type MessageSender interface {
	// Send delivers body to the recipient contact and returns the channel's
	// message ID when available.
	Send(ctx context.Context, recipient, body string) (string, error)
}
