package events

// Topic constants for domain events emitted by the terminals.
const (
	TopicOrderSubmitted    = "order.submitted"
	TopicOrderParked       = "order.parked"
	TopicOrderRecalled     = "order.recalled"
	TopicPaymentRecorded   = "payment.recorded"
	TopicPaymentLinkIssued = "payment.link_issued"
)

// DefaultTopics returns the canonical list of topics downstream consumers may
// bind to.
func DefaultTopics() []string {
	return []string{
		TopicOrderSubmitted,
		TopicOrderParked,
		TopicOrderRecalled,
		TopicPaymentRecorded,
		TopicPaymentLinkIssued,
	}
}
