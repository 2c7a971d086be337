// Package status translates gateway-specific payment status strings into the
// small canonical set the rest of the service speaks.
package status

type Status string

const (
	Pending      Status = "pending"
	Authorized   Status = "authorized"
	RequiresMore Status = "requires_more"
	Canceled     Status = "canceled"
	Error        Status = "error"
	Captured     Status = "captured"
	Failed       Status = "failed"
)

// Map converts a gateway status string into a canonical status. It is total:
// unknown values map to Pending rather than failing, so a new gateway status
// never breaks webhook processing.
func Map(gatewayStatus string) Status {
	switch gatewayStatus {
	case "approved", "authorized":
		return Authorized
	case "refunded", "charged_back", "cancelled":
		return Canceled
	case "rejected":
		return Error
	case "pending", "in_process", "in_mediation":
		return Pending
	default:
		return Pending
	}
}

// FromRecord is the strict variant used when a payment record has already
// been fetched: a record with no status field at all is an Error, while a
// present-but-unknown status still maps to Pending via Map.
func FromRecord(gatewayStatus *string) Status {
	if gatewayStatus == nil {
		return Error
	}
	return Map(*gatewayStatus)
}
