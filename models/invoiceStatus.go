package models

// invoiceTransitions is the guarded status table. UpdateInvoiceStatus only
// consults it when STRICT_INVOICE_TRANSITIONS is on. ApplyPayment derives the
// status from amountDue and does not consult it.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:         {InvoiceStatusValidated, InvoiceStatusCancelled, InvoiceStatusDisputed},
	InvoiceStatusValidated:     {InvoiceStatusSent, InvoiceStatusDraft, InvoiceStatusCancelled, InvoiceStatusDisputed},
	InvoiceStatusSent:          {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusDisputed},
	InvoiceStatusPartiallyPaid: {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusDisputed},
	InvoiceStatusDisputed:      {InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:          {},
	InvoiceStatusCancelled:     {},
}

// CanTransition reports whether from -> to is in the guarded table.
func (from InvoiceStatus) CanTransition(to InvoiceStatus) bool {
	for _, s := range invoiceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no payment may be applied in this status.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// AllowedTransitions lists the statuses reachable from s.
func (s InvoiceStatus) AllowedTransitions() []InvoiceStatus {
	out := make([]InvoiceStatus, len(invoiceTransitions[s]))
	copy(out, invoiceTransitions[s])
	return out
}
