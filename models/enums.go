package models

type InvoiceType string

const (
	InvoiceTypeSale     InvoiceType = "FACTURE_VENTE"
	InvoiceTypePurchase InvoiceType = "FACTURE_ACHAT"
	InvoiceTypeCredit   InvoiceType = "AVOIR"
	InvoiceTypeProforma InvoiceType = "PROFORMA"
)

func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeSale, InvoiceTypePurchase, InvoiceTypeCredit, InvoiceTypeProforma:
		return true
	}
	return false
}

// CashDirection is the ledger side a settlement of this invoice lands on.
func (t InvoiceType) CashDirection() TransactionType {
	switch t {
	case InvoiceTypePurchase, InvoiceTypeCredit:
		return TransactionTypeExpense
	default:
		return TransactionTypeIncome
	}
}

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "BROUILLON"
	InvoiceStatusValidated     InvoiceStatus = "VALIDEE"
	InvoiceStatusSent          InvoiceStatus = "ENVOYEE"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIELLEMENT_PAYEE"
	InvoiceStatusPaid          InvoiceStatus = "PAYEE"
	InvoiceStatusDisputed      InvoiceStatus = "EN_LITIGE"
	InvoiceStatusCancelled     InvoiceStatus = "ANNULEE"
)

var invoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusValidated,
	InvoiceStatusSent,
	InvoiceStatusPartiallyPaid,
	InvoiceStatusPaid,
	InvoiceStatusDisputed,
	InvoiceStatusCancelled,
}

func (s InvoiceStatus) IsValid() bool {
	for _, v := range invoiceStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "RECETTE"
	TransactionTypeExpense TransactionType = "DEPENSE"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "ESPECES"
	PaymentMethodCheque   PaymentMethod = "CHEQUE"
	PaymentMethodTransfer PaymentMethod = "VIREMENT"
	PaymentMethodCard     PaymentMethod = "CARTE"
	PaymentMethodBill     PaymentMethod = "EFFET"
	PaymentMethodOther    PaymentMethod = "AUTRE"
)

type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusHalfDay AttendanceStatus = "DEMI_JOURNEE"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLeave   AttendanceStatus = "CONGE"
	AttendanceStatusSick    AttendanceStatus = "MALADIE"
)

// Counts reports whether a day with this status is paid.
func (s AttendanceStatus) Counts() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusHalfDay
}

// Ledger categories written by invoice settlements.
const (
	CategoryInvoiceReceipt = "ENCAISSEMENT_FACTURE"
	CategoryInvoicePayout  = "DECAISSEMENT_FACTURE"
)

// History reference types.
const (
	ReferenceTypeInvoice     = "Invoice"
	ReferenceTypePayment     = "Payment"
	ReferenceTypeTransaction = "Transaction"
	ReferenceTypeBankAccount = "BankAccount"
)
