package model

// VoucherKind is the closed set of voucher record kinds the gateway fronts.
type VoucherKind string

const (
	KindCash   VoucherKind = "cash"
	KindCheque VoucherKind = "cheque"
)

func ParseVoucherKind(raw string) (VoucherKind, bool) {
	switch VoucherKind(raw) {
	case KindCash:
		return KindCash, true
	case KindCheque:
		return KindCheque, true
	default:
		return "", false
	}
}

// Resource returns the record-store collection name for the kind.
func (k VoucherKind) Resource() string {
	return string(k) + "-vouchers"
}

// VoucherRef is the opaque payload carried through a challenge for
// display and audit. It takes no part in validation.
type VoucherRef struct {
	VoucherID   string      `json:"voucher_id"`
	VoucherKind VoucherKind `json:"voucher_type"`
	VoucherNo   string      `json:"voucher_no"`
}

// Challenge is a pending one-time-passcode bound to a single voucher.
// Only a bcrypt digest of the code is kept; the plaintext lives solely
// in the email that delivered it.
type Challenge struct {
	CodeHash  string     `json:"code_hash"`
	IssuedAt  int64      `json:"issued_at"`
	ExpiresAt int64      `json:"expires_at"`
	Voucher   VoucherRef `json:"voucher"`
}
