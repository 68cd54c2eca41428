package wal

// RecordType tags the operation a journal entry carries.
type RecordType uint8

const (
	RecordCreateMarket RecordType = iota
	RecordLimit
	RecordCancel
	RecordWithdraw
	RecordExpire
	RecordManagerCancel
	RecordManagerWithdraw
	RecordManagerFees
	RecordManagerUpdate
	RecordManagerTransfer
	RecordExtendLog
	RecordCreateVault
	RecordVaultDeposit
	RecordVaultWithdraw
)

// Record is one immutable journal entry. Payload encoding belongs to
// the service layer; the journal only frames and checksums it.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}
