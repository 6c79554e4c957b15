package timelock

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UnknownSelectorError is returned when no registered interface knows the payload selector.
type UnknownSelectorError struct {
	Selector [4]byte
}

// NewUnknownSelectorError creates a new UnknownSelectorError.
func NewUnknownSelectorError(selector [4]byte) *UnknownSelectorError {
	return &UnknownSelectorError{Selector: selector}
}

func (e *UnknownSelectorError) Error() string {
	return "unknown selector " + hexutil.Encode(e.Selector[:])
}

// MalformedPayloadError is returned when a payload is inconsistent with the parameter types of
// the method its selector resolved to.
type MalformedPayloadError struct {
	Method string
	Reason string
	Err    error
}

// NewMalformedPayloadError creates a new MalformedPayloadError.
func NewMalformedPayloadError(method, reason string, err error) *MalformedPayloadError {
	return &MalformedPayloadError{Method: method, Reason: reason, Err: err}
}

func (e *MalformedPayloadError) Error() string {
	msg := "malformed payload"
	if e.Method != "" {
		msg += " for " + e.Method
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// SignatureParseError is returned when a scheduled call signature has missing or mismatched
// parentheses, or names a type that cannot be parsed.
type SignatureParseError struct {
	Signature string
	Reason    string
}

// NewSignatureParseError creates a new SignatureParseError.
func NewSignatureParseError(signature, reason string) *SignatureParseError {
	return &SignatureParseError{Signature: signature, Reason: reason}
}

func (e *SignatureParseError) Error() string {
	return fmt.Sprintf("invalid signature %q: %s", e.Signature, e.Reason)
}

// AbiDecodeError is returned when scheduled call data does not match the type list derived
// from its signature.
type AbiDecodeError struct {
	Signature string
	Err       error
}

// NewAbiDecodeError creates a new AbiDecodeError.
func NewAbiDecodeError(signature string, err error) *AbiDecodeError {
	return &AbiDecodeError{Signature: signature, Err: err}
}

func (e *AbiDecodeError) Error() string {
	return fmt.Sprintf("failed to decode data for %s: %v", e.Signature, e.Err)
}

func (e *AbiDecodeError) Unwrap() error {
	return e.Err
}

// ReceiptFetchError is returned when the receipt status of a transaction could not be fetched.
type ReceiptFetchError struct {
	TxHash string
	Err    error
}

// NewReceiptFetchError creates a new ReceiptFetchError.
func NewReceiptFetchError(txHash string, err error) *ReceiptFetchError {
	return &ReceiptFetchError{TxHash: txHash, Err: err}
}

func (e *ReceiptFetchError) Error() string {
	return fmt.Sprintf("failed to fetch receipt for %s: %v", e.TxHash, e.Err)
}

func (e *ReceiptFetchError) Unwrap() error {
	return e.Err
}

// HistoryFetchError is returned when the transaction history of an address is unavailable.
// It is fatal to the fetch cycle.
type HistoryFetchError struct {
	Address string
	Err     error
}

// NewHistoryFetchError creates a new HistoryFetchError.
func NewHistoryFetchError(address string, err error) *HistoryFetchError {
	return &HistoryFetchError{Address: address, Err: err}
}

func (e *HistoryFetchError) Error() string {
	return fmt.Sprintf("failed to fetch history for %s: %v", e.Address, e.Err)
}

func (e *HistoryFetchError) Unwrap() error {
	return e.Err
}
