package types

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeTransfer               TxType = 0x01 // Plain token transfer
	TxTypeCreateChallenge        TxType = 0x02
	TxTypeFundReward             TxType = 0x03 // Creator deposits reward tokens
	TxTypeParticipate            TxType = 0x04
	TxTypeSubmitEntry            TxType = 0x05
	TxTypeVote                   TxType = 0x06
	TxTypeFinalizeChallenge      TxType = 0x07
	TxTypeDistributeVotingReward TxType = 0x08
	TxTypeClaimCreatorReward     TxType = 0x09
)

var txTypeNames = map[TxType]string{
	TxTypeTransfer:               "transfer",
	TxTypeCreateChallenge:        "create",
	TxTypeFundReward:             "fund",
	TxTypeParticipate:            "participate",
	TxTypeSubmitEntry:            "submit",
	TxTypeVote:                   "vote",
	TxTypeFinalizeChallenge:      "finalize",
	TxTypeDistributeVotingReward: "distribute",
	TxTypeClaimCreatorReward:     "claim",
}

// String returns the short operation name used in logs and metrics.
func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Valid reports whether the type is a known operation.
func (t TxType) Valid() bool {
	_, ok := txTypeNames[t]
	return ok
}

// ErrInvalidSignature is returned when the signer cannot be recovered.
var ErrInvalidSignature = errors.New("types: invalid signature")

// Transaction is a signed operation against the ledger. Data carries the
// JSON payload matching Type.
type Transaction struct {
	Type  TxType          `json:"type"`
	Nonce uint64          `json:"nonce"`
	Data  json.RawMessage `json:"data"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

// NewTransaction encodes payload as the transaction data.
func NewTransaction(txType TxType, nonce uint64, payload interface{}) (*Transaction, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("types: unknown tx type 0x%02x", byte(txType))
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("types: encode payload: %w", err)
	}
	return &Transaction{Type: txType, Nonce: nonce, Data: data}, nil
}

// DecodeData strictly decodes the payload into out.
func (tx *Transaction) DecodeData(out interface{}) error {
	if len(tx.Data) == 0 {
		return errors.New("types: empty transaction data")
	}
	dec := json.NewDecoder(bytes.NewReader(tx.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("types: decode %s payload: %w", tx.Type, err)
	}
	return nil
}

// Hash covers the type, nonce and payload but not the signature.
func (tx *Transaction) Hash() ([]byte, error) {
	txData := struct {
		Type  TxType
		Nonce uint64
		Data  json.RawMessage
	}{tx.Type, tx.Nonce, tx.Data}

	b, err := json.Marshal(txData)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(b)
	return hash[:], nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the 20-byte signer address.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, fmt.Errorf("%w: transaction is not signed", ErrInvalidSignature)
	}
	if tx.V.Uint64() < 27 || len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 {
		return nil, fmt.Errorf("%w: malformed", ErrInvalidSignature)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}
