package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"cosmossdk.io/math"
	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Account discriminators, sha256("account:<Name>")[:8].
var (
	PoolDiscriminator        = accountDiscriminator("ElysiumPool")
	PositionDiscriminator    = accountDiscriminator("Position")
	TickArrayDiscriminator   = accountDiscriminator("TickArray")
	PoolsConfigDiscriminator = accountDiscriminator("ElysiumPoolsConfig")
	FeeTierDiscriminator     = accountDiscriminator("FeeTier")
)

func accountDiscriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:8])
	return d
}

// Account is implemented by every persisted state container.
type Account interface {
	bin.BinaryMarshaler
	bin.BinaryUnmarshaler
	Discriminator() [8]byte
}

// Encode serializes an account with its discriminator.
func Encode(acc Account) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	d := acc.Discriminator()
	if err := enc.WriteBytes(d[:], false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := acc.MarshalWithEncoder(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses data into acc after checking the discriminator.
func Decode(data []byte, acc Account) error {
	if len(data) < 8 {
		return fmt.Errorf("account data too short: %d bytes", len(data))
	}
	want := acc.Discriminator()
	if !bytes.Equal(data[:8], want[:]) {
		return fmt.Errorf("unexpected discriminator %x, want %x", data[:8], want)
	}
	return acc.UnmarshalWithDecoder(bin.NewBinDecoder(data[8:]))
}

// writer wraps a bin.Encoder and keeps the first error.
type writer struct {
	enc *bin.Encoder
	err error
}

func (w *writer) bytes(b []byte) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(b, false)
	}
}

func (w *writer) pubkey(k solana.PublicKey) { w.bytes(k[:]) }

func (w *writer) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *writer) boolean(v bool) {
	if w.err == nil {
		w.err = w.enc.WriteBool(v)
	}
}

func (w *writer) u16(v uint16) {
	if w.err == nil {
		w.err = w.enc.WriteUint16(v, binary.LittleEndian)
	}
}

func (w *writer) i32(v int32) {
	if w.err == nil {
		w.err = w.enc.WriteInt32(v, binary.LittleEndian)
	}
}

func (w *writer) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, binary.LittleEndian)
	}
}

func (w *writer) u128(v uint128.Uint128) {
	var b [16]byte
	v.PutBytes(b[:])
	w.bytes(b[:])
}

func (w *writer) i128(v math.Int) {
	if !clmath.IsI128(v) {
		if w.err == nil {
			w.err = fmt.Errorf("value %s does not fit in i128", v)
		}
		return
	}
	var b [16]byte
	clmath.PutI128(b[:], v)
	w.bytes(b[:])
}

// reader wraps a bin.Decoder and keeps the first error.
type reader struct {
	dec *bin.Decoder
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	b, err := r.dec.ReadNBytes(n)
	if err != nil {
		r.err = err
		return make([]byte, n)
	}
	return b
}

func (r *reader) pubkey() solana.PublicKey { return solana.PublicKeyFromBytes(r.bytes(32)) }

func (r *reader) u8() uint8 { return r.bytes(1)[0] }

func (r *reader) boolean() bool { return r.u8() != 0 }

func (r *reader) u16() uint16 { return binary.LittleEndian.Uint16(r.bytes(2)) }

func (r *reader) i32() int32 { return int32(binary.LittleEndian.Uint32(r.bytes(4))) }

func (r *reader) u64() uint64 { return binary.LittleEndian.Uint64(r.bytes(8)) }

func (r *reader) u128() uint128.Uint128 { return uint128.FromBytes(r.bytes(16)) }

func (r *reader) i128() math.Int { return clmath.I128FromBytes(r.bytes(16)) }

// DecodeAccount picks the container type from the discriminator of data.
func DecodeAccount(data []byte) (Account, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("account data too short: %d bytes", len(data))
	}
	var d [8]byte
	copy(d[:], data[:8])

	var acc Account
	switch d {
	case PoolDiscriminator:
		acc = new(Pool)
	case PositionDiscriminator:
		acc = new(Position)
	case TickArrayDiscriminator:
		acc = new(TickArray)
	case PoolsConfigDiscriminator:
		acc = new(PoolsConfig)
	case FeeTierDiscriminator:
		acc = new(FeeTier)
	default:
		return nil, fmt.Errorf("unknown discriminator %x", d)
	}
	if err := Decode(data, acc); err != nil {
		return nil, err
	}
	return acc, nil
}
