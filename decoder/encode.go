package decoder

import (
	"encoding/binary"
	"fmt"
	"io"

	"rtvm/op"
)

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func encodeSize(v uint32) int {
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	case v <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

// encodeOperand writes o as a short-form Loc when possible, otherwise as
// a long-form tagged/sized value. Operand values above 32 bits cannot be
// represented on the wire; encodeOperand returns an error for them.
func encodeOperand(w io.Writer, o op.Operand) error {
	if uint64(o.U) > 0xFFFFFFFF {
		return fmt.Errorf("decoder: operand value %d exceeds the 32-bit wire width", o.U)
	}
	if o.Kind == op.Loc && o.U <= 0x7F {
		return writeByte(w, byte(o.U))
	}

	tag, ok := operandTag(o.Kind)
	if !ok {
		return fmt.Errorf("decoder: cannot encode operand kind %s", o.Kind)
	}
	v := uint32(o.U)
	n := encodeSize(v)
	meta := longOperandBit | (tag << 4) | byte(n-1)
	if err := writeByte(w, meta); err != nil {
		return err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

func operandTag(k op.OperandKind) (byte, bool) {
	if int(k) >= len(operandTagByKind) {
		return 0, false
	}
	return operandTagByKind[k], true
}

func encodeTypeVariant(w io.Writer, t uint8, variant op.Variant) error {
	return writeByte(w, (t&opTypeBits)|(byte(variant)<<6))
}

func encodeType(w io.Writer, t uint8) error {
	return writeByte(w, t&opTypeBits)
}

func encodeTwoTypes(w io.Writer, src, dst uint8) error {
	return writeByte(w, (src&opTypeBits)|((dst<<4)&opTypeLeftBits))
}

func encodeBinOp(w io.Writer, bin op.BinOp) error {
	if err := encodeOperand(w, bin.X); err != nil {
		return err
	}
	if err := encodeOperand(w, bin.Y); err != nil {
		return err
	}
	if bin.Variant == op.VariantNone {
		return nil
	}
	return encodeOperand(w, bin.Offset)
}

func encodeUnOp(w io.Writer, un op.UnOp) error {
	if err := encodeOperand(w, un.X); err != nil {
		return err
	}
	if un.Variant == op.VariantNone {
		return nil
	}
	return encodeOperand(w, un.Offset)
}

// Encode writes o to w in the wire format Decode reads back.
func Encode(w io.Writer, o op.Op) error {
	if err := writeByte(w, byte(o.Code)); err != nil {
		return err
	}

	switch o.Code {
	case op.Nop, op.Fls:
		return nil

	case op.End, op.Slp, op.Go, op.App, op.Clf, op.Sfd, op.Gfd:
		return encodeOperand(w, o.A)

	case op.Zer:
		if err := encodeOperand(w, o.A); err != nil {
			return err
		}
		return encodeOperand(w, o.B)

	case op.Cmp, op.Cpy:
		if err := encodeOperand(w, o.A); err != nil {
			return err
		}
		if err := encodeOperand(w, o.B); err != nil {
			return err
		}
		return encodeOperand(w, o.C)

	case op.Cnv:
		if err := encodeTwoTypes(w, uint8(o.Type), uint8(o.Type2)); err != nil {
			return err
		}
		if err := encodeOperand(w, o.A); err != nil {
			return err
		}
		return encodeOperand(w, o.B)

	case op.Shl, op.Shr:
		if err := encodeType(w, uint8(o.Type)); err != nil {
			return err
		}
		if err := encodeOperand(w, o.A); err != nil {
			return err
		}
		return encodeOperand(w, o.B)

	case op.In:
		if err := encodeTypeVariant(w, 0, o.Bin.Variant); err != nil {
			return err
		}
		return encodeBinOp(w, o.Bin)

	case op.Out:
		if err := encodeTypeVariant(w, 0, o.Un.Variant); err != nil {
			return err
		}
		return encodeUnOp(w, o.Un)

	case op.Par, op.Ret, op.Not, op.Neg, op.Inc, op.Dec, op.Ift, op.Iff:
		if err := encodeTypeVariant(w, uint8(o.Type), o.Un.Variant); err != nil {
			return err
		}
		return encodeUnOp(w, o.Un)

	case op.Set, op.Add, op.Sub, op.Mul, op.Div, op.Mod, op.And, op.Or, op.Xor,
		op.Ife, op.Ifl, op.Ifg, op.Ine, op.Inl, op.Ing,
		op.Ifa, op.Ifo, op.Ifx, op.Ina, op.Ino, op.Inx:
		if err := encodeTypeVariant(w, uint8(o.Type), o.Bin.Variant); err != nil {
			return err
		}
		return encodeBinOp(w, o.Bin)

	default:
		return fmt.Errorf("decoder: cannot encode opcode %s", o.Code)
	}
}
