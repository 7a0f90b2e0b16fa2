package pvec

import (
	"fmt"
	"math/bits"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	kindLeaf   = 1
	kindBranch = 2
)

const (
	fieldKind    protowire.Number = 1
	fieldPresent protowire.Number = 2
	fieldPayload protowire.Number = 3
)

// encodedNode is the stored form of a node: its kind, which slots are
// occupied, and one payload per occupied slot in slot order. Leaf payloads
// are marshalled values; branch payloads are child node names.
type encodedNode struct {
	kind     uint64
	present  uint32
	payloads [][]byte
}

func (e *encodedNode) marshal() []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldKind, protowire.VarintType)
	buf = protowire.AppendVarint(buf, e.kind)
	buf = protowire.AppendTag(buf, fieldPresent, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, e.present)
	for _, p := range e.payloads {
		buf = protowire.AppendTag(buf, fieldPayload, protowire.BytesType)
		buf = protowire.AppendBytes(buf, p)
	}
	return buf
}

func unmarshalEncodedNode(buf []byte) (*encodedNode, error) {
	var e encodedNode
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("tag: %w: %v", ErrCorruptNode, protowire.ParseError(n))
		}
		buf = buf[n:]
		switch {
		case num == fieldKind && typ == protowire.VarintType:
			e.kind, n = protowire.ConsumeVarint(buf)
		case num == fieldPresent && typ == protowire.Fixed32Type:
			e.present, n = protowire.ConsumeFixed32(buf)
		case num == fieldPayload && typ == protowire.BytesType:
			var p []byte
			p, n = protowire.ConsumeBytes(buf)
			e.payloads = append(e.payloads, p)
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
		}
		if n < 0 {
			return nil, fmt.Errorf("field %d: %w: %v", num, ErrCorruptNode, protowire.ParseError(n))
		}
		buf = buf[n:]
	}
	if e.kind != kindLeaf && e.kind != kindBranch {
		return nil, fmt.Errorf("kind %d: %w", e.kind, ErrCorruptNode)
	}
	if bits.OnesCount32(e.present) != len(e.payloads) {
		return nil, fmt.Errorf("%d payloads for %d slots: %w",
			len(e.payloads), bits.OnesCount32(e.present), ErrCorruptNode)
	}
	return &e, nil
}

func encodeLeaf[T any](n *node[T], marshal func(interface{}) ([]byte, error)) (*encodedNode, error) {
	e := encodedNode{kind: kindLeaf, present: n.present}
	for i := 0; i < branchFactor; i++ {
		if !n.has(i) {
			continue
		}
		body, err := marshal(n.values[i])
		if err != nil {
			return nil, fmt.Errorf("marshal slot %d: %w", i, err)
		}
		e.payloads = append(e.payloads, body)
	}
	return &e, nil
}

func decodeLeaf[T any](e *encodedNode, unmarshal func([]byte, interface{}) error) (*node[T], error) {
	n := newLeaf[T](nil)
	n.present = e.present
	j := 0
	for i := 0; i < branchFactor; i++ {
		if !n.has(i) {
			continue
		}
		err := unmarshal(e.payloads[j], &n.values[i])
		if err != nil {
			return nil, fmt.Errorf("unmarshal slot %d: %w", i, err)
		}
		j++
	}
	return n, nil
}
