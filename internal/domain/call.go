package domain

import (
	"encoding/json"
	"fmt"
)

// MoveCall is an inert description of one entry-point invocation.
// Arguments are resolved positionally by the chain; order is part of the contract.
type MoveCall struct {
	Package   string
	Module    string
	Function  string
	Arguments []Arg
}

func (c MoveCall) Target() string {
	return fmt.Sprintf("%s::%s::%s", c.Package, c.Module, c.Function)
}

func (c MoveCall) MarshalJSON() ([]byte, error) {
	args := make([]argJSON, 0, len(c.Arguments))
	for _, a := range c.Arguments {
		args = append(args, argJSON{Kind: a.Kind(), Value: a.value()})
	}
	return json.Marshal(struct {
		Target    string    `json:"target"`
		Arguments []argJSON `json:"arguments"`
	}{Target: c.Target(), Arguments: args})
}

type argJSON struct {
	Kind  ArgKind `json:"kind"`
	Value any     `json:"value"`
}

type ArgKind string

const (
	KindObject       ArgKind = "object"
	KindString       ArgKind = "string"
	KindU8           ArgKind = "u8"
	KindU64          ArgKind = "u64"
	KindBool         ArgKind = "bool"
	KindAddress      ArgKind = "address"
	KindStringVector ArgKind = "vector<string>"
	KindOptionU64    ArgKind = "option<u64>"
)

// Arg is one positional argument. The set of implementations is closed.
type Arg interface {
	Kind() ArgKind
	value() any
}

type (
	Object       string
	String       string
	U8           uint8
	U64          uint64
	Bool         bool
	Address      string
	StringVector []string
)

// OptionU64 distinguishes "absent" (Value == nil) from an explicit zero.
type OptionU64 struct{ Value *uint64 }

func SomeU64(v uint64) OptionU64 { return OptionU64{Value: &v} }
func NoneU64() OptionU64         { return OptionU64{} }

func (o OptionU64) IsSome() bool { return o.Value != nil }

func (Object) Kind() ArgKind       { return KindObject }
func (String) Kind() ArgKind       { return KindString }
func (U8) Kind() ArgKind           { return KindU8 }
func (U64) Kind() ArgKind          { return KindU64 }
func (Bool) Kind() ArgKind         { return KindBool }
func (Address) Kind() ArgKind      { return KindAddress }
func (StringVector) Kind() ArgKind { return KindStringVector }
func (OptionU64) Kind() ArgKind    { return KindOptionU64 }

func (a Object) value() any  { return string(a) }
func (a String) value() any  { return string(a) }
func (a U8) value() any      { return uint8(a) }
func (a U64) value() any     { return uint64(a) }
func (a Bool) value() any    { return bool(a) }
func (a Address) value() any { return string(a) }
func (a StringVector) value() any {
	if a == nil {
		return []string{}
	}
	return []string(a)
}
func (a OptionU64) value() any {
	if a.Value == nil {
		return nil
	}
	return *a.Value
}
