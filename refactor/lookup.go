// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/types"
	"strings"
)

// An Item is a resolved program entity named by a lookup expression
// such as "Calculator" or "Calculator.GetAverage".
type Item struct {
	Kind  ItemKind
	Name  string
	Obj   types.Object
	Outer *Item
}

type ItemKind int

const (
	ItemNotFound ItemKind = iota
	ItemType
	ItemField
	ItemMethod
	ItemFunc
	ItemVar
	ItemConst
)

func (k ItemKind) String() string {
	switch k {
	case ItemType:
		return "type"
	case ItemField:
		return "field"
	case ItemMethod:
		return "method"
	case ItemFunc:
		return "func"
	case ItemVar:
		return "var"
	case ItemConst:
		return "const"
	}
	return "not found"
}

// Lookup resolves a dotted path of the form Name or Type.Member in
// the package scope. A failed resolution returns an Item with kind
// ItemNotFound carrying the unresolved name.
func (s *Snapshot) Lookup(expr string) *Item {
	name, rest, more := strings.Cut(expr, ".")
	item := s.lookupTop(name)
	if item == nil {
		return &Item{Kind: ItemNotFound, Name: expr}
	}
	item.Name = name
	for more {
		name, rest, more = strings.Cut(rest, ".")
		inner := lookupIn(item, name)
		if inner == nil {
			return &Item{Kind: ItemNotFound, Name: item.Name + "." + name, Outer: item}
		}
		inner.Name = item.Name + "." + name
		item = inner
	}
	return item
}

// LookupType resolves a package-scope type name. The boolean reports
// whether the name is bound at all; a bound non-type name returns
// (nil, true).
func (s *Snapshot) LookupType(name string) (*types.TypeName, bool) {
	obj := s.pkg.Types.Scope().Lookup(name)
	if obj == nil {
		return nil, false
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, true
	}
	return tn, true
}

func (s *Snapshot) lookupTop(name string) *Item {
	obj := s.pkg.Types.Scope().Lookup(name)
	switch obj := obj.(type) {
	case nil:
		return nil
	case *types.TypeName:
		return &Item{Kind: ItemType, Obj: obj}
	case *types.Const:
		return &Item{Kind: ItemConst, Obj: obj}
	case *types.Var:
		return &Item{Kind: ItemVar, Obj: obj}
	case *types.Func:
		return &Item{Kind: ItemFunc, Obj: obj}
	}
	return nil
}

func lookupIn(outer *Item, name string) *Item {
	switch outer.Kind {
	case ItemType:
		return lookupType(outer, outer.Obj.Type(), name)
	case ItemVar, ItemField:
		return lookupType(outer, outer.Obj.Type(), name)
	}
	return nil
}

func lookupType(outer *Item, typ types.Type, name string) *Item {
	if ptr, ok := typ.(*types.Pointer); ok {
		typ = ptr.Elem()
	}
	if tn, ok := typ.(*types.Named); ok {
		for i := 0; i < tn.NumMethods(); i++ {
			f := tn.Method(i)
			if f.Name() == name {
				return &Item{Kind: ItemMethod, Obj: f, Outer: outer}
			}
		}
		typ = tn.Underlying()
	}
	if st, ok := typ.(*types.Struct); ok {
		for i := 0; i < st.NumFields(); i++ {
			f := st.Field(i)
			if f.Name() == name {
				return &Item{Kind: ItemField, Obj: f, Outer: outer}
			}
		}
	}
	return nil
}
