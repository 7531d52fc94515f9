// Copyright 2020-2025 Consensys Software Inc.
// Licensed under the Apache License, Version 2.0. See the LICENSE file for details.

package utils

import (
	"fmt"
	"math/big"
	"reflect"
)

type toBigInt interface {
	BigInt(res *big.Int) *big.Int
}

// FromInterface converts input to a big.Int.
//
// input must be a primitive (uintXX, intXX, []byte, string) or implement
// BigInt(res *big.Int) *big.Int (which is the case for gnark-crypto field
// elements).
//
// if the input is a string, it calls (big.Int).SetString(input, 0): a prefix
// of "0b"/"0B" selects base 2, "0", "0o"/"0O" base 8, "0x"/"0X" base 16,
// otherwise base 10.
func FromInterface(input interface{}) (big.Int, error) {
	var r big.Int

	switch v := input.(type) {
	case big.Int:
		r.Set(&v)
	case *big.Int:
		r.Set(v)
	case uint8:
		r.SetUint64(uint64(v))
	case uint16:
		r.SetUint64(uint64(v))
	case uint32:
		r.SetUint64(uint64(v))
	case uint64:
		r.SetUint64(v)
	case uint:
		r.SetUint64(uint64(v))
	case int8:
		r.SetInt64(int64(v))
	case int16:
		r.SetInt64(int64(v))
	case int32:
		r.SetInt64(int64(v))
	case int64:
		r.SetInt64(v)
	case int:
		r.SetInt64(int64(v))
	case string:
		if _, ok := r.SetString(v, 0); !ok {
			return r, fmt.Errorf("unable to set big.Int from string %q", v)
		}
	case []byte:
		r.SetBytes(v)
	default:
		if v, ok := input.(toBigInt); ok {
			v.BigInt(&r)
			return r, nil
		} else if reflect.ValueOf(input).Kind() == reflect.Ptr {
			vv := reflect.ValueOf(input).Elem()
			if vv.CanInterface() {
				if v, ok := vv.Interface().(toBigInt); ok {
					v.BigInt(&r)
					return r, nil
				}
			}
		}
		return r, fmt.Errorf("%s to big.Int not supported", reflect.TypeOf(input).String())
	}

	return r, nil
}
