// Package debug provides assertions used to check invariants that must
// hold by construction.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package debug

import "fmt"

func Assert(cond bool, a ...any) {
	if !cond {
		if len(a) > 0 {
			panic("assertion failed: " + fmt.Sprint(a...))
		}
		panic("assertion failed")
	}
}

func Assertf(cond bool, format string, a ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(format, a...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
