// Package mono provides low-level monotonic time.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package mono

import "time"

var startTime = time.Now()

// NanoTime returns the elapsed monotonic nanoseconds since process start.
func NanoTime() int64 { return int64(time.Since(startTime)) }

func Since(started int64) time.Duration { return time.Duration(NanoTime() - started) }
