// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package utils

import (
	"time"
)

func DateTime() string {
	t := time.Now().UTC()
	return t.Format(time.RFC3339)
}

func DateTimeMillis() int64 {
	t := time.Now().UnixNano() / 1000000
	return t
}

func GetTimeMillis(rfc3339Date string) int64 {
	t, err := time.Parse(time.RFC3339, rfc3339Date)
	if err != nil {
		panic(err)
	}

	millis := t.UnixNano() / 1000000
	return millis
}

// MillisToDateTime converts the given epoch milliseconds into the
// canonical RFC 3339 form used on the wire for datetime attributes.
func MillisToDateTime(millis int64) string {
	// by default the TZ will be set to Local, so calling UTC() is a must
	t := time.Unix(0, millis*int64(time.Millisecond)).UTC()
	return t.Format(time.RFC3339)
}
