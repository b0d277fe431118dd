// Package snowflake decodes Discord snowflake identifiers.
package snowflake

import (
	"strconv"
	"time"
)

// Discord epoch: first second of 2015, in milliseconds.
const epoch = 1420070400000

// Parse returns the numeric value of a snowflake ID. Snowflakes compare
// by creation order, so the numeric ordering matches message ordering.
func Parse(id string) (uint64, error) {
	return strconv.ParseUint(id, 10, 64)
}

// Time returns the creation time encoded in a snowflake ID.
func Time(id string) (time.Time, error) {
	n, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	ms := int64(n>>22) + epoch
	return time.UnixMilli(ms).UTC(), nil
}
