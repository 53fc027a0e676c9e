package util

import (
	"strconv"
)

// ParseLimit 解析分页条数，非法或越界时使用默认值/上限
func ParseLimit(s string, def, max int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
