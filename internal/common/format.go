package common

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize 把字节数格式化为 1024 进制、保留一位小数的可读字符串
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	value := float64(bytes)
	i := 0
	for value >= 1024 && i < len(sizeUnits)-1 {
		value /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[i])
}
