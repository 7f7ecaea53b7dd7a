package filesystem

import (
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
)

const maxFilenameLength = 200

// SanitizeFilename 清理发件方声明的文件名，确保可以安全落盘。
// 去除路径成分、平台非法字符与控制字符，限制长度，空结果回退为 "unnamed"。
func SanitizeFilename(filename string) string {
	// 1. 移除路径分隔符
	filename = filepath.Base(filename)

	// 2. 替换平台不允许的字符
	for _, char := range invalidChars() {
		filename = strings.ReplaceAll(filename, char, "_")
	}

	// 3. 移除控制字符
	filename = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	// 4. 移除前后空格和点（"." 和 ".." 会整体归约为空）
	filename = strings.Trim(filename, " .")

	// 5. 限制长度，保留扩展名
	filename = limitLength(filename, maxFilenameLength)

	// 6. 确保不为空
	if filename == "" {
		filename = "unnamed"
	}

	return filename
}

// invalidChars 获取当前平台不允许出现在文件名中的字符
func invalidChars() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"<", ">", ":", "\"", "|", "?", "*", "\\", "/", "\x00"}
	case "darwin", "linux":
		return []string{"/", "\x00"}
	default:
		// 保守处理，移除所有可能的问题字符
		return []string{"<", ">", ":", "\"", "|", "?", "*", "\\", "/", "\x00"}
	}
}

// limitLength 限制文件名长度，尽量保留扩展名
func limitLength(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	ext := filepath.Ext(s)
	nameWithoutExt := strings.TrimSuffix(s, ext)

	availableLen := maxLen - len(ext)
	if availableLen <= 0 {
		return ext
	}

	return nameWithoutExt[:availableLen] + ext
}
