package filesystem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "普通文件名原样保留",
			input:    "report.pdf",
			expected: "report.pdf",
		},
		{
			name:     "路径成分被剥离",
			input:    "../../etc/passwd",
			expected: "passwd",
		},
		{
			name:     "控制字符被移除",
			input:    "bad\x00\x01name.txt",
			expected: "badname.txt",
		},
		{
			name:     "前后空格和点被移除",
			input:    "  .hidden. ",
			expected: "hidden",
		},
		{
			name:     "空文件名回退",
			input:    "",
			expected: "unnamed",
		},
		{
			name:     "纯点文件名回退",
			input:    "..",
			expected: "unnamed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeFilename(tc.input))
		})
	}

	t.Run("超长文件名保留扩展名", func(t *testing.T) {
		long := strings.Repeat("a", 300) + ".tar.gz"
		got := SanitizeFilename(long)
		assert.LessOrEqual(t, len(got), maxFilenameLength)
		assert.True(t, strings.HasSuffix(got, ".gz"))
	})
}
