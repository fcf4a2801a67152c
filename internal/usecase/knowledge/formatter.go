package knowledge

import (
	"strconv"
	"strings"

	"github.com/williamjung/voiceagent/internal/domain"
)

// ContextFormatter renders numbered citation blocks:
//
//	[출처 1]
//	제목: <title>
//	내용: <content>
//	---
//
// Blocks are joined with a single newline. No documents yields "".
type ContextFormatter struct{}

// Format implements Formatter.
func (ContextFormatter) Format(docs []domain.Document) string {
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("[출처 ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("]\n제목: ")
		b.WriteString(d.DisplayTitle())
		b.WriteString("\n내용: ")
		b.WriteString(d.Content)
		b.WriteString("\n---")
	}
	return b.String()
}
