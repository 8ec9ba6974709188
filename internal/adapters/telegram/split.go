package telegram

import "strings"

const (
	// MessageLimit задаёт максимальную длину текста сообщения в рунах.
	MessageLimit = 4096
	// CaptionLimit задаёт максимальную длину подписи к фото в рунах.
	CaptionLimit = 1024
)

// Split режет текст на части не длиннее limit рун. Режет по переводам строк,
// строку длиннее limit режет жёстко.
func Split(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || limit <= 0 {
		return nil
	}
	if runeLen(trimmed) <= limit {
		return []string{trimmed}
	}

	var (
		parts []string
		cur   []rune
	)
	flush := func() {
		if chunk := strings.Trim(string(cur), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		cur = cur[:0]
	}
	for _, line := range strings.SplitAfter(trimmed, "\n") {
		runes := []rune(line)
		if len(cur)+len(runes) <= limit {
			cur = append(cur, runes...)
			continue
		}
		flush()
		for len(runes) > limit {
			cur = append(cur, runes[:limit]...)
			flush()
			runes = runes[limit:]
		}
		cur = append(cur, runes...)
	}
	flush()
	return parts
}

func runeLen(s string) int { return len([]rune(s)) }
