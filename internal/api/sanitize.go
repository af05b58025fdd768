package api

import "strings"

// answerReplacer transliterates the characters the backend's content filter
// rejects. The replacements are themselves outside the matched set, so the
// transform is idempotent.
var answerReplacer = strings.NewReplacer(
	`"`, "”", // ”
	`'`, "’", // ’
	"--", "—", // —
	"/*", "／＊", // ／＊
	"*/", "＊／", // ＊／
)

// SanitizeAnswer strips ASCII control characters and transliterates
// quote/dash/comment-delimiter characters before an answer is transmitted.
func SanitizeAnswer(answer string) string {
	return answerReplacer.Replace(StripControlChars(answer))
}

// StripControlChars removes ASCII control characters (0x00-0x1F).
func StripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}
