package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ButtonKey identifies one press target: the callback data on one message.
// Inline messages have no chat, so their inline id stands in for chat and message.
// The action before the first ':' stays readable so stored keys can be grouped.
func ButtonKey(chatID int64, messageID int, inlineID, data string) string {
	origin := inlineID
	if origin == "" {
		origin = strconv.FormatInt(chatID, 10) + "/" + strconv.Itoa(messageID)
	}

	sum := sha256.Sum256([]byte(origin + "|" + data))
	action, _, _ := strings.Cut(data, ":")
	return action + ":" + hex.EncodeToString(sum[:16])
}
