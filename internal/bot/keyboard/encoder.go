package keyboard

import (
	"fmt"
	"strings"
)

// Callback data is "prefix:arg:arg". Handlers route on the prefix, the longest
// registered one wins.
const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// EncodeCallback joins unique and data. Telegram rejects payloads over 64 bytes, so
// they fail here instead of at send time.
func EncodeCallback(unique, data string) (string, error) {
	if unique == "" {
		return "", fmt.Errorf("callback prefix is empty")
	}

	payload := unique
	if data != "" {
		payload += CallbackDataSeparator + data
	}
	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

// Args joins callback arguments, e.g. Args("42", "1500") for "withdraw:take:42:1500".
func Args(args ...string) string {
	return strings.Join(args, CallbackDataSeparator)
}

// SplitArgs returns exactly n non-empty arguments following prefix in data.
func SplitArgs(data, prefix string, n int) ([]string, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok || rest == "" {
		return nil, false
	}

	args := strings.SplitN(rest, CallbackDataSeparator, n)
	if len(args) != n {
		return nil, false
	}
	for _, arg := range args {
		if arg == "" {
			return nil, false
		}
	}
	return args, true
}
