// Package support implements the support relay bot: every private conversation gets its
// own forum topic in the support chat, and replies posted in that topic go back to the user.
package support

import (
	"encoding/json"
	"strconv"

	"github.com/Proton-105/emerans-bots/internal/store"
)

// Document maps users to their topics and back. Keys are decimal ids, as in the
// files written by earlier builds.
type Document struct {
	UserToTopic map[string]int   `json:"user_to_topic"`
	TopicToUser map[string]int64 `json:"topic_to_user"`

	Extra store.Extra `json:"-"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	d := &Document{}
	d.Normalize()
	return d
}

// Normalize backfills maps missing from the file.
func (d *Document) Normalize() {
	if d.UserToTopic == nil {
		d.UserToTopic = map[string]int{}
	}
	if d.TopicToUser == nil {
		d.TopicToUser = map[string]int64{}
	}
}

// MarshalJSON keeps top-level keys this build does not know.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	return store.MarshalWithExtra(plain(d), d.Extra)
}

// UnmarshalJSON decodes the document and captures unknown keys.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	extra, err := store.SplitUnknown(data, decoded)
	if err != nil {
		return err
	}
	*d = Document(decoded)
	d.Extra = extra
	return nil
}

// Topic returns the user's thread id, or zero.
func (d *Document) Topic(userID int64) int {
	return d.UserToTopic[strconv.FormatInt(userID, 10)]
}

// User returns the user who owns threadID, or zero.
func (d *Document) User(threadID int) int64 {
	return d.TopicToUser[strconv.Itoa(threadID)]
}

// Bind records both directions of the mapping.
func (d *Document) Bind(userID int64, threadID int) {
	d.UserToTopic[strconv.FormatInt(userID, 10)] = threadID
	d.TopicToUser[strconv.Itoa(threadID)] = userID
}
