package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	telebot "gopkg.in/telebot.v3"
)

// maxDownload caps files read into memory (banner backgrounds, avatars).
const maxDownload = 20 << 20

// ErrNoAvatar is returned when the user has no visible profile photo.
var ErrNoAvatar = errors.New("user has no profile photo")

// Gateway exposes the read-side Telegram calls handlers need: file downloads,
// profile photos and forum topics.
type Gateway struct {
	chat Chat
}

func NewGateway(chat Chat) *Gateway {
	return &Gateway{chat: chat}
}

// Download fetches a file by its Telegram id.
func (g *Gateway) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := g.chat.FileByID(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", fileID, err)
	}

	rc, err := g.chat.File(&file)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDownload))
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}

// Avatar downloads the user's most recent profile photo in its largest size.
func (g *Gateway) Avatar(ctx context.Context, userID int64) ([]byte, error) {
	photos, err := g.chat.ProfilePhotosOf(&telebot.User{ID: userID})
	if err != nil {
		return nil, fmt.Errorf("profile photos of %d: %w", userID, err)
	}
	if len(photos) == 0 || photos[0].FileID == "" {
		return nil, ErrNoAvatar
	}
	return g.Download(ctx, photos[0].FileID)
}

// CreateTopic opens a forum topic in chatID and returns its thread id.
func (g *Gateway) CreateTopic(ctx context.Context, chatID int64, name string, iconColor int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	topic, err := g.chat.CreateTopic(&telebot.Chat{ID: chatID}, &telebot.Topic{
		Name:      name,
		IconColor: iconColor,
	})
	if err != nil {
		return 0, fmt.Errorf("create topic in %d: %w", chatID, err)
	}
	return topic.ThreadID, nil
}
