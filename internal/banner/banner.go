// Package banner draws the worker profile card on top of an admin-uploaded banner.
package banner

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // banners uploaded as documents
	"log/slog"
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // stickers and webp uploads
)

// Quality is the JPEG quality of rendered cards.
const Quality = 92

// Reference canvas the layout below was measured on.
const (
	refWidth  = 1280
	refHeight = 720
)

// ErrEmptyBanner is returned when there is no base image to draw on.
var ErrEmptyBanner = errors.New("empty banner image")

// Card is what gets written on the banner.
type Card struct {
	Nickname string
	Profit   string
	Days     string
}

// Layout holds pixel positions for one banner size.
type Layout struct {
	AvatarSize int
	Avatar     image.Point
	Nickname   image.Point
	Profit     image.Point
	Days       image.Point
	MainSize   int
	SmallSize  int
}

// LayoutFor scales the reference layout to a width×height banner.
func LayoutFor(width, height int) Layout {
	sx := float64(width) / refWidth
	sy := float64(height) / refHeight
	at := func(x, y float64) image.Point {
		return image.Pt(int(x*sx), int(y*sy))
	}
	return Layout{
		AvatarSize: int(169 * sx),
		Avatar:     at(142, 100),
		Nickname:   at(510, 137),
		Profit:     at(469, 367),
		Days:       at(390, 497),
		MainSize:   max(int(36*sy), 1),
		SmallSize:  max(int(26*sy), 1),
	}
}

// Renderer composes profile cards. It is safe for concurrent use.
type Renderer struct {
	font *opentype.Font
	log  *slog.Logger
}

// New loads the TTF/OTF font at fontPath. An empty path or an unreadable font falls back
// to the built-in bitmap face.
func New(fontPath string, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	r := &Renderer{log: log}
	if fontPath == "" {
		return r
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		log.Warn("banner font unavailable, using bitmap font", slog.String("path", fontPath), slog.Any("error", err))
		return r
	}
	f, err := opentype.Parse(data)
	if err != nil {
		log.Warn("banner font unreadable, using bitmap font", slog.String("path", fontPath), slog.Any("error", err))
		return r
	}
	r.font = f
	return r
}

// Render draws card onto base and pastes avatar, when given, as a square.
// A broken avatar is skipped; a broken base is an error.
func (r *Renderer) Render(base []byte, card Card, avatar []byte) ([]byte, error) {
	if len(base) == 0 {
		return nil, ErrEmptyBanner
	}
	src, _, err := image.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("decode banner: %w", err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(canvas, canvas.Bounds(), src, bounds.Min, xdraw.Src)

	layout := LayoutFor(bounds.Dx(), bounds.Dy())

	mainFace, err := r.face(layout.MainSize)
	if err != nil {
		return nil, err
	}
	defer mainFace.Close()
	smallFace, err := r.face(layout.SmallSize)
	if err != nil {
		return nil, err
	}
	defer smallFace.Close()

	drawText(canvas, mainFace, layout.Nickname, card.Nickname)
	drawText(canvas, smallFace, layout.Profit, card.Profit)
	drawText(canvas, smallFace, layout.Days, card.Days)

	if len(avatar) > 0 && layout.AvatarSize > 0 {
		if err := pasteAvatar(canvas, avatar, layout); err != nil {
			r.log.Debug("avatar skipped", slog.Any("error", err))
		}
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return out.Bytes(), nil
}

func (r *Renderer) face(size int) (font.Face, error) {
	if r.font == nil {
		return basicfont.Face7x13, nil
	}
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %d: %w", size, err)
	}
	return face, nil
}

// drawText writes text with its top-left corner at at.
func drawText(dst *image.RGBA, face font.Face, at image.Point, text string) {
	if text == "" {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(at.X, at.Y).Add(fixed.Point26_6{Y: face.Metrics().Ascent}),
	}
	d.DrawString(text)
}

func pasteAvatar(dst *image.RGBA, data []byte, layout Layout) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode avatar: %w", err)
	}
	rect := image.Rectangle{
		Min: layout.Avatar,
		Max: layout.Avatar.Add(image.Pt(layout.AvatarSize, layout.AvatarSize)),
	}
	xdraw.CatmullRom.Scale(dst, rect, img, img.Bounds(), xdraw.Over, nil)
	return nil
}
