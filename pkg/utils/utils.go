package utils

import (
	"LivenessGolang/internal/entity"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidFrame  = errors.New("invalid frame")
	ErrFrameTooLarge = errors.New("frame size exceeds limit")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	DecodeDataURL(payload string) (*entity.Frame, error)
}

type utils struct {
	maxFrameSize int
}

func New() IUtils {
	return &utils{
		maxFrameSize: 5 * 1024 * 1024,
	}
}

func NewWithMaxFrameSize(maxFrameSize int) IUtils {
	return &utils{
		maxFrameSize: maxFrameSize,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// DecodeDataURL turns "data:<mime>;base64,<payload>" into raw image bytes and
// checks that the bytes are a decodable image. A bare base64 payload without
// the data header is accepted too.
func (u *utils) DecodeDataURL(payload string) (*entity.Frame, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidFrame)
	}

	mimeType := ""
	encoded := payload
	if header, rest, found := strings.Cut(payload, ","); found {
		if !strings.HasPrefix(header, "data:") {
			return nil, fmt.Errorf("%w: malformed data url header", ErrInvalidFrame)
		}
		mimeType = strings.TrimPrefix(header, "data:")
		mimeType, _, _ = strings.Cut(mimeType, ";")
		encoded = rest
	}

	if base64.StdEncoding.DecodedLen(len(encoded)) > u.maxFrameSize {
		return nil, ErrFrameTooLarge
	}

	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	if mimeType == "" {
		mimeType = "image/" + format
	}

	return &entity.Frame{
		Data:     data,
		MIMEType: mimeType,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

func decodeBase64(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err == nil {
		return data, nil
	}

	// Some browsers strip the padding.
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "=")); rawErr == nil {
		return raw, nil
	}

	return nil, err
}
