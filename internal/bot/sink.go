package bot

import (
	"context"
	"errors"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytget/coursegrab/internal/model"
	"github.com/ytget/coursegrab/internal/transfer"
)

// TelegramSink uploads finished downloads to a Telegram chat. Rate limiting
// from the Bot API surfaces as transfer.RateLimitedError so the pipeline can
// back off and retry.
type TelegramSink struct {
	client telegramClient
	chatID int64
}

// NewTelegramSink creates a sink targeting one chat.
func NewTelegramSink(client telegramClient, chatID int64) *TelegramSink {
	return &TelegramSink{client: client, chatID: chatID}
}

// Upload implements transfer.Sink.
func (s *TelegramSink) Upload(_ context.Context, req transfer.UploadRequest) error {
	f, err := os.Open(req.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := tgbotapi.FileReader{Name: req.FileName, Reader: f}
	if req.Progress != nil && !req.Plain {
		reader.Reader = transfer.NewProgressReader(f, req.Size, req.Progress)
	}

	_, err = s.client.Send(s.buildUpload(reader, req))
	return mapTelegramError(err)
}

// buildUpload picks the Telegram message type matching the media kind. A
// plain retry always goes out as a document, the least demanding send path.
func (s *TelegramSink) buildUpload(file tgbotapi.FileReader, req transfer.UploadRequest) tgbotapi.Chattable {
	if req.Plain {
		d := tgbotapi.NewDocument(s.chatID, file)
		d.Caption = req.Title
		return d
	}
	switch req.Kind {
	case model.KindVideo:
		v := tgbotapi.NewVideo(s.chatID, file)
		v.Caption = req.Title
		v.SupportsStreaming = true
		return v
	case model.KindPhoto:
		p := tgbotapi.NewPhoto(s.chatID, file)
		p.Caption = req.Title
		return p
	default:
		d := tgbotapi.NewDocument(s.chatID, file)
		d.Caption = req.Title
		return d
	}
}

// mapTelegramError converts Bot API flood control into the pipeline's
// rate-limit error; everything else passes through.
func mapTelegramError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return &transfer.RateLimitedError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
	}
	return err
}
