package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
)

// Notifier отправляет готовые результаты в Telegram-чат
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier авторизует бота по токену
func NewNotifier(token string, chatID int64, log logrus.FieldLogger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}

	log.Infof("Telegram notifier authorized on account %s", api.Self.UserName)

	return &Notifier{api: api, chatID: chatID}, nil
}

// Notify отправляет фото или видео с подписью
func (n *Notifier) Notify(ctx context.Context, report *entity.Report, resultPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	caption := Caption(report)
	file := tgbotapi.FilePath(resultPath)

	var msg tgbotapi.Chattable
	if report.Kind == entity.MediaVideo {
		video := tgbotapi.NewVideo(n.chatID, file)
		video.Caption = caption
		msg = video
	} else {
		photo := tgbotapi.NewPhoto(n.chatID, file)
		photo.Caption = caption
		msg = photo
	}

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// Caption краткая сводка результата
func Caption(report *entity.Report) string {
	if report.Kind == entity.MediaVideo {
		va := report.Video.VideoAnalysis
		text := fmt.Sprintf("🎞 %s\nКадров: %d, с объектами: %d, объектов: %d",
			va.OutputVideo, va.TotalFrames, va.FramesWithDetections, report.TotalObjects())
		if va.SkippedFrames > 0 {
			text += fmt.Sprintf("\nПропущено кадров: %d", va.SkippedFrames)
		}
		return text
	}

	stats := report.Image.Statistics
	if stats.TotalObjects == 0 {
		return fmt.Sprintf("🖼 %s\nОбъекты не обнаружены.", report.Image.AnnotatedImage)
	}
	return fmt.Sprintf("🖼 %s\nОбъектов: %d (%s)",
		report.Image.AnnotatedImage, stats.TotalObjects, strings.Join(stats.ClassesFound, ", "))
}

var _ port.ResultNotifier = (*Notifier)(nil)
