package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studybot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/studybot/core/telegram/helpers"
	"github.com/m3rciful/studybot/core/telegram/router"
	"github.com/m3rciful/studybot/internal/navigation"
)

const hintStart = "utilisez /start pour afficher le menu."

// fallbacks answers updates no command, callback or upload handled.
type fallbacks struct{}

var _ router.Fallbacks = fallbacks{}

func (fallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, hintStart)
	}
}

func (fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, hintStart)
	}
}

func (fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		callbacks.MarkAnswered(c)
		return c.Respond(&tele.CallbackResponse{Text: navigation.NoticeUnavailable})
	}
}
