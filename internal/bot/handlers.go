package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studybot/core/logger"
	"github.com/m3rciful/studybot/core/telegram/callbacks"
	"github.com/m3rciful/studybot/core/telegram/format"
	tghelpers "github.com/m3rciful/studybot/core/telegram/helpers"
	"github.com/m3rciful/studybot/core/telegram/middleware"
	"github.com/m3rciful/studybot/internal/catalog"
	"github.com/m3rciful/studybot/internal/navigation"
	"github.com/m3rciful/studybot/internal/storage"
	tgtransport "github.com/m3rciful/studybot/internal/transport/telegram"
)

const (
	maxListed      = 40
	recentLimit    = 10
	noticeNotReady = "le bot démarre, réessayez dans un instant."
)

var errNotStarted = errors.New("bot: navigation engine not started")

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}

func (a *App) handleStart(c tele.Context) error {
	engine := a.Engine()
	if engine == nil {
		return errNotStarted
	}
	ctx := tghelpers.BuildContext(c)
	if _, err := engine.Start(ctx, chatID(c)); err != nil {
		_ = tghelpers.SendText(c, navigation.NoticeUnavailable)
		return err
	}
	return nil
}

func (a *App) shortcutHandler(menu string) tele.HandlerFunc {
	return func(c tele.Context) error {
		engine := a.Engine()
		if engine == nil {
			return errNotStarted
		}
		ctx := tghelpers.BuildContext(c)
		if _, err := engine.Shortcut(ctx, chatID(c), menu); err != nil {
			_ = tghelpers.SendText(c, navigation.NoticeUnavailable)
			return err
		}
		return nil
	}
}

func (a *App) handleInfo(c tele.Context) error {
	return tghelpers.SendHTML(c, a.info())
}

// handleNav applies a menu button press. The engine answers the callback
// query itself, so failures are reported to the user there and only logged here.
func (a *App) handleNav(c tele.Context) error {
	sel, ok := tgtransport.SelectionFrom(c)
	if !ok {
		return a.registry.CallbackNotFound()(c)
	}
	engine := a.Engine()
	if engine == nil {
		callbacks.MarkAnswered(c)
		return c.Respond(&tele.CallbackResponse{Text: noticeNotReady})
	}
	callbacks.MarkAnswered(c)
	_, err := engine.Select(tghelpers.BuildContext(c), sel)
	return err
}

func (a *App) handleMissing(c tele.Context) error {
	missing := a.inventory.Missing(a.catalog.Resources())
	a.metrics.SetMissing(len(missing))
	dangling := a.catalog.Dangling()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d / %d\n", format.Bold("Ressources sans fichier :"), len(missing), a.catalog.Stats().Resources)
	if len(missing) > 0 {
		b.WriteString(format.List(missingLines(missing, maxListed)))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s %d", format.Bold("Options sans contenu :"), len(dangling))
	if len(dangling) > 0 {
		b.WriteByte('\n')
		b.WriteString(format.List(truncate(dangling, maxListed)))
	}
	return tghelpers.SendHTML(c, b.String())
}

func missingLines(missing []catalog.ResourceEntry, limit int) []string {
	lines := make([]string, 0, len(missing))
	for _, r := range missing {
		lines = append(lines, fmt.Sprintf("%s → %s", r.Key, r.Path))
	}
	return truncate(lines, limit)
}

func truncate(items []string, limit int) []string {
	if len(items) <= limit {
		return items
	}
	out := append([]string(nil), items[:limit]...)
	return append(out, fmt.Sprintf("… %d de plus", len(items)-limit))
}

func (a *App) handleUploads(c tele.Context) error {
	if !a.ledger.Enabled() {
		return tghelpers.SendText(c, "registre des envois désactivé (aucune base configurée).")
	}
	recent, err := a.ledger.Recent(tghelpers.BuildContext(c), recentLimit)
	if err != nil {
		_ = tghelpers.SendText(c, "registre des envois indisponible.")
		return err
	}
	if len(recent) == 0 {
		return tghelpers.SendText(c, "aucun fichier envoyé.")
	}
	lines := make([]string, 0, len(recent))
	for _, u := range recent {
		lines = append(lines, fmt.Sprintf("%s  %s (%d o)", u.CreatedAt.Format("2006-01-02 15:04"), u.Path, u.SizeBytes))
	}
	return tghelpers.SendHTML(c, format.Bold("Derniers envois :")+"\n"+format.List(lines))
}

// handleDocument stores a document sent by the admin under the resource
// root. The caption names the relative target path; without one the file
// name is used. Documents from anyone else get the usual fallback.
func (a *App) handleDocument(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Document == nil {
		return nil
	}
	if !middleware.IsAdmin(c, a.cfg.Telegram.AdminID) {
		return a.text.UnknownDocument(c)
	}
	ctx := tghelpers.BuildContext(c)

	target, err := storage.UploadTarget(msg.Caption, msg.Document.FileName)
	if err != nil {
		a.metrics.ObserveUpload(err)
		return tghelpers.Reply(c, "chemin invalide : indiquez un chemin relatif en légende.")
	}

	rc, err := a.download(c, &msg.Document.File)
	if err != nil {
		a.metrics.ObserveUpload(err)
		_ = tghelpers.Reply(c, "téléchargement impossible.")
		return fmt.Errorf("bot: download %s: %w", target, err)
	}
	defer rc.Close()

	dst, size, err := storage.SaveUpload(a.inventory.Root(), target, rc)
	a.metrics.ObserveUpload(err)
	if err != nil {
		_ = tghelpers.Reply(c, "enregistrement impossible.")
		return err
	}
	a.inventory.Track(dst)

	var uploaderID int64
	if u := c.Sender(); u != nil {
		uploaderID = u.ID
	}
	if _, err := a.ledger.Record(ctx, storage.Upload{Path: target, SizeBytes: size, UploaderID: uploaderID}); err != nil {
		logger.Warn(ctx, "storage", "upload.record",
			slog.String("status", "error"),
			slog.String("path", target),
			slog.String("err", err.Error()),
		)
	}
	logger.Info(ctx, "storage", "upload.save",
		slog.String("status", "ok"),
		slog.String("path", target),
		slog.Int64("size_bytes", size),
	)
	return tghelpers.Reply(c, "fichier enregistré : "+target)
}
