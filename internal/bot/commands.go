package bot

import (
	"fmt"
	"strings"

	coretelegram "github.com/m3rciful/studybot/core/telegram"
	tgtransport "github.com/m3rciful/studybot/internal/transport/telegram"
)

const infoText = `<b>studybot</b>
Naviguez dans les semestres, modules et contenus avec les boutons, puis touchez un document pour le recevoir.

/start ou /menu affiche le menu des semestres.
/s1, /s2… ouvrent directement un semestre.`

func (a *App) register() error {
	a.registry.RegisterCommand("/start", coretelegram.Command{
		Handler:     a.handleStart,
		Description: "Afficher le menu principal",
		Aliases:     []string{"/menu"},
	})
	a.registry.RegisterCommand("/info", coretelegram.Command{
		Handler:     a.handleInfo,
		Description: "À propos du bot",
	})
	for _, sc := range a.catalog.Shortcuts() {
		menu := string(sc.Menu)
		a.registry.RegisterCommand(sc.Command, coretelegram.Command{
			Handler:     a.shortcutHandler(menu),
			Description: sc.Description,
		})
	}
	a.registry.RegisterCommand("/missing", coretelegram.Command{
		Handler:     a.handleMissing,
		Description: "Ressources sans fichier",
		AdminOnly:   true,
	})
	a.registry.RegisterCommand("/uploads", coretelegram.Command{
		Handler:     a.handleUploads,
		Description: "Derniers fichiers envoyés",
		AdminOnly:   true,
	})
	if err := a.registry.RegisterCallback(tgtransport.Unique, a.handleNav); err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	return nil
}

// info renders the /info message, signed by the admin when a username is configured.
func (a *App) info() string {
	user := strings.TrimPrefix(strings.TrimSpace(a.cfg.Telegram.AdminUsername), "@")
	if user == "" {
		return infoText
	}
	return infoText + "\n\nContact : @" + user
}
