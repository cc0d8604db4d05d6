// Package keyboard builds inline keyboards whose buttons share one callback namespace.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is one inline button. Data travels back as the callback payload.
type Button struct {
	Text string
	Data string
}

// Grid lays rows of buttons out under the unique callback namespace.
// Empty rows are skipped.
func Grid(unique string, rows [][]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	kb := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, *markup.Data(b.Text, unique, b.Data).Inline())
		}
		kb = append(kb, line)
	}
	markup.InlineKeyboard = kb
	return markup
}
