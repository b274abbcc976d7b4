package seeds

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ravimech476/BE/internal/models"
	"github.com/ravimech476/BE/internal/services"
)

// SeedWelcomeMessages sends one welcome DM from the first user to each of
// the others, unless the pair already has history.
func SeedWelcomeMessages(ctx context.Context, store *services.MessageStore, users []models.User, log zerolog.Logger) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}

	from := users[0]
	sent := 0
	for _, to := range users[1:] {
		existing, err := store.GetConversation(ctx, from.ID, to.ID, 1)
		if err != nil {
			return sent, err
		}
		if len(existing) > 0 {
			continue
		}

		text := "Welcome to the intranet chat, " + to.FirstName + "!"
		if _, err := store.Append(ctx, from.ID, to.ID, text); err != nil {
			return sent, err
		}
		sent++
	}

	log.Info().Int("sent", sent).Msg("Welcome messages seeded")
	return sent, nil
}
