package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flashdeck/flashdeck-cli/internal/export"
	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/validator"
)

func (a *App) printDeck(deck *models.Deck) {
	liked := " "
	if deck.Liked {
		liked = "♥"
	}
	fav := " "
	if deck.Favourite {
		fav = "★"
	}
	a.printf("%4d %s%s %-10s %-40s cards=%d likes=%d\n",
		deck.ID, liked, fav, deck.Visibility, deck.Title, deck.CardCount, deck.LikeCount)
}

func (a *App) cmdDecks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decks", flag.ContinueOnError)
	fs.SetOutput(a.out)
	mine := fs.Bool("mine", false, "only my decks")
	public := fs.Bool("public", false, "only public decks")
	starred := fs.Bool("starred", false, "only favourited decks")
	search := fs.String("search", "", "search title and description")
	tag := fs.String("tag", "", "filter by tag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var decks []models.Deck
	var err error
	switch {
	case *mine:
		decks, err = a.client.MyDecks(ctx)
	case *public:
		decks, err = a.client.PublicDecks(ctx)
	default:
		decks, err = a.client.ListDecks(ctx, models.DeckFilters{Search: *search, Tag: *tag})
	}
	if err != nil {
		return friendly(err)
	}
	if *starred {
		decks = starredDecks(decks)
	}

	if len(decks) == 0 {
		a.printf("No decks.\n")
		return nil
	}
	for i := range decks {
		a.printDeck(&decks[i])
	}
	return nil
}

// starredDecks keeps only the decks the current user has favourited, in
// their listed order.
func starredDecks(decks []models.Deck) []models.Deck {
	out := make([]models.Deck, 0, len(decks))
	for _, deck := range decks {
		if deck.Favourite {
			out = append(out, deck)
		}
	}
	return out
}

func (a *App) cmdDeck(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: deck <create|show|update|delete|like|unlike|favorite|unfavorite> [flags]")
	}
	action, rest := args[0], args[1:]

	fs := flag.NewFlagSet("deck "+action, flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.Uint("id", 0, "deck id")
	title := fs.String("title", "", "deck title")
	description := fs.String("description", "", "deck description")
	tags := fs.String("tags", "", "comma-separated tags")
	visibility := fs.String("visibility", string(models.VisibilityPrivate), "public or private")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	if action == "create" {
		deck, err := a.client.CreateDeck(ctx, models.DeckCreate{
			Title:       *title,
			Description: *description,
			Tags:        *tags,
			Visibility:  models.DeckVisibility(*visibility),
		})
		if err != nil {
			return friendly(err)
		}
		a.printf("Created deck %d: %s\n", deck.ID, deck.Title)
		return nil
	}

	if *id == 0 {
		return fmt.Errorf("-id is required")
	}
	deckID := uint(*id)

	switch action {
	case "show":
		deck, err := a.client.GetDeck(ctx, deckID)
		if err != nil {
			return friendly(err)
		}
		a.printDeck(deck)
		if deck.Description != "" {
			a.printf("     %s\n", deck.Description)
		}
		if deck.Tags != "" {
			a.printf("     tags: %s\n", deck.Tags)
		}
		return nil
	case "update":
		update := models.DeckUpdate{}
		if *title != "" {
			update.Title = title
		}
		if *description != "" {
			update.Description = description
		}
		deck, err := a.client.UpdateDeck(ctx, deckID, update)
		if err != nil {
			return friendly(err)
		}
		a.printf("Updated deck %d\n", deck.ID)
		return nil
	case "delete":
		if err := a.client.DeleteDeck(ctx, deckID); err != nil {
			return friendly(err)
		}
		a.printf("Deleted deck %d\n", deckID)
		return nil
	case "like":
		return friendly(a.client.LikeDeck(ctx, deckID))
	case "unlike":
		return friendly(a.client.UnlikeDeck(ctx, deckID))
	case "favorite":
		return friendly(a.client.FavoriteDeck(ctx, deckID))
	case "unfavorite":
		return friendly(a.client.UnfavoriteDeck(ctx, deckID))
	default:
		return fmt.Errorf("unknown deck action %q", action)
	}
}

func (a *App) printCard(card *models.Card) {
	a.printf("%4d [%-9s] %s\n", card.ID, card.QType, card.Question)
	if len(card.Options) > 0 {
		a.printf("     options: %s\n", strings.Join(card.Options, " | "))
	}
	if card.Answer != "" {
		a.printf("     answer: %s\n", card.Answer)
	}
}

func (a *App) cmdCards(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: cards <list|add|show|delete> -deck <id> [flags]")
	}
	action, rest := args[0], args[1:]

	fs := flag.NewFlagSet("cards "+action, flag.ContinueOnError)
	fs.SetOutput(a.out)
	deckID := fs.Uint("deck", 0, "deck id")
	cardID := fs.Uint("id", 0, "card id")
	question := fs.String("question", "", "question text")
	answer := fs.String("answer", "", "canonical answer")
	qtype := fs.String("qtype", string(models.QTypeFlashcard), "mcq, fillups, match or flashcard")
	options := fs.String("options", "", "pipe-separated options")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *deckID == 0 {
		return fmt.Errorf("-deck is required")
	}

	switch action {
	case "list":
		cards, err := a.client.ListCards(ctx, uint(*deckID))
		if err != nil {
			return friendly(err)
		}
		if len(cards) == 0 {
			a.printf("No cards.\n")
			return nil
		}
		for i := range cards {
			a.printCard(&cards[i])
		}
		return nil
	case "add":
		create := models.CardCreate{
			Question: *question,
			Answer:   *answer,
			QType:    models.QType(*qtype),
		}
		if *options != "" {
			create.Options = strings.Split(*options, "|")
		}
		card, err := a.client.CreateCard(ctx, uint(*deckID), create)
		if err != nil {
			return friendly(err)
		}
		a.printf("Created card %d\n", card.ID)
		return nil
	case "show":
		if *cardID == 0 {
			return fmt.Errorf("-id is required")
		}
		card, err := a.client.GetCard(ctx, uint(*deckID), uint(*cardID))
		if err != nil {
			return friendly(err)
		}
		a.printCard(card)
		return nil
	case "delete":
		if *cardID == 0 {
			return fmt.Errorf("-id is required")
		}
		if err := a.client.DeleteCard(ctx, uint(*deckID), uint(*cardID)); err != nil {
			return friendly(err)
		}
		a.printf("Deleted card %d\n", *cardID)
		return nil
	default:
		return fmt.Errorf("unknown cards action %q", action)
	}
}

func (a *App) cmdGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(a.out)
	prompt := fs.String("prompt", "", "what to generate a card about")
	qtype := fs.String("qtype", string(models.QTypeFlashcard), "desired question type")
	deckID := fs.Uint("deck", 0, "add the generated card to this deck")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prompt == "" {
		return fmt.Errorf("-prompt is required")
	}

	question, err := a.client.GenerateCard(ctx, models.AIGenerateRequest{
		Prompt:       *prompt,
		DesiredQType: models.QType(*qtype),
	})
	if err != nil {
		return friendly(err)
	}

	card := models.Card{
		Question: question.Question,
		Answer:   question.Answer,
		QType:    question.QType,
		Options:  question.Options,
	}
	a.printCard(&card)

	if *deckID > 0 {
		created, err := a.client.CreateCard(ctx, uint(*deckID), models.CardCreate{
			Question: question.Question,
			Answer:   question.Answer,
			QType:    question.QType,
			Options:  question.Options,
		})
		if err != nil {
			return friendly(err)
		}
		a.printf("Added to deck %d as card %d\n", *deckID, created.ID)
	}
	return nil
}

func (a *App) cmdExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(a.out)
	deckID := fs.Uint("deck", 0, "deck id")
	path := fs.String("out", "", "output file (.xlsx or .csv)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deckID == 0 || *path == "" {
		return fmt.Errorf("-deck and -out are required")
	}

	deck, err := a.client.GetDeck(ctx, uint(*deckID))
	if err != nil {
		return friendly(err)
	}
	cards, err := a.client.ListCards(ctx, uint(*deckID))
	if err != nil {
		return friendly(err)
	}

	svc := export.NewService(a.logger, validator.New())
	var data []byte
	switch ext := strings.ToLower(filepath.Ext(*path)); ext {
	case ".xlsx":
		data, err = svc.ExportDeckToExcel(deck, cards)
	case ".csv":
		data, err = svc.ExportDeckToCSV(deck, cards)
	default:
		return fmt.Errorf("unsupported export format %q", ext)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(*path, data, 0o644); err != nil {
		return err
	}
	a.printf("Wrote %d cards to %s\n", len(cards), *path)
	return nil
}

func (a *App) cmdImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(a.out)
	deckID := fs.Uint("deck", 0, "deck id")
	path := fs.String("in", "", "input file (.xlsx or .csv)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deckID == 0 || *path == "" {
		return fmt.Errorf("-deck and -in are required")
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	svc := export.NewService(a.logger, validator.New())
	var result *export.ImportResult
	switch ext := strings.ToLower(filepath.Ext(*path)); ext {
	case ".xlsx":
		result, err = svc.ImportCardsFromExcel(f)
	case ".csv":
		result, err = svc.ImportCardsFromCSV(f)
	default:
		return fmt.Errorf("unsupported import format %q", ext)
	}
	if err != nil {
		return err
	}

	created := 0
	for i := range result.Cards {
		if _, err := a.client.CreateCard(ctx, uint(*deckID), result.Cards[i]); err != nil {
			return friendly(err)
		}
		created++
	}

	a.printf("Imported %d/%d rows into deck %d\n", created, result.TotalRows, *deckID)
	for _, rowErr := range result.Errors {
		a.printf("  row %d: %s\n", rowErr.Row, rowErr.Message)
	}
	return nil
}
