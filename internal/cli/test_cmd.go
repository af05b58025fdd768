package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/flashdeck/flashdeck-cli/internal/match"
	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/session"
	"github.com/flashdeck/flashdeck-cli/internal/storage"
)

func (a *App) cmdTest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(a.out)
	deckID := fs.Uint("deck", 0, "deck id")
	perCard := fs.Int("per-card", models.DefaultPerCardSeconds, "seconds per question")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deckID == 0 {
		return fmt.Errorf("-deck is required")
	}

	cards, err := a.client.ListCards(ctx, uint(*deckID))
	if err != nil {
		return friendly(err)
	}
	if len(cards) == 0 {
		return fmt.Errorf("deck %d has no cards", *deckID)
	}

	started, err := a.client.StartTest(ctx, models.TestSessionCreate{
		DeckID:         uint(*deckID),
		PerCardSeconds: *perCard,
	})
	if err != nil {
		return friendly(err)
	}

	hooks := session.Hooks{
		OnTick: func(remaining int) {
			if remaining == 5 {
				a.printf("\n  (5 seconds left)\n")
			}
		},
		OnAutoSubmit: func(err error) {
			if err != nil {
				a.printf("\n  Time is up but the submission failed: %v. Answer again.\n", err)
				return
			}
			a.printf("\n  Time is up. An empty answer was recorded; press Enter.\n")
		},
	}

	runner, err := session.NewRunner(a.client, a.store, a.logger, started.SessionID, cards, *perCard, hooks)
	if err != nil {
		return err
	}
	defer runner.Close()
	runner.Start(ctx)

	if err := a.testLoop(ctx, runner); err != nil {
		return err
	}

	result := runner.Result()
	if result == nil {
		return nil
	}
	a.printResult(result)
	return nil
}

// testLoop drives the submit → reveal → advance sequencing until the runner
// completes the session.
func (a *App) testLoop(ctx context.Context, runner *session.Runner) error {
	for !runner.Finished() {
		index, card, state := runner.Current()

		if state == session.StateRevealed {
			a.printf("\n  Answer: %s\n", revealText(card))
			if _, err := a.prompt("Press Enter to continue... "); err != nil {
				return err
			}
			if err := runner.Advance(ctx); err != nil {
				return friendly(err)
			}
			continue
		}

		a.printQuestion(index, runner.Total(), card, runner.Remaining())

		var submitErr error
		if card.QType == models.QTypeMatch {
			submitErr = a.matchLoop(ctx, runner)
		} else {
			answer, err := a.readAnswer(card)
			if err != nil {
				return err
			}
			if problem := answerProblem(card, answer); problem != "" {
				a.printf("  %s\n", problem)
				continue
			}
			submitErr = runner.Submit(ctx, answer)
		}

		switch {
		case submitErr == nil:
		case errors.Is(submitErr, session.ErrAlreadySubmitted):
			// The countdown expired while the user was typing; the empty
			// auto-submission already counted.
		case errors.Is(submitErr, session.ErrPairsIncomplete):
			a.printf("  %v\n", submitErr)
		default:
			return friendly(submitErr)
		}
	}
	return nil
}

func (a *App) printQuestion(index, total int, card *models.Card, remaining int) {
	a.printf("\nQuestion %d/%d  [%s]  (%ds)\n", index+1, total, card.QType, remaining)

	switch card.QType {
	case models.QTypeSingleChoice:
		a.printf("  %s\n", card.Question)
		for i, option := range card.Options {
			a.printf("    %d) %s\n", i+1, option)
		}
	case models.QTypeMatch:
		// Rendered by the match loop.
	default:
		a.printf("  %s\n", card.Question)
	}
}

// readAnswer reads one answer line. Single-choice answers may be the option
// number; it is translated to the option text before submission.
func (a *App) readAnswer(card *models.Card) (string, error) {
	answer, err := a.prompt("> ")
	if err != nil {
		return "", err
	}

	if card.QType == models.QTypeSingleChoice {
		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(card.Options) {
			return card.Options[n-1], nil
		}
	}
	return answer, nil
}

// answerProblem rejects input locally before it reaches the wire: no blank
// submissions, and single-choice answers must name one of the options.
func answerProblem(card *models.Card, answer string) string {
	if strings.TrimSpace(answer) == "" {
		return "Enter an answer before submitting."
	}
	if card.QType != models.QTypeSingleChoice {
		return ""
	}
	for _, option := range card.Options {
		if strings.EqualFold(strings.TrimSpace(answer), option) {
			return ""
		}
	}
	return "Choose one of the listed options."
}

func revealText(card *models.Card) string {
	if card.QType == models.QTypeMatch {
		return "each prompt pairs with its own definition"
	}
	if card.Answer == "" {
		return "(no canonical answer)"
	}
	return card.Answer
}

// matchLoop runs the pairing sub-prompt for one match question and submits
// the serialized pairing when the user finishes.
func (a *App) matchLoop(ctx context.Context, runner *session.Runner) error {
	engine := runner.Match()
	if engine == nil {
		return fmt.Errorf("no active match question")
	}

	a.printMatchBoard(engine)
	a.printf("  Commands: pair <L> <R>, unpair <L>, board, reset, done\n")

	for {
		line, err := a.prompt("match> ")
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "pair":
			if len(fields) != 3 {
				a.printf("  usage: pair <left 1-4> <right 1-4>\n")
				continue
			}
			left, _ := strconv.Atoi(fields[1])
			right, _ := strconv.Atoi(fields[2])
			if err := engine.Pair(left-1, right-1); err != nil {
				a.printf("  %v\n", err)
				continue
			}
			a.printMatchBoard(engine)
		case "unpair":
			if len(fields) != 2 {
				a.printf("  usage: unpair <left 1-4>\n")
				continue
			}
			left, _ := strconv.Atoi(fields[1])
			engine.Unpair(left - 1)
			a.printMatchBoard(engine)
		case "board":
			a.printMatchBoard(engine)
		case "reset":
			engine.Reset()
			a.printMatchBoard(engine)
		case "done":
			return runner.Submit(ctx, "")
		default:
			a.printf("  unknown command %q\n", fields[0])
		}
	}
}

func (a *App) printMatchBoard(engine *match.Engine) {
	left := engine.LeftItems()
	pairs := engine.Pairs()

	a.printf("  Match each prompt to a definition:\n")
	for i, item := range left {
		paired := "-"
		if pos, ok := pairs[i]; ok {
			paired = fmt.Sprintf("%d", pos+1)
		}
		a.printf("    L%d) %-30s -> %s\n", i+1, item, paired)
	}
	for pos := 0; pos < match.PairCount; pos++ {
		a.printf("    R%d) %s\n", pos+1, engine.RightValueAt(pos))
	}
}

func (a *App) printResult(result *models.TestSessionResult) {
	a.printf("\nTest complete: %s\n", result.DeckTitle)
	a.printf("  Score: %d/%d (%.1f%%)\n", result.CorrectAnswers, result.TotalCards, result.Accuracy)
	for i, answer := range result.Answers {
		verdict := "✗"
		if answer.IsCorrect {
			verdict = "✓"
		}
		shown := answer.UserAnswer
		if shown == "" {
			shown = "(no answer)"
		}
		a.printf("  %2d. %s %s\n", i+1, verdict, shown)
	}
	a.printf("  Session: %s\n", result.SessionID)
}

// cmdMatch is untimed pairing practice against a single match card. Nothing
// is submitted; scoring is local.
func (a *App) cmdMatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(a.out)
	deckID := fs.Uint("deck", 0, "deck id")
	cardID := fs.Uint("card", 0, "match card id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deckID == 0 || *cardID == 0 {
		return fmt.Errorf("-deck and -card are required")
	}

	card, err := a.client.GetCard(ctx, uint(*deckID), uint(*cardID))
	if err != nil {
		return friendly(err)
	}
	if card.QType != models.QTypeMatch {
		return fmt.Errorf("card %d is %s, not a match card", card.ID, card.QType)
	}

	engine := match.NewEngine(card, nil)
	a.printMatchBoard(engine)
	a.printf("  Commands: pair <L> <R>, unpair <L>, board, reset, score, quit\n")

	for {
		line, err := a.prompt("match> ")
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "pair":
			if len(fields) != 3 {
				a.printf("  usage: pair <left 1-4> <right 1-4>\n")
				continue
			}
			left, _ := strconv.Atoi(fields[1])
			right, _ := strconv.Atoi(fields[2])
			if err := engine.Pair(left-1, right-1); err != nil {
				a.printf("  %v\n", err)
				continue
			}
			a.printMatchBoard(engine)
		case "unpair":
			if len(fields) != 2 {
				continue
			}
			left, _ := strconv.Atoi(fields[1])
			engine.Unpair(left - 1)
			a.printMatchBoard(engine)
		case "board":
			a.printMatchBoard(engine)
		case "reset":
			engine.Reset()
			a.printMatchBoard(engine)
		case "score":
			if !engine.Complete() {
				a.printf("  pair all %d items first\n", match.PairCount)
				continue
			}
			a.printf("  %d/%d correct\n", engine.Score(), match.PairCount)
		case "quit":
			return nil
		default:
			a.printf("  unknown command %q\n", fields[0])
		}
	}
}

func (a *App) cmdResults(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	fs.SetOutput(a.out)
	sessionID := fs.String("session", "", "session id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id := *sessionID
	if id == "" {
		id = a.lastSessionID()
	}
	if id == "" {
		return fmt.Errorf("-session is required (no cached result)")
	}

	result, err := a.client.TestResult(ctx, id)
	if err != nil {
		return friendly(err)
	}
	a.printResult(result)
	return nil
}

func (a *App) cmdSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(a.out)
	sessionID := fs.String("session", "", "session id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id := *sessionID
	if id == "" {
		id = a.lastSessionID()
	}
	if id == "" {
		return fmt.Errorf("-session is required (no cached result)")
	}

	summary, err := a.client.ResultSummary(ctx, id)
	if err != nil {
		return friendly(err)
	}
	a.printf("Correct %d, mistakes %d of %d (%.1f%%)\n",
		summary.CorrectCount, summary.MistakeCount, summary.TotalQuestions, summary.ScorePercent)
	return nil
}

// lastSessionID reads the cached result from the most recent completed test.
func (a *App) lastSessionID() string {
	raw, ok, err := a.store.Get(storage.KeyLatestResult)
	if err != nil || !ok {
		return ""
	}
	var result models.TestSessionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return ""
	}
	return result.SessionID
}

func (a *App) cmdHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(a.out)
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", 20, "page size")
	deckID := fs.Uint("deck", 0, "filter by deck")
	completed := fs.Bool("completed", false, "only completed sessions")
	remove := fs.String("delete", "", "delete one session by id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *remove != "" {
		if err := a.client.DeleteHistory(ctx, *remove); err != nil {
			return friendly(err)
		}
		a.printf("Deleted session %s\n", *remove)
		return nil
	}

	filters := models.HistoryFilters{Page: *page, Size: *size}
	if *deckID > 0 {
		id := uint(*deckID)
		filters.DeckID = &id
	}
	if *completed {
		only := true
		filters.OnlyCompleted = &only
	}

	history, err := a.client.TestHistory(ctx, filters)
	if err != nil {
		return friendly(err)
	}

	if len(history.Items) == 0 {
		a.printf("No test history.\n")
		return nil
	}
	for _, item := range history.Items {
		status := "in progress"
		if item.IsCompleted {
			status = fmt.Sprintf("%d/%d (%.1f%%)", item.CorrectAnswers, item.TotalCards, item.Accuracy)
		}
		a.printf("  %-36s deck=%-4d %-30s %s\n", item.SessionID, item.DeckID, item.DeckTitle, status)
	}
	a.printf("Page %d of %d sessions\n", history.Page, history.Total)
	return nil
}

func (a *App) cmdStats(ctx context.Context) error {
	stats, err := a.client.TestStats(ctx)
	if err != nil {
		return friendly(err)
	}
	a.printf("Tests taken: %d across %d decks, average accuracy %.1f%%\n",
		stats.TotalTestsTaken, stats.TotalDecksTested, stats.AverageAccuracy)
	if len(stats.FavoriteSubjects) > 0 {
		a.printf("Favorite subjects: %s\n", strings.Join(stats.FavoriteSubjects, ", "))
	}
	return nil
}

func (a *App) cmdRandom(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("random", flag.ContinueOnError)
	fs.SetOutput(a.out)
	subject := fs.String("subject", "", "restrict to a subject tag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	deck, err := a.client.RandomPublicDeck(ctx, *subject)
	if err != nil {
		return friendly(err)
	}
	a.printDeck(deck)
	a.printf("Run: flashdeck test -deck %d\n", deck.ID)
	return nil
}
