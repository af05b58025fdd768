// Package match implements the four-item matching exercise: a shuffled
// right-hand display order, incremental left-to-right pairing, and scoring
// against the canonical identity mapping (left i pairs with the right value
// whose original index is i).
package match

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

// PairCount is fixed by the card format: four prompts, four values.
const PairCount = 4

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrPositionTaken rejects pairing a display position that another left
	// item already holds. The web client allowed this, leaving an ambiguous
	// state that could never score 4; here reuse is forbidden and the caller
	// must unpair first.
	ErrPositionTaken = errors.New("right position already paired")
)

// ParseLeftItems splits a match card's question into its left-hand prompts:
// "|"-delimited, trimmed, truncated to the first four.
func ParseLeftItems(question string) []string {
	parts := strings.Split(question, "|")
	if len(parts) > PairCount {
		parts = parts[:PairCount]
	}
	items := make([]string, len(parts))
	for i, part := range parts {
		items[i] = strings.TrimSpace(part)
	}
	return items
}

// Engine tracks one card's pairing state. It is not safe for concurrent use;
// the session runner serializes access.
type Engine struct {
	left  []string
	right []string
	// rightOrder maps display position to original right-hand index.
	rightOrder []int
	// pairs maps left index to display position.
	pairs map[int]int
	rng   *rand.Rand
}

// NewEngine builds the engine for a match card and shuffles the right-hand
// display order. The rng may be seeded for deterministic tests; pass nil for
// a time-seeded source.
func NewEngine(card *models.Card, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	e := &Engine{
		left:  ParseLeftItems(card.Question),
		right: append([]string(nil), card.Options...),
		pairs: make(map[int]int),
		rng:   rng,
	}
	e.rightOrder = e.shuffledOrder()
	return e
}

// shuffledOrder returns a uniform permutation of [0..3] via Fisher-Yates.
func (e *Engine) shuffledOrder() []int {
	order := make([]int, PairCount)
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := e.rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// LeftItems returns the left-hand prompts.
func (e *Engine) LeftItems() []string { return e.left }

// RightOrder returns the current display-position-to-original-index
// permutation.
func (e *Engine) RightOrder() []int { return append([]int(nil), e.rightOrder...) }

// RightValueAt returns the right-hand value shown at a display position.
// Positions beyond the available options render empty.
func (e *Engine) RightValueAt(pos int) string {
	if pos < 0 || pos >= len(e.rightOrder) {
		return ""
	}
	orig := e.rightOrder[pos]
	if orig >= len(e.right) {
		return ""
	}
	return e.right[orig]
}

// Pairs returns a copy of the committed left-to-position pairings.
func (e *Engine) Pairs() map[int]int {
	out := make(map[int]int, len(e.pairs))
	for l, p := range e.pairs {
		out[l] = p
	}
	return out
}

// Pair commits leftIndex -> displayPos. Re-pairing the same left index
// overwrites its prior entry; a position held by a different left index is
// rejected with ErrPositionTaken.
func (e *Engine) Pair(leftIndex, displayPos int) error {
	if leftIndex < 0 || leftIndex >= PairCount || displayPos < 0 || displayPos >= PairCount {
		return ErrIndexOutOfRange
	}
	for l, p := range e.pairs {
		if p == displayPos && l != leftIndex {
			return fmt.Errorf("%w: position %d is held by left item %d", ErrPositionTaken, displayPos, l)
		}
	}
	e.pairs[leftIndex] = displayPos
	return nil
}

// Unpair removes a left index's pairing, if any.
func (e *Engine) Unpair(leftIndex int) {
	delete(e.pairs, leftIndex)
}

// Complete reports whether every left index has been assigned a position.
func (e *Engine) Complete() bool {
	return len(e.pairs) == PairCount
}

// Score counts correct pairings: left i is correct iff it points at the
// display position p with rightOrder[p] == i.
func (e *Engine) Score() int {
	correct := 0
	for i := 0; i < PairCount; i++ {
		pos, ok := e.pairs[i]
		if !ok {
			continue
		}
		if pos < len(e.rightOrder) && e.rightOrder[pos] == i {
			correct++
		}
	}
	return correct
}

// Reset re-randomizes the display order and clears all pairings without
// changing the item content.
func (e *Engine) Reset() {
	e.rightOrder = e.shuffledOrder()
	e.pairs = make(map[int]int)
}

// Serialize encodes the pairing for submission as the free-text answer:
// comma-joined "{left}->{originalIndexAtPairedPosition}" for left 0..3, with
// an empty right-hand side for missing pairs.
func (e *Engine) Serialize() string {
	tokens := make([]string, PairCount)
	for i := 0; i < PairCount; i++ {
		right := ""
		if pos, ok := e.pairs[i]; ok && pos < len(e.rightOrder) {
			right = strconv.Itoa(e.rightOrder[pos])
		}
		tokens[i] = fmt.Sprintf("%d->%s", i, right)
	}
	return strings.Join(tokens, ",")
}

// ParseSerialized inverts Serialize for well-formed tokens, returning the
// left-to-original-index mapping. Tokens with an empty right side are
// omitted; malformed tokens are an error.
func ParseSerialized(answer string) (map[int]int, error) {
	mapping := make(map[int]int)
	if strings.TrimSpace(answer) == "" {
		return mapping, nil
	}

	for _, token := range strings.Split(answer, ",") {
		parts := strings.SplitN(token, "->", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed pairing token %q", token)
		}
		left, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed left index in token %q", token)
		}
		rightPart := strings.TrimSpace(parts[1])
		if rightPart == "" {
			continue
		}
		right, err := strconv.Atoi(rightPart)
		if err != nil {
			return nil, fmt.Errorf("malformed right index in token %q", token)
		}
		mapping[left] = right
	}
	return mapping, nil
}
