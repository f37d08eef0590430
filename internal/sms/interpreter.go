// Package sms turns raw inbound text messages into a resolved ticket and a
// classified customer intent.
package sms

import (
	"context"
	"log"
	"regexp"
	"strings"

	"valet/internal/models"
	"valet/internal/phone"
)

// TicketFinder is the store surface the interpreter needs: exact-match
// lookups over open tickets only.
type TicketFinder interface {
	FindOpenTicketByPhone(ctx context.Context, variants []string) (models.Ticket, bool, error)
	FindOpenTicketByNumberAndPhone(ctx context.Context, number string, variants []string) (models.Ticket, bool, error)
	FindOpenTicketByNumber(ctx context.Context, number string) (models.Ticket, bool, error)
}

// Intent carries the independent keyword classifications; a message can be
// both a pickup request and a yes/no answer, and the orchestrator
// disambiguates with ticket context.
type Intent struct {
	PickupRequest bool
	Affirmative   bool
	Negative      bool
}

// Match confidence levels, highest first.
const (
	MatchPhone          = "phone"
	MatchNumberAndPhone = "number_and_phone"
	MatchNumberOnly     = "number_only"
)

type Interpretation struct {
	Ticket     models.Ticket
	Matched    bool
	Confidence string
	Token      string
	Intent     Intent
}

var (
	ticketPhrasePattern = regexp.MustCompile(`(?i)\bticket\s*#?\s*([a-z0-9][a-z0-9-]*)`)
	hashTokenPattern    = regexp.MustCompile(`#\s*([a-zA-Z0-9][a-zA-Z0-9-]*)`)
	// Last resort: a bare token of 3+ chars. Requiring a digit keeps
	// greetings and keywords from being mistaken for ticket numbers; every
	// issued number carries its sequence digits.
	bareTokenPattern = regexp.MustCompile(`\b([a-zA-Z0-9-]*[0-9][a-zA-Z0-9-]*)\b`)
)

var pickupKeywords = []string{"ready", "pickup", "pick up", "car", "bring", "get my", "on my way", "leaving", "outside", "lobby"}

var affirmativeWords = map[string]struct{}{
	"yes": {}, "yep": {}, "yeah": {}, "yup": {}, "y": {},
	"ok": {}, "okay": {}, "sure": {}, "correct": {}, "confirm": {}, "confirmed": {},
}

var negativeWords = map[string]struct{}{
	"no": {}, "nope": {}, "nah": {}, "n": {},
}

// Interpret resolves the sender to an open ticket and classifies the body.
// Lookup priority: open ticket by phone variant, then by extracted ticket
// number plus phone variant, then by number alone, which is logged as a
// lower-confidence match.
func Interpret(ctx context.Context, finder TicketFinder, from, body string) (Interpretation, error) {
	result := Interpretation{
		Token:  ExtractTicketToken(body),
		Intent: Classify(body),
	}

	variants := phone.Variants(from)
	if len(variants) > 0 {
		ticket, found, err := finder.FindOpenTicketByPhone(ctx, variants)
		if err != nil {
			return Interpretation{}, err
		}
		if found {
			result.Ticket = ticket
			result.Matched = true
			result.Confidence = MatchPhone
			return result, nil
		}
	}

	if result.Token == "" {
		return result, nil
	}

	if len(variants) > 0 {
		ticket, found, err := finder.FindOpenTicketByNumberAndPhone(ctx, result.Token, variants)
		if err != nil {
			return Interpretation{}, err
		}
		if found {
			result.Ticket = ticket
			result.Matched = true
			result.Confidence = MatchNumberAndPhone
			return result, nil
		}
	}

	ticket, found, err := finder.FindOpenTicketByNumber(ctx, result.Token)
	if err != nil {
		return Interpretation{}, err
	}
	if found {
		log.Printf("inbound sms matched by ticket number only from=%s ticket=%s", from, ticket.TicketNumber)
		result.Ticket = ticket
		result.Matched = true
		result.Confidence = MatchNumberOnly
	}
	return result, nil
}

// ExtractTicketToken pulls a ticket-number candidate out of the body,
// trying explicit "ticket <id>" phrasing, then "#<id>", then a bare
// digit-bearing token.
func ExtractTicketToken(body string) string {
	if m := ticketPhrasePattern.FindStringSubmatch(body); m != nil {
		return normalizeToken(m[1])
	}
	if m := hashTokenPattern.FindStringSubmatch(body); m != nil {
		return normalizeToken(m[1])
	}
	for _, m := range bareTokenPattern.FindAllStringSubmatch(body, -1) {
		if len(m[1]) >= 3 {
			return normalizeToken(m[1])
		}
	}
	return ""
}

func normalizeToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

// Classify runs the case-insensitive keyword sets over the body. The checks
// are independent on purpose.
func Classify(body string) Intent {
	normalized := " " + strings.ToLower(strings.TrimSpace(body)) + " "
	words := tokenize(normalized)

	var intent Intent
	for _, keyword := range pickupKeywords {
		if strings.Contains(keyword, " ") {
			if strings.Contains(normalized, keyword) {
				intent.PickupRequest = true
				break
			}
			continue
		}
		if _, ok := words[keyword]; ok {
			intent.PickupRequest = true
			break
		}
	}
	for word := range words {
		if _, ok := affirmativeWords[word]; ok {
			intent.Affirmative = true
		}
		if _, ok := negativeWords[word]; ok {
			intent.Negative = true
		}
	}
	return intent
}

func tokenize(normalized string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(normalized, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		words[field] = struct{}{}
	}
	return words
}
