package tarotbar

import "strings"

// Prompt templates. Placeholders in the {name} format are substituted
// verbatim by renderPrompt; double braces belong to the JSON examples
// and are never touched.

const basicSystemPrompt = `You are a tarot reader working behind the bar of a small cocktail lounge.
Draw exactly one tarot card for the guest and pair it with one drink that
matches the card's meaning.

Respond with a single JSON object and nothing else, in exactly this shape:
{"card": {"name": "...", "orientation": "upright|reversed", "meaning": "..."},
 "interpretation": "...",
 "drink": {"name": "...", "reason": "..."}}`

const basicUserPrompt = `Draw one card for me and recommend a drink to go with it.`

const premiumSystemPrompt = `You are a tarot reader working behind the bar of a small cocktail lounge.
Lay out a three-card spread for the guest: past, present and future, in that
order. Interpret the spread as a whole and pair each card with one drink that
matches its meaning.

Respond with a single JSON object and nothing else, in exactly this shape:
{"cards": [{"name": "...", "orientation": "upright|reversed", "meaning": "..."},
           {"name": "...", "orientation": "upright|reversed", "meaning": "..."},
           {"name": "...", "orientation": "upright|reversed", "meaning": "..."}],
 "interpretation": "...",
 "drinks": [{"name": "...", "reason": "..."},
            {"name": "...", "reason": "..."},
            {"name": "...", "reason": "..."}]}
The "cards" and "drinks" arrays must each hold exactly three entries, in
past/present/future order.`

const premiumUserPrompt = `My birth date: {context}. Lay out the spread and recommend the drinks.`

// renderPrompt substitutes {key} placeholders. Plain string replacement
// keeps the literal braces of the embedded JSON examples intact.
func renderPrompt(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// basicMessages builds the chat messages for a basic reading request.
func basicMessages() []Message {
	return []Message{
		{Role: "system", Content: basicSystemPrompt},
		{Role: "user", Content: basicUserPrompt},
	}
}

// premiumMessages builds the chat messages for a premium reading
// request with the given user context.
func premiumMessages(context string) []Message {
	return []Message{
		{Role: "system", Content: premiumSystemPrompt},
		{Role: "user", Content: renderPrompt(premiumUserPrompt, map[string]string{"context": context})},
	}
}
