package services

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"

	"taskboard-api/utils"
)

type MentionKind int

const (
	// MentionUser targets one user by email.
	MentionUser MentionKind = iota
	// MentionCard targets the task's assignee and creator.
	MentionCard
	// MentionBoard targets every member of the task's project.
	MentionBoard
)

const (
	tokenCard  = "card"
	tokenBoard = "board"
)

type Mention struct {
	Kind  MentionKind
	Email string
}

func (m Mention) String() string {
	switch m.Kind {
	case MentionCard:
		return "@" + tokenCard
	case MentionBoard:
		return "@" + tokenBoard
	}
	return "@" + m.Email
}

// ParseMentions extracts mention targets from a comment body. The body is
// either plain text or a rich-text JSON document whose "mention" nodes carry
// the target in attrs.id. Text tokens are "@card", "@board" or "@<email>".
// The result holds each target once, in first-seen order.
func ParseMentions(body string) []Mention {
	p := &mentionParser{seen: make(map[Mention]struct{})}

	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var doc any
		if err := json.Unmarshal([]byte(trimmed), &doc); err == nil {
			p.walk(doc)
			return p.out
		}
	}

	p.scanText(body)
	return p.out
}

type mentionParser struct {
	out  []Mention
	seen map[Mention]struct{}
}

func (p *mentionParser) add(token string) {
	m, ok := classifyMentionToken(token)
	if !ok {
		return
	}
	if _, dup := p.seen[m]; dup {
		return
	}
	p.seen[m] = struct{}{}
	p.out = append(p.out, m)
}

func (p *mentionParser) walk(node any) {
	switch v := node.(type) {
	case map[string]any:
		if t, _ := v["type"].(string); t == "mention" {
			if attrs, ok := v["attrs"].(map[string]any); ok {
				if id, ok := attrs["id"].(string); ok {
					p.add(strings.TrimPrefix(id, "@"))
				}
			}
			return
		}
		if text, ok := v["text"].(string); ok {
			p.scanText(text)
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			if key == "text" || key == "attrs" {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			p.walk(v[key])
		}
	case []any:
		for _, child := range v {
			p.walk(child)
		}
	}
}

func (p *mentionParser) scanText(text string) {
	for _, field := range strings.FieldsFunc(text, unicode.IsSpace) {
		if !strings.HasPrefix(field, "@") {
			continue
		}
		p.add(strings.TrimRight(field[1:], ".,;:!?)]}\"'"))
	}
}

func classifyMentionToken(token string) (Mention, bool) {
	token = utils.NormalizeEmail(token)
	switch token {
	case "":
		return Mention{}, false
	case tokenCard:
		return Mention{Kind: MentionCard}, true
	case tokenBoard:
		return Mention{Kind: MentionBoard}, true
	}
	if !utils.ValidateEmail(token) {
		return Mention{}, false
	}
	return Mention{Kind: MentionUser, Email: token}, true
}
