package services

import (
	"reflect"
	"testing"
)

func TestParseMentions(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []Mention
	}{
		{
			name: "plain text tokens",
			body: "@card please review, cc @Alice@Example.com and @board.",
			want: []Mention{
				{Kind: MentionCard},
				{Kind: MentionUser, Email: "alice@example.com"},
				{Kind: MentionBoard},
			},
		},
		{
			name: "duplicates collapse in first-seen order",
			body: "@bob@example.com @card @BOB@example.com @card",
			want: []Mention{
				{Kind: MentionUser, Email: "bob@example.com"},
				{Kind: MentionCard},
			},
		},
		{
			name: "invalid tokens ignored",
			body: "email me at bob@example.com or @ or @not-an-email",
			want: nil,
		},
		{
			name: "rich text mention nodes",
			body: `{"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"mention","attrs":{"id":"@board"}},
				{"type":"text","text":" and "},
				{"type":"mention","attrs":{"id":"carol@example.com"}},
				{"type":"text","text":" see @card"}
			]}]}`,
			want: []Mention{
				{Kind: MentionBoard},
				{Kind: MentionUser, Email: "carol@example.com"},
				{Kind: MentionCard},
			},
		},
		{
			name: "broken json falls back to text",
			body: `{"type": "doc" @card`,
			want: []Mention{{Kind: MentionCard}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseMentions(tc.body)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseMentions() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestMentionString(t *testing.T) {
	if got := (Mention{Kind: MentionBoard}).String(); got != "@board" {
		t.Fatalf("board mention = %q", got)
	}
	if got := (Mention{Kind: MentionUser, Email: "a@b.io"}).String(); got != "@a@b.io" {
		t.Fatalf("user mention = %q", got)
	}
}
