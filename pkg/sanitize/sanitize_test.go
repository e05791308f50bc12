package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain text unchanged", "hello world", "hello world"},
		{"strips tags", "<b>bold</b> text", "bold text"},
		{"strips script entirely", "before<script>alert(1)</script>after", "beforeafter"},
		{"trims whitespace", "  padded  ", "padded"},
		{"decodes entities", "fish &amp; chips", "fish & chips"},
		{"strips nested markup", "<div><p>para</p></div>", "para"},
		{"strips entity-encoded markup", "&lt;b&gt;hi&lt;/b&gt;", "hi"},
		{"strips entity-encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;hello", "hello"},
		{"strips double-encoded markup", "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;safe", "safe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestTextTruncates(t *testing.T) {
	long := strings.Repeat("a", MaxTextLength+500)
	got := Text(long)
	assert.Len(t, got, MaxTextLength)
}

func TestTextTruncatesOnRuneBoundary(t *testing.T) {
	// "é" is two bytes; the leading "a" misaligns the byte limit so a
	// naive byte cut would split the final rune.
	long := "a" + strings.Repeat("é", MaxTextLength/2)
	got := Text(long)

	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), MaxTextLength)
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"plain",
		"<b>markup</b> and &amp; entity",
		"&lt;b&gt;hi&lt;/b&gt;",
		"&lt;script&gt;alert(1)&lt;/script&gt;hello",
		"  spaced  ",
		strings.Repeat("x", MaxTextLength+100),
	}

	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "input %q", in)
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"valid", "user@example.com", "user@example.com"},
		{"lowercased", "User@Example.COM", "user@example.com"},
		{"trimmed", "  user@example.com  ", "user@example.com"},
		{"plus addressing", "user+tag@example.com", "user+tag@example.com"},
		{"subdomain", "a@mail.example.co", "a@mail.example.co"},
		{"empty", "", ""},
		{"no at sign", "userexample.com", ""},
		{"no tld", "user@example", ""},
		{"one letter tld", "user@example.c", ""},
		{"embedded space", "us er@example.com", ""},
		{"markup stripped then invalid", "<b>user</b>@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Email(tt.input))
		})
	}
}

func TestContainsXSS(t *testing.T) {
	positives := []string{
		"<script>alert(1)</script>",
		"<SCRIPT src=x>",
		"<iframe src=evil>",
		"click javascript:alert(1)",
		"<img onerror=alert(1)>",
		"onload = doEvil()",
		"eval(payload)",
		"data:text/html;base64,xxx",
	}
	for _, s := range positives {
		assert.True(t, ContainsXSS(s), "should flag %q", s)
	}

	negatives := []string{
		"",
		"a normal chat message",
		"I used the script tag in my blog post title",
		"evaluation of the results",
		"my onboarding = smooth",
	}
	for _, s := range negatives {
		assert.False(t, ContainsXSS(s), "should not flag %q", s)
	}
}

func TestContainsSQLInjection(t *testing.T) {
	positives := []string{
		"' OR '1'='1",
		"1 or 1=1",
		"UNION SELECT password FROM users",
		"; drop table users",
		"admin'--",
		"exec(xp_cmdshell)",
		"1; WAITFOR DELAY '0:0:5'",
	}
	for _, s := range positives {
		assert.True(t, ContainsSQLInjection(s), "should flag %q", s)
	}

	negatives := []string{
		"",
		"please select a time that works for you",
		"I want to update my portfolio",
		"drop me a line",
		"union membership question",
	}
	for _, s := range negatives {
		assert.False(t, ContainsSQLInjection(s), "should not flag %q", s)
	}
}
