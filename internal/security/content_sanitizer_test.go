package security

import (
	"strings"
	"testing"
)

// 許可タグがそのまま通過することを検証
func TestSanitize_AllowedTags(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"paragraph", "<p>こんにちは</p>", "<p>"},
		{"line break", "一行目<br>二行目", "<br"},
		{"unordered list", "<ul><li>項目1</li><li>項目2</li></ul>", "<ul>"},
		{"ordered list", "<ol><li>手順1</li></ol>", "<ol>"},
		{"blockquote", "<blockquote>引用文</blockquote>", "<blockquote>"},
		{"code block", "<pre><code>fmt.Println(1)</code></pre>", "<code>"},
		{"emphasis", "<strong>重要</strong>と<em>強調</em>", "<strong>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if !strings.Contains(got, tt.want) {
				t.Errorf("Sanitize(%q) = %q, expected %q to survive", tt.input, got, tt.want)
			}
		})
	}
}

// 危険なタグと属性が除去されることを検証
func TestSanitize_StripsDangerousMarkup(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name      string
		input     string
		forbidden string
	}{
		{"script tag", `<p>hello</p><script>alert("xss")</script>`, "<script"},
		{"iframe tag", `<iframe src="https://evil.example.com"></iframe>`, "<iframe"},
		{"style tag", `<style>body{display:none}</style>`, "<style"},
		{"onclick attribute", `<p onclick="steal()">text</p>`, "onclick"},
		{"onerror attribute", `<img src="x" onerror="steal()">`, "onerror"},
		{"javascript href", `<a href="javascript:alert(1)">link</a>`, "javascript:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if strings.Contains(got, tt.forbidden) {
				t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, tt.forbidden)
			}
		})
	}
}

// httpsリンクにtarget/relが付与されることを検証
func TestSanitize_ExternalLinks(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<a href="https://example.com/page">参考リンク</a>`)

	if !strings.Contains(got, `href="https://example.com/page"`) {
		t.Errorf("https href should survive: %q", got)
	}
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("target=_blank should be added: %q", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("rel=noopener noreferrer should be added: %q", got)
	}
}

// https以外のスキームのリンクが除去されることを検証
func TestSanitize_RejectsNonHTTPSLinks(t *testing.T) {
	s := NewContentSanitizer()

	for _, input := range []string{
		`<a href="http://example.com">平文リンク</a>`,
		`<a href="ftp://example.com/file">FTP</a>`,
		`<a href="/relative/path">相対パス</a>`,
	} {
		got := s.Sanitize(input)
		if strings.Contains(got, "href=") {
			t.Errorf("Sanitize(%q) = %q, href should be stripped", input, got)
		}
	}
}

// 空文字列に空文字列が返ることを検証
func TestSanitize_EmptyInput(t *testing.T) {
	s := NewContentSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty string", got)
	}
}

// 同一入力に対して常に同一出力が返ることを検証
func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>本文<script>x()</script><a href="https://example.com">link</a></p>`
	first := s.Sanitize(input)
	second := s.Sanitize(first)

	if first != second {
		t.Errorf("sanitizing twice changed output: %q vs %q", first, second)
	}
}

// プレーンテキストが変更されないことを検証
func TestSanitize_PlainTextUntouched(t *testing.T) {
	s := NewContentSanitizer()

	input := "タグを含まない普通の本文です。"
	if got := s.Sanitize(input); got != input {
		t.Errorf("Sanitize(%q) = %q, want unchanged", input, got)
	}
}
