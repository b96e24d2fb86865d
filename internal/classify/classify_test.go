package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipdex/clipdex/internal/types"
)

func TestClassifyLinks(t *testing.T) {
	for _, url := range []string{
		"http://example.com",
		"https://example.com",
		"ftp://files.example.com/doc.pdf",
		"ftps://files.example.com/doc.pdf",
		"HTTPS://EXAMPLE.COM",
	} {
		content, class := Classify(url)
		assert.Equal(t, ClassLink, class, "expected link for %q", url)
		assert.Equal(t, types.KindLink, content.Kind())
	}
}

func TestClassifyExoticSchemesRejected(t *testing.T) {
	for _, s := range []string{
		"javascript:alert(1)",
		"data:text/html,<h1>hi</h1>",
		"custom-app://open/path",
		"file:///etc/passwd",
		"blob:https://example.com/uuid",
	} {
		_, class := Classify(s)
		assert.NotEqual(t, ClassLink, class, "%q must not classify as link", s)
	}
}

func TestClassifyLinkLimits(t *testing.T) {
	// Newlines disqualify a URL
	_, class := Classify("https://example.com/\npath")
	assert.NotEqual(t, ClassLink, class)

	// Over-long URLs disqualify too
	long := "https://example.com/"
	for len(long) <= 2000 {
		long += "aaaaaaaaaa"
	}
	_, class = Classify(long)
	assert.NotEqual(t, ClassLink, class)
}

func TestClassifyLinkStartsPending(t *testing.T) {
	content, _ := Classify("https://github.com/user/repo")
	link, ok := content.(types.LinkContent)
	require.True(t, ok)
	assert.Equal(t, types.LinkPending, link.Metadata.State)
}

func TestClassifyMailto(t *testing.T) {
	content, class := Classify("mailto:user@example.com")
	assert.Equal(t, ClassEmail, class)
	assert.Equal(t, "user@example.com", content.Text())

	// Query strings are stripped
	content, class = Classify("MAILTO:user@example.com?subject=hi")
	assert.Equal(t, ClassEmail, class)
	assert.Equal(t, "user@example.com", content.Text())
}

func TestClassifyEmail(t *testing.T) {
	_, class := Classify("user@example.com")
	assert.Equal(t, ClassEmail, class)
}

func TestClassifyPhone(t *testing.T) {
	for _, s := range []string{"+1 (555) 123-4567", "555-123-4567", "5551234567"} {
		_, class := Classify(s)
		assert.Equal(t, ClassPhone, class, "expected phone for %q", s)
	}
	for _, s := range []string{"123", "not a phone", "123456"} {
		_, class := Classify(s)
		assert.NotEqual(t, ClassPhone, class, "%q must not classify as phone", s)
	}
}

func TestClassifyColor(t *testing.T) {
	content, class := Classify("#FF5733")
	require.Equal(t, ClassColor, class)
	color, ok := content.(types.ColorContent)
	require.True(t, ok)
	assert.Equal(t, uint32(0xFF5733FF), color.RGBA)

	_, class = Classify("rgb(255, 87, 51)")
	assert.Equal(t, ClassColor, class)

	_, class = Classify("hsl(120, 50%, 50%)")
	assert.Equal(t, ClassColor, class)
}

func TestClassifyBareColorNamesRejected(t *testing.T) {
	_, class := Classify("red")
	assert.Equal(t, ClassText, class)
}

func TestClassifyPlainTextPreserved(t *testing.T) {
	input := "  Hello World  "
	content, class := Classify(input)
	assert.Equal(t, ClassText, class)
	assert.Equal(t, input, content.Text(), "plain text is preserved byte-for-byte")
}

func TestParseColorRGBALaw(t *testing.T) {
	// parse_color_to_rgba(#RRGGBB) = 0xRRGGBBFF
	cases := map[string]uint32{
		"#FF5733":   0xFF5733FF,
		"#000000":   0x000000FF,
		"#ffffff":   0xFFFFFFFF,
		"#00ff00":   0x00FF00FF,
		"#12345678": 0x12345678,
	}
	for in, want := range cases {
		got, ok := ParseColorRGBA(in)
		require.True(t, ok, "expected %q to parse", in)
		assert.Equal(t, want, got, "rgba for %q", in)
	}

	_, ok := ParseColorRGBA("red")
	assert.False(t, ok, "bare names are rejected")
}

func TestDetectDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		content := Detect("#FF5733")
		assert.Equal(t, types.KindColor, content.Kind())
	}
}
