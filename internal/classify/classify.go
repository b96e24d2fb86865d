// Package classify detects structured content in raw clipboard strings:
// links, emails, phone numbers, and color values. Everything else is text.
package classify

import (
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/mazznoer/csscolorparser"

	"github.com/clipdex/clipdex/internal/types"
)

// Common protocols accepted as links. Exotic schemes like javascript:,
// data:, or custom-app:// are rejected to avoid misclassifying non-web
// content as clickable links.
var linkProtocols = []string{"http://", "https://", "ftp://", "ftps://"}

const maxURLLen = 2000

// Loose phone shape; digit count is validated separately.
var phonePattern = regexp.MustCompile(`^\+?[\d\s\-().]{7,20}$`)

// Class is the recognition outcome. Emails and phone numbers are stored as
// text items (they share the text child row) but keep their classification
// for display purposes.
type Class int

const (
	ClassText Class = iota
	ClassLink
	ClassEmail
	ClassPhone
	ClassColor
)

// Detect classifies text into a tagged content value. Every input produces
// a classification; plain text preserves the original string byte-for-byte.
func Detect(text string) types.Content {
	content, _ := Classify(text)
	return content
}

// Classify applies the recognition order: mailto, color, link, email,
// phone, then plain text. First match wins.
func Classify(text string) (types.Content, Class) {
	trimmed := strings.TrimSpace(text)

	// mailto: URLs first — strip the scheme and any query string
	if len(trimmed) >= 7 && strings.EqualFold(trimmed[:7], "mailto:") {
		address := trimmed[7:]
		if i := strings.IndexByte(address, '?'); i >= 0 {
			address = address[:i]
		}
		return types.TextContent{Value: address}, ClassEmail
	}

	// Colors before URLs since some color formats might look URL-ish
	if rgba, ok := ParseColorRGBA(trimmed); ok {
		return types.ColorContent{Value: trimmed, RGBA: rgba}, ClassColor
	}

	if isValidURL(trimmed) {
		return types.LinkContent{
			URL:      trimmed,
			Metadata: types.LinkMetadata{State: types.LinkPending},
		}, ClassLink
	}

	if govalidator.IsEmail(trimmed) {
		return types.TextContent{Value: trimmed}, ClassEmail
	}

	if isPhone(trimmed) {
		return types.TextContent{Value: trimmed}, ClassPhone
	}

	return types.TextContent{Value: text}, ClassText
}

// isValidURL accepts only common web protocols with sane structure.
func isValidURL(text string) bool {
	if len(text) > maxURLLen || strings.ContainsRune(text, '\n') {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range linkProtocols {
		if strings.HasPrefix(lower, p) {
			// The validator only knows lower-case schemes and has no ftps,
			// so the structure after the accepted scheme is checked under
			// a plain http:// prefix.
			return govalidator.IsURL("http://" + text[len(p):])
		}
	}
	return false
}

// isPhone matches a loose digit/punctuation pattern with 7-15 digits.
func isPhone(text string) bool {
	if !phonePattern.MatchString(text) {
		return false
	}
	digits := 0
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

// ParseColorRGBA parses explicit color formats (hex, rgb(), hsl()) to a
// packed 0xRRGGBBAA. Bare color names like "red" are rejected.
func ParseColorRGBA(text string) (uint32, bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(trimmed, "#") &&
		!strings.HasPrefix(lower, "rgb") &&
		!strings.HasPrefix(lower, "hsl") {
		return 0, false
	}
	c, err := csscolorparser.Parse(trimmed)
	if err != nil {
		return 0, false
	}
	r, g, b, a := c.RGBA255()
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a), true
}
