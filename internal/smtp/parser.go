package smtp

import (
	"io"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jhillyerd/enmime"
	"github.com/welldanyogia/icd-messaging-backend/internal/attachment"
)

const (
	noSubject = "(no subject)"
	noContent = "(no content)"
)

var (
	fromPattern   = regexp.MustCompile(`^(?:"?([^"<]*?)"?\s*<)?([^<>\s]+@[^<>\s]+)>?$`)
	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
)

// ParsedEmail is the part of an inbound mail that becomes a message
type ParsedEmail struct {
	SenderEmail string
	SenderName  string
	Subject     string
	Body        string
	Attachments []ParsedAttachment
}

// ParsedAttachment is a decoded MIME part carrying a file name
type ParsedAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Size is the decoded length in bytes
func (a ParsedAttachment) Size() int64 {
	return int64(len(a.Content))
}

// ParseEmail reads a raw RFC 5322 message
func ParseEmail(r io.Reader) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedEmail{
		Subject: strings.TrimSpace(env.GetHeader("Subject")),
		Body:    strings.TrimSpace(env.Text),
	}
	if parsed.Body == "" && env.HTML != "" {
		parsed.Body = strings.Join(strings.Fields(stripHTMLTags(env.HTML)), " ")
	}

	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		parsed.SenderName, parsed.SenderEmail = from[0].Name, from[0].Address
	} else {
		parsed.SenderName, parsed.SenderEmail = parseFromHeader(env.GetHeader("From"))
	}
	parsed.SenderEmail = strings.ToLower(parsed.SenderEmail)

	parts := append(env.Attachments, env.Inlines...)
	for _, p := range parts {
		if p.FileName == "" {
			continue
		}
		parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
			Filename:    p.FileName,
			ContentType: contentTypeOf(p.ContentType, p.Content),
			Content:     p.Content,
		})
	}

	return parsed, nil
}

// File wraps the attachment for embedding
func (a ParsedAttachment) File() *attachment.File {
	return attachment.NewFile(a.Filename, a.ContentType, a.Content)
}

// SelectAttachment picks the first attachment a message may carry and returns the rest as dropped
func SelectAttachment(atts []ParsedAttachment) (*ParsedAttachment, []ParsedAttachment) {
	var (
		chosen  *ParsedAttachment
		dropped []ParsedAttachment
	)
	for i, a := range atts {
		if chosen == nil && attachment.Validate(a.Filename, a.ContentType, a.Size()) == nil {
			chosen = &atts[i]
			continue
		}
		dropped = append(dropped, a)
	}
	return chosen, dropped
}

// contentTypeOf trusts the declared type unless it is missing or generic
func contentTypeOf(declared string, content []byte) string {
	ct := attachment.NormalizeType(declared)
	if ct == "" || ct == "application/octet-stream" {
		ct = attachment.NormalizeType(mimetype.Detect(content).String())
	}
	return ct
}

// parseFromHeader extracts name and email from a From header net/mail could not parse
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	if m := fromPattern.FindStringSubmatch(from); len(m) >= 3 {
		return strings.Trim(strings.TrimSpace(m[1]), `"`), strings.TrimSpace(m[2])
	}
	return "", from
}

// stripHTMLTags removes markup and decodes common entities
func stripHTMLTags(html string) string {
	html = scriptPattern.ReplaceAllString(html, "")
	html = stylePattern.ReplaceAllString(html, "")
	html = tagPattern.ReplaceAllString(html, " ")

	return strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(html)
}
