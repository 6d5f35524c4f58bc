package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// LogoURL is the hosted brand logo shown in the email header.
const LogoURL = "https://yotxgvtqhjonujoiebno.supabase.co/storage/v1/object/public/email-assets/logo.png?v=1"

// ConfirmationURL builds the GoTrue verify link for a token hash. The user
// always lands on the production site after verifying.
func ConfirmationURL(supabaseURL, tokenHash, actionType, redirectTo string) string {
	return fmt.Sprintf("%s/auth/v1/verify?token=%s&type=%s&redirect_to=%s",
		strings.TrimSuffix(supabaseURL, "/"),
		url.QueryEscape(tokenHash),
		url.QueryEscape(actionType),
		url.QueryEscape(redirectTo),
	)
}

// Confirmation holds the values rendered into the confirmation email.
type Confirmation struct {
	ConfirmationURL string
	SiteURL         string
	Subject         string
	Year            int
}

// Rendered is an email body in both HTML and plain text.
type Rendered struct {
	HTML string
	Text string
}

const confirmationHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="background-color:#f7f9f7;font-family:Arial,sans-serif;padding:20px">
<div style="display:none">{{.Subject}}</div>
<div style="max-width:600px;margin:0 auto;background-color:white;border-radius:8px;overflow:hidden">
  <div style="background-color:#0a7e3a;color:white;padding:25px 20px;text-align:center">
    <img src="{{.Logo}}" alt="SokoniArena Logo" width="80" height="80" style="margin:0 auto 10px auto;display:block;border-radius:8px">
    <p style="font-size:18px;margin:5px 0;color:white">SokoniArena</p>
    <p style="font-size:14px;margin:0;color:white">Welcome to our community</p>
  </div>
  <div style="padding:30px">
    <h1 style="color:#1a3c2a;font-size:20px;margin-top:0;margin-bottom:20px">Complete Your Signup</h1>
    <p>Hello,</p>
    <p>You&#39;re almost done setting up your SokoniArena profile. Please click below to finish:</p>
    <p style="text-align:center;margin:25px 0">
      <a href="{{.ConfirmationURL}}" style="display:inline-block;background-color:#0da34d;color:white;text-decoration:none;padding:12px 24px;border-radius:6px;font-weight:bold">Complete Signup</a>
    </p>
    <p>If the link doesn&#39;t work, copy and paste this into your browser:</p>
    <p style="background-color:#f5f5f5;padding:12px;border-radius:4px;font-family:monospace;font-size:13px;word-break:break-all">{{.ConfirmationURL}}</p>
    <hr style="border-color:#eee;margin:25px 0">
    <p style="background-color:#f0f8f3;padding:15px;border-radius:6px">Questions? Contact our team for assistance.</p>
    <p>If you didn&#39;t request this, you can disregard this message.</p>
    <p>Sincerely,</p>
    <p>SokoniArena</p>
  </div>
  <div style="background-color:#f8fbf9;padding:20px;text-align:center;color:#666;font-size:14px">
    <p>&copy; {{.Year}} SokoniArena</p>
    <p><a href="{{.SiteURL}}" style="color:#0a7e3a">Visit Site</a> <a href="{{.SiteURL}}/terms" style="color:#0a7e3a">Terms</a></p>
    <p>Nairobi</p>
  </div>
</div>
</body>
</html>
`

// Renderer renders the confirmation email.
type Renderer struct {
	tmpl *template.Template
	md   *converter.Converter
	now  func() time.Time
}

// NewRenderer parses the built-in template.
func NewRenderer() *Renderer {
	return &Renderer{
		tmpl: template.Must(template.New("confirmation").Parse(confirmationHTML)),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		now: time.Now,
	}
}

// Render produces the HTML body and its plain-text alternative.
func (r *Renderer) Render(c Confirmation) (Rendered, error) {
	if c.Year == 0 {
		c.Year = r.now().Year()
	}

	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, struct {
		Confirmation
		Logo string
	}{c, LogoURL})
	if err != nil {
		return Rendered{}, fmt.Errorf("render confirmation email: %w", err)
	}

	text, err := r.md.ConvertString(buf.String())
	if err != nil {
		return Rendered{}, fmt.Errorf("convert email to text: %w", err)
	}
	return Rendered{HTML: buf.String(), Text: text}, nil
}
