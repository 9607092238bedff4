package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	httpclient "acu-chatbot/internal/common/http"
	"acu-chatbot/internal/common/logger"
)

// SourceLibrary is the live source name for library status.
const SourceLibrary = "library"

var (
	hoursKeywords   = []string{"çalışma saati", "mesai", "açık", "kapalı"}
	contactKeywords = []string{"tel:", "telefon", "0466", "0 466"}
)

// LibraryScraper pulls opening hours, contact info and recent announcements
// from the library site front page.
type LibraryScraper struct {
	client  *httpclient.Client
	baseURL string
	logger  logger.Logger
}

func NewLibraryScraper(client *httpclient.Client, baseURL string, log logger.Logger) *LibraryScraper {
	return &LibraryScraper{client: client, baseURL: strings.TrimRight(baseURL, "/"), logger: log}
}

func (s *LibraryScraper) Name() string { return SourceLibrary }

func (s *LibraryScraper) Fetch(ctx context.Context) (string, error) {
	resp, err := s.client.Get(ctx, s.baseURL)
	if err != nil {
		return "", fmt.Errorf("library page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("library page returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("library page parse failed: %w", err)
	}

	hours := s.findShortText(doc, hoursKeywords, 200)
	contact := s.findShortText(doc, contactKeywords, 100)
	announcements := s.findAnnouncements(doc)

	var b strings.Builder
	b.WriteString("📚 **AÇÜ Kütüphanesi**\n")
	if hours != "" {
		fmt.Fprintf(&b, "\n🕐 **Çalışma Saatleri:** %s\n", hours)
	}
	fmt.Fprintf(&b, "\n🔍 **Online Katalog:** %s/yordam", s.baseURL)
	if contact != "" {
		fmt.Fprintf(&b, "\n📞 **İletişim:** %s", contact)
	}
	if len(announcements) > 0 {
		b.WriteString("\n\n📢 **Son Duyurular:**")
		for _, a := range announcements {
			fmt.Fprintf(&b, "\n• %s", a)
		}
	}
	fmt.Fprintf(&b, "\n\n🌐 Web: %s", s.baseURL)
	return b.String(), nil
}

// findShortText returns the first text block under a content tag that
// contains one of the keywords and stays under maxLen runes. The length
// bound keeps whole-page containers from matching.
func (s *LibraryScraper) findShortText(doc *html.Node, keywords []string, maxLen int) string {
	for _, tag := range []string{"p", "span", "li", "div"} {
		for _, n := range findAll(doc, tag) {
			text := nodeText(n)
			if len([]rune(text)) >= maxLen {
				continue
			}
			lowered := strings.ToLower(text)
			for _, kw := range keywords {
				if strings.Contains(lowered, kw) {
					return text
				}
			}
		}
	}
	return ""
}

func (s *LibraryScraper) findAnnouncements(doc *html.Node) []string {
	var out []string
	for _, a := range findAll(doc, "a") {
		href := attr(a, "href")
		title := nodeText(a)
		if href == "" || len([]rune(title)) < 8 {
			continue
		}
		lowered := strings.ToLower(href)
		matched := false
		for _, kw := range []string{"haber", "duyuru", "etkinlik", "news"} {
			if strings.Contains(lowered, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		out = append(out, fmt.Sprintf("%s\n  %s", title, absoluteURL(s.baseURL, href)))
		if len(out) >= 3 {
			break
		}
	}
	return out
}
