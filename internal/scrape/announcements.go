package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	httpclient "acu-chatbot/internal/common/http"
	"acu-chatbot/internal/common/logger"
)

// SourceAnnouncements is the live source name for campus announcements.
const SourceAnnouncements = "announcements"

const maxAnnouncements = 5

// AnnouncementScraper pulls the latest announcements from the campus news
// page.
type AnnouncementScraper struct {
	client  *httpclient.Client
	baseURL string
	url     string
	logger  logger.Logger
}

func NewAnnouncementScraper(client *httpclient.Client, baseURL string, log logger.Logger) *AnnouncementScraper {
	return &AnnouncementScraper{
		client:  client,
		baseURL: baseURL,
		url:     strings.TrimRight(baseURL, "/") + "/tr/duyurular",
		logger:  log,
	}
}

func (s *AnnouncementScraper) Name() string { return SourceAnnouncements }

// Fetch returns the latest announcements as a numbered list with links.
func (s *AnnouncementScraper) Fetch(ctx context.Context) (string, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return "", fmt.Errorf("announcements fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("announcements page returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("announcements page parse failed: %w", err)
	}

	type item struct {
		title string
		href  string
	}
	var items []item
	for _, a := range findAll(doc, "a") {
		href := attr(a, "href")
		title := nodeText(a)
		if href == "" || len([]rune(title)) <= 10 {
			continue
		}
		lowered := strings.ToLower(href)
		if !strings.Contains(lowered, "duyuru") && !strings.Contains(lowered, "haber") {
			continue
		}
		items = append(items, item{title: title, href: absoluteURL(s.baseURL, href)})
		if len(items) >= maxAnnouncements {
			break
		}
	}

	if len(items) == 0 {
		return "", fmt.Errorf("no announcements found on page")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📢 **Son Duyurular** (%s)\n", time.Now().Format("02.01.2006"))
	for i, it := range items {
		fmt.Fprintf(&b, "\n%d. %s\n   %s", i+1, it.title, it.href)
	}
	fmt.Fprintf(&b, "\n\n🔗 Tüm duyurular: %s", s.url)
	return b.String(), nil
}
