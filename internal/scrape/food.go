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

const (
	// SourceFood is the live source name the daily menu is registered under.
	SourceFood = "food"

	menuUnavailable = "🍽️ Şu an yemek bilgisi alınamıyor. Lütfen üniversite web sitesini kontrol edin."
	menuWeekend     = "🍽️ **Hafta Sonu:** Yemekhane bugün kapalı. Pazartesi görüşmek üzere! 😊"
)

// FoodScraper pulls the daily cafeteria menu from the campus food page.
type FoodScraper struct {
	client *httpclient.Client
	url    string
	logger logger.Logger
}

func NewFoodScraper(client *httpclient.Client, url string, log logger.Logger) *FoodScraper {
	return &FoodScraper{client: client, url: url, logger: log}
}

func (s *FoodScraper) Name() string { return SourceFood }

// Fetch returns the formatted menu of the day. The page keeps the current
// day in the second table cell; a "KAPAL" marker or weekend note means the
// cafeteria is closed, which is a successful answer, not a failure.
func (s *FoodScraper) Fetch(ctx context.Context) (string, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return "", fmt.Errorf("food page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("food page returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("food page parse failed: %w", err)
	}

	tds := findAll(doc, "td")
	if len(tds) < 2 {
		return "", fmt.Errorf("food page table missing or empty")
	}

	lines := nodeLines(tds[1])
	if len(lines) == 0 {
		return "", fmt.Errorf("food page menu cell empty")
	}
	menu := strings.Join(lines, "\n")

	if strings.Contains(menu, "KAPAL") || strings.Contains(strings.ToLower(menu), "hafta sonu") {
		return menuWeekend, nil
	}

	return fmt.Sprintf("🍽️ **Günün Menüsü:**\n\n%s\n\nAfiyet olsun! 😋", menu), nil
}
