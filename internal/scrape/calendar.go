package scrape

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	httpclient "acu-chatbot/internal/common/http"
	"acu-chatbot/internal/common/logger"
)

var calendarYearRe = regexp.MustCompile(`(\d{4})[\s\-\/]+(\d{4})`)

// CalendarScraper collects the academic-calendar archive: year-keyed PDF
// links from the archive page. The newest year is duplicated under the
// "current" key.
type CalendarScraper struct {
	client *httpclient.Client
	url    string
	logger logger.Logger
}

func NewCalendarScraper(client *httpclient.Client, url string, log logger.Logger) *CalendarScraper {
	return &CalendarScraper{client: client, url: url, logger: log}
}

// ScrapeCalendars returns a map of "2024-2025"-style year keys to archive
// URLs.
func (s *CalendarScraper) ScrapeCalendars(ctx context.Context) (map[string]string, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("calendar archive fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar archive returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("calendar archive parse failed: %w", err)
	}

	calendars := make(map[string]string)
	for _, a := range findAll(doc, "a") {
		href := attr(a, "href")
		text := nodeText(a)
		if href == "" || !strings.Contains(strings.ToLower(text), "akademik takvim") {
			continue
		}
		m := calendarYearRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		key := m[1] + "-" + m[2]
		calendars[key] = resolveURL(s.url, href)
	}

	if len(calendars) == 0 {
		return nil, fmt.Errorf("no calendar links found in archive")
	}

	years := make([]string, 0, len(calendars))
	for key := range calendars {
		years = append(years, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	calendars["current"] = calendars[years[0]]

	s.logger.Info("calendar archive scraped", map[string]interface{}{
		"years": len(years),
	})
	return calendars, nil
}
