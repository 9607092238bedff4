package scrape

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/net/html"

	httpclient "acu-chatbot/internal/common/http"
	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/devices"
	"acu-chatbot/internal/nlp"
)

// minExpectedDevices guards against a half-rendered inventory table
// silently shrinking the catalog.
const minExpectedDevices = 5

// LabScraper builds the device catalog from the lab inventory table. Rows
// carry: name, unit, lab, count, brand, .., .., responsible.
type LabScraper struct {
	client *httpclient.Client
	url    string
	logger logger.Logger
}

func NewLabScraper(client *httpclient.Client, url string, log logger.Logger) *LabScraper {
	return &LabScraper{client: client, url: url, logger: log}
}

// ScrapeDevices implements devices.Scraper.
func (s *LabScraper) ScrapeDevices(ctx context.Context) (map[string]devices.Device, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("lab inventory fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lab inventory returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lab inventory parse failed: %w", err)
	}

	catalog := make(map[string]devices.Device)
	for _, row := range findAll(doc, "tr") {
		cols := findAll(row, "td")
		if len(cols) < 8 {
			continue
		}
		name := nodeText(cols[0])
		if name == "" {
			continue
		}
		unit := nodeText(cols[1])
		lab := nodeText(cols[2])
		count := nodeText(cols[3])
		brand := nodeText(cols[4])
		responsible := nodeText(cols[7])

		catalog[nlp.Normalize(name)] = devices.Device{
			OriginalName: name,
			Description:  fmt.Sprintf("Birim: %s, Lab: %s, Marka: %s, Sorumlu: %s", unit, lab, brand, responsible),
			Stock:        fmt.Sprintf("Adet: %s", count),
		}
	}

	if len(catalog) < minExpectedDevices {
		return nil, fmt.Errorf("lab inventory too small: found %d devices, expected at least %d", len(catalog), minExpectedDevices)
	}

	s.logger.Info("lab inventory scraped", map[string]interface{}{
		"devices": len(catalog),
	})
	return catalog, nil
}
