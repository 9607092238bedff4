package scrape

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acu-chatbot/internal/common/logger"
)

func labTableHTML(rows int) string {
	var b strings.Builder
	b.WriteString(`<html><body><table id="datatable_ajax"><tbody>`)
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, `<tr>
			<td>Cihaz %d</td><td>Mühendislik</td><td>E%d</td><td>%d</td>
			<td>Rigol</td><td>-</td><td>-</td><td>Lab Sorumlusu</td>
		</tr>`, i, i, i+1)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

func TestLabScraper_ScrapeDevices(t *testing.T) {
	srv := testServer(t, labTableHTML(6))

	s := NewLabScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	catalog, err := s.ScrapeDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 6)

	d, ok := catalog["cihaz 0"]
	require.True(t, ok)
	assert.Equal(t, "Cihaz 0", d.OriginalName)
	assert.Contains(t, d.Description, "Birim: Mühendislik")
	assert.Contains(t, d.Description, "Marka: Rigol")
	assert.Equal(t, "Adet: 1", d.Stock)
}

func TestLabScraper_TooFewDevicesIsError(t *testing.T) {
	srv := testServer(t, labTableHTML(2))

	s := NewLabScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	_, err := s.ScrapeDevices(context.Background())
	assert.Error(t, err)
}

func TestLabScraper_SkipsShortAndNamelessRows(t *testing.T) {
	body := labTableHTML(5)
	body = strings.Replace(body, "</tbody>", `<tr><td></td><td>x</td><td>x</td><td>1</td><td>x</td><td>-</td><td>-</td><td>x</td></tr>
		<tr><td>eksik</td></tr></tbody>`, 1)
	srv := testServer(t, body)

	s := NewLabScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	catalog, err := s.ScrapeDevices(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog, 5)
}
