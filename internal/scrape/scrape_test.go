package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "acu-chatbot/internal/common/http"
	"acu-chatbot/internal/common/logger"
)

func testServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient() *httpclient.Client {
	return httpclient.NewClient(5 * time.Second)
}

func TestFoodScraper_Fetch(t *testing.T) {
	srv := testServer(t, `<html><body><table>
		<tr><td>Dün</td><td>
			Mercimek Çorbası
			Tavuk Sote
			Pilav
			Ayran
		</td></tr>
	</table></body></html>`)

	s := NewFoodScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	text, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Günün Menüsü")
	assert.Contains(t, text, "Mercimek Çorbası")
	assert.Contains(t, text, "Ayran")
}

func TestFoodScraper_WeekendSentinel(t *testing.T) {
	srv := testServer(t, `<html><body><table>
		<tr><td>x</td><td>KAPALI</td></tr>
	</table></body></html>`)

	s := NewFoodScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	text, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Hafta Sonu")
}

func TestFoodScraper_MissingTableIsError(t *testing.T) {
	srv := testServer(t, `<html><body><p>bakım çalışması</p></body></html>`)

	s := NewFoodScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	_, err := s.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFoodScraper_ServerErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	s := NewFoodScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	_, err := s.Fetch(context.Background())
	assert.Error(t, err)
}

func TestAnnouncementScraper_Fetch(t *testing.T) {
	srv := testServer(t, `<html><body>
		<a href="/tr/duyuru/kayit-tarihleri">Kayıt yenileme tarihleri açıklandı</a>
		<a href="/tr/haber/bahar-senligi">Bahar şenliği programı duyuruldu</a>
		<a href="/tr/iletisim">İletişim</a>
		<a href="/tr/duyuru/kisa">kısa</a>
	</body></html>`)

	s := NewAnnouncementScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	text, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Son Duyurular")
	assert.Contains(t, text, "1. Kayıt yenileme tarihleri açıklandı")
	assert.Contains(t, text, "2. Bahar şenliği programı duyuruldu")
	// Non-announcement and too-short links excluded.
	assert.NotContains(t, text, "İletişim")
	assert.NotContains(t, text, "kısa")
}

func TestAnnouncementScraper_EmptyPageIsError(t *testing.T) {
	srv := testServer(t, `<html><body><p>boş sayfa</p></body></html>`)

	s := NewAnnouncementScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	_, err := s.Fetch(context.Background())
	assert.Error(t, err)
}

func TestLibraryScraper_Fetch(t *testing.T) {
	srv := testServer(t, `<html><body>
		<p>Çalışma saati: Hafta içi 08:30 - 22:00</p>
		<span>Telefon: 0466 215 10 00</span>
		<a href="/duyuru/yeni-veritabani">Yeni veritabanı aboneliği başladı</a>
	</body></html>`)

	s := NewLibraryScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	text, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "AÇÜ Kütüphanesi")
	assert.Contains(t, text, "08:30 - 22:00")
	assert.Contains(t, text, "0466 215 10 00")
	assert.Contains(t, text, "Yeni veritabanı aboneliği başladı")
	assert.Contains(t, text, "/yordam")
}

func TestWeatherScraper_Fetch(t *testing.T) {
	srv := testServer(t, `{
		"main": {"temp": 13.6, "feels_like": 12.1, "humidity": 78},
		"weather": [{"main": "Rain", "description": "hafif yağmurlu"}],
		"wind": {"speed": 2.5},
		"clouds": {"all": 90}
	}`)

	s := NewWeatherScraper(newClient(), "test-key", "Artvin,TR", logger.NewTestLogger(t))
	s.apiURL = srv.URL

	text, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Artvin Hava Durumu")
	assert.Contains(t, text, "**14°C**")
	assert.Contains(t, text, "Hissedilen: 12°C")
	assert.Contains(t, text, "Hafif yağmurlu")
	assert.Contains(t, text, "9 km/s") // 2.5 m/s rounded
	assert.Contains(t, text, "%78")
}

func TestWeatherScraper_NoAPIKey(t *testing.T) {
	s := NewWeatherScraper(newClient(), "", "", logger.NewTestLogger(t))
	text, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "aktif değil")
	assert.Contains(t, text, "mgm.gov.tr")
}

func TestWeatherScraper_BadStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	s := NewWeatherScraper(newClient(), "bad-key", "", logger.NewTestLogger(t))
	s.apiURL = srv.URL

	_, err := s.Fetch(context.Background())
	assert.Error(t, err)
}

func TestCalendarScraper_ScrapeCalendars(t *testing.T) {
	srv := testServer(t, `<html><body>
		<a href="/files/takvim-2024.pdf">2024 - 2025 Akademik Takvimi</a>
		<a href="/files/takvim-2023.pdf">2023 - 2024 Akademik Takvimi</a>
		<a href="/files/other.pdf">Ders Programı</a>
	</body></html>`)

	s := NewCalendarScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	calendars, err := s.ScrapeCalendars(context.Background())
	require.NoError(t, err)

	assert.Len(t, calendars, 3) // two years plus current
	assert.Contains(t, calendars, "2024-2025")
	assert.Contains(t, calendars, "2023-2024")
	assert.Equal(t, calendars["2024-2025"], calendars["current"])
	assert.True(t, strings.HasPrefix(calendars["2024-2025"], srv.URL))
}

func TestCalendarScraper_NoLinksIsError(t *testing.T) {
	srv := testServer(t, `<html><body><p>arşiv taşındı</p></body></html>`)

	s := NewCalendarScraper(newClient(), srv.URL, logger.NewTestLogger(t))
	_, err := s.ScrapeCalendars(context.Background())
	assert.Error(t, err)
}
