package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"shortlist/internal/apierr"
	"shortlist/internal/logger"
	"shortlist/internal/utils"
)

const (
	DefaultScrapeTimeout = 15 * time.Second
	scrapeCacheTTL       = 10 * time.Minute
	scrapeCacheSize      = 256
	maxDescriptionRunes  = 1000
	maxLocationRunes     = 100
	maxPageBytes         = 5 << 20
	browserUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ScrapedProperty is a listing preview; nothing is persisted.
type ScrapedProperty struct {
	URL          string   `json:"url"`
	ImageURL     string   `json:"image_url"`
	Price        float64  `json:"price"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	Bedrooms     int      `json:"bedrooms"`
	DateOnSale   string   `json:"date_on_sale"`
	EstateAgent  string   `json:"estate_agent"`
	Reduced      bool     `json:"reduced"`
	Views        bool     `json:"views"`
	Gardens      bool     `json:"gardens"`
	Outbuildings bool     `json:"outbuildings"`
	Condition    string   `json:"condition"`
	Features     []string `json:"features"`
}

// PageFetcher returns the HTML of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher performs a single GET with browser-like headers.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultScrapeTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", apierr.Validation(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.8")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", apierr.BadGateway(fmt.Errorf("fetch page: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apierr.BadGateway(fmt.Errorf("fetch page: HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", apierr.BadGateway(fmt.Errorf("read page: %w", err))
	}
	return string(body), nil
}

// BrowserFetcher renders the page in headless Chrome so script-built
// listings are present in the returned HTML.
type BrowserFetcher struct {
	timeout  time.Duration
	execPath string
}

func NewBrowserFetcher(timeout time.Duration, execPath string) *BrowserFetcher {
	if timeout <= 0 {
		timeout = DefaultScrapeTimeout
	}
	return &BrowserFetcher{timeout: timeout, execPath: execPath}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(browserUserAgent),
	)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", apierr.BadGateway(fmt.Errorf("render page: %w", err))
	}
	return html, nil
}

// Scraper turns a listing URL into a property preview.
type Scraper struct {
	log     *logger.Logger
	fetcher PageFetcher
	cache   *utils.TTLCache[*ScrapedProperty]
	now     func() time.Time
}

func NewScraper(log *logger.Logger, fetcher PageFetcher) (*Scraper, error) {
	cache, err := utils.NewTTLCache[*ScrapedProperty](scrapeCacheSize, scrapeCacheTTL)
	if err != nil {
		return nil, err
	}
	return &Scraper{
		log:     log.With("service", "Scraper"),
		fetcher: fetcher,
		cache:   cache,
		now:     time.Now,
	}, nil
}

// ValidateListingURL accepts only absolute http and https URLs.
func ValidateListingURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apierr.Validation(errors.New("URL is required"))
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apierr.Validation(errors.New("invalid URL format"))
	}
	return u, nil
}

func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*ScrapedProperty, error) {
	pageURL, err := ValidateListingURL(rawURL)
	if err != nil {
		return nil, err
	}
	key := pageURL.String()
	if cached, ok := s.cache.Get(key); ok {
		out := *cached
		return &out, nil
	}

	s.log.Info("Scraping listing", "url", key)
	body, err := s.fetcher.Fetch(ctx, key)
	if err != nil {
		s.log.Warn("Listing fetch failed", "url", key, "error", err)
		return nil, err
	}

	result, err := ParseListing(pageURL, body)
	if err != nil {
		return nil, apierr.BadGateway(err)
	}
	result.DateOnSale = s.now().Format("2006-01-02")
	s.cache.Set(key, result)

	out := *result
	return &out, nil
}

// ParseListing extracts listing fields from page HTML using the site
// parser chosen by host.
func ParseListing(pageURL *url.URL, body string) (*ScrapedProperty, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var out *ScrapedProperty
	host := strings.ToLower(pageURL.Hostname())
	switch {
	case hostIs(host, "zillow.com"):
		out = scrapeZillow(doc)
	case hostIs(host, "rightmove.co.uk"):
		out = scrapeRightmove(doc)
	default:
		out = scrapeGeneric(doc)
		if out.Description == "" {
			out.Description = readableText(body, pageURL)
		}
	}

	out.URL = pageURL.String()
	out.Description = utils.Truncate(out.Description, maxDescriptionRunes)
	out.Location = utils.Truncate(out.Location, maxLocationRunes)
	out.ImageURL = resolveImageURL(pageURL, out.ImageURL)
	if out.EstateAgent == "" {
		out.EstateAgent = "Unknown"
	}
	out.Condition = "Unknown"
	out.Features = []string{}
	return out, nil
}

func hostIs(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// firstMatch returns the first selector in sels that matches anything.
func firstMatch(doc *goquery.Document, sels ...string) *goquery.Selection {
	for _, sel := range sels {
		if m := doc.Find(sel).First(); m.Length() > 0 {
			return m
		}
	}
	return nil
}

func textOf(s *goquery.Selection) string {
	if s == nil {
		return ""
	}
	return utils.StripTags(s.Text())
}

func attrOf(s *goquery.Selection, name string) string {
	if s == nil {
		return ""
	}
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func scrapeZillow(doc *goquery.Document) *ScrapedProperty {
	return &ScrapedProperty{
		Price:       utils.ParsePrice(textOf(firstMatch(doc, `[data-testid="price"]`))),
		Description: textOf(firstMatch(doc, `[data-testid="description"]`)),
		Location:    textOf(firstMatch(doc, `[data-testid="breadcrumb"]`)),
		Bedrooms:    utils.ParseDigits(textOf(firstMatch(doc, `[data-testid="bed-value"]`))),
		ImageURL:    attrOf(firstMatch(doc, "picture img"), "src"),
		EstateAgent: "Zillow",
	}
}

func scrapeRightmove(doc *goquery.Document) *ScrapedProperty {
	return &ScrapedProperty{
		Price:       utils.ParsePrice(textOf(firstMatch(doc, `[data-testid="price"]`, ".price", "._1gfnqJ3Vtd1z40MlC0MzXu"))),
		Description: textOf(firstMatch(doc, `[data-testid="description"]`, ".description", "._1uI3I7o-0rCWy7-cUApkyW")),
		Location:    textOf(firstMatch(doc, `[data-testid="address"]`, ".address", "._2uQQ3SV0eMHL1P6tEVhY7_")),
		Bedrooms:    utils.ParseDigits(textOf(firstMatch(doc, `[data-testid="bedrooms"]`, ".bedrooms", "._4hBezflLdgDM2EySOBO9v"))),
		ImageURL:    attrOf(firstMatch(doc, `[data-testid="image-link"]`, "img"), "src"),
		EstateAgent: "Rightmove",
	}
}

var (
	genericPriceSelectors = []string{
		`[data-test="price"]`, `[data-testid="price"]`, ".price",
		".property-price", `[class*="price"]`, `[id*="price"]`,
	}
	genericDescSelectors = []string{
		`[data-test="description"]`, `[data-testid="description"]`,
		".description", ".property-description", `[class*="description"]`,
	}
	listingImageHints = []string{"property", "house", "home"}
)

func scrapeGeneric(doc *goquery.Document) *ScrapedProperty {
	out := &ScrapedProperty{EstateAgent: "Unknown"}

	for _, sel := range genericPriceSelectors {
		if m := doc.Find(sel).First(); m.Length() > 0 {
			if out.Price = utils.ParsePrice(textOf(m)); out.Price > 0 {
				break
			}
		}
	}
	for _, sel := range genericDescSelectors {
		if m := doc.Find(sel).First(); m.Length() > 0 {
			if out.Description = textOf(m); out.Description != "" {
				break
			}
		}
	}

	images := doc.Find("img")
	images.EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := attrOf(img, "src")
		for _, hint := range listingImageHints {
			if src != "" && strings.Contains(src, hint) {
				out.ImageURL = src
				return false
			}
		}
		return true
	})
	if out.ImageURL == "" && images.Length() > 0 {
		out.ImageURL = attrOf(images.First(), "src")
	}

	out.Location = textOf(firstMatch(doc, "title"))
	return out
}

// readableText falls back to readability's article extraction.
func readableText(body string, pageURL *url.URL) string {
	article, err := readability.FromReader(strings.NewReader(body), pageURL)
	if err != nil {
		return ""
	}
	return utils.StripTags(article.Content)
}

func resolveImageURL(pageURL *url.URL, src string) string {
	if src == "" {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return pageURL.ResolveReference(ref).String()
}
