package browser

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/playwright-community/playwright-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const mapsURL = "https://www.google.com/maps"

// Selectors for the current Maps markup. Everything brittle about the host
// UI lives in this file.
const (
	selSearchBox     = `input#searchboxinput, input[name="q"]`
	selFeed          = `div[role="feed"]`
	selEntryRow      = `div[role="feed"] > div`
	selEntryLink     = `a[href*="/maps/place/"]`
	selRatingBadge   = `span[role="img"]`
	selRowCategory   = `.fontBodyMedium`
	selPhoneButton   = `button[data-item-id^="phone"]`
	selAddressButton = `button[data-item-id="address"]`
	selDetailTitle   = `div[role="main"] h1`
	selWebsiteLink   = `a[data-item-id="authority"]`
	selReviewsLabel  = `div[role="main"] span[aria-label*="review"]`
	selBackButton    = `button[jsaction="pane.back"], button[aria-label="Back"]`
	selResultsHeader = `[aria-label*="Results"]`
	selCookieAccept  = `button:has-text("Accept all")`
)

var (
	ratingRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s+star`)
	reviewsRe = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*|\d+)`)
)

// PlaywrightOptions configure the real-browser adapter.
type PlaywrightOptions struct {
	Headless bool
	Timezone string // defaults to Asia/Colombo
}

// Playwright drives the live Maps UI through a Chromium instance. It
// implements Surface.
type Playwright struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	log     *zap.Logger
}

// NewPlaywright launches the browser and prepares a page.
func NewPlaywright(opts PlaywrightOptions, log *zap.Logger) (*Playwright, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, eris.Wrap(err, "browser: start playwright")
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-features=IsolateOrigins,site-per-process",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, eris.Wrap(err, "browser: launch chromium")
	}

	tz := opts.Timezone
	if tz == "" {
		tz = "Asia/Colombo"
	}
	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Locale:     playwright.String("en-US"),
		TimezoneId: playwright.String(tz),
		Viewport:   &playwright.Size{Width: 1440, Height: 900},
	})
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, eris.Wrap(err, "browser: new context")
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		b.Close()
		pw.Stop()
		return nil, eris.Wrap(err, "browser: new page")
	}
	page.SetDefaultTimeout(30000)

	return &Playwright{pw: pw, browser: b, bctx: bctx, page: page, log: log}, nil
}

func (p *Playwright) OpenFeed(ctx context.Context, query string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.page.Goto(mapsURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return eris.Wrap(err, "browser: open maps")
	}

	// Cookie prompt shows up on fresh profiles only.
	if err := p.page.Locator(selCookieAccept).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(2000),
	}); err == nil {
		p.log.Debug("accepted cookie prompt")
	}

	box := p.page.Locator(selSearchBox).First()
	if n, err := box.Count(); err != nil || n == 0 {
		return ErrSearchBoxNotFound
	}
	if err := box.Fill(query); err != nil {
		return ErrSearchBoxNotFound
	}
	if err := box.Press("Enter"); err != nil {
		return eris.Wrap(err, "browser: submit query")
	}

	if err := p.page.Locator(selFeed).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(15000),
	}); err != nil {
		return ErrFeedNotFound
	}
	return nil
}

func (p *Playwright) ListEntries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := p.page.Locator(selEntryRow)
	n, err := rows.Count()
	if err != nil {
		return nil, eris.Wrap(err, "browser: count feed rows")
	}

	var entries []Entry
	for i := 0; i < n; i++ {
		row := rows.Nth(i)

		link := row.Locator(selEntryLink).First()
		if cnt, err := link.Count(); err != nil || cnt == 0 {
			continue // spacer or ad row
		}
		href, err := link.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		name, _ := link.GetAttribute("aria-label")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		e := Entry{ID: href, Name: name}

		if label, err := row.Locator(selRatingBadge).First().GetAttribute("aria-label", playwright.LocatorGetAttributeOptions{
			Timeout: playwright.Float(500),
		}); err == nil {
			if m := ratingRe.FindStringSubmatch(label); m != nil {
				if r, err := strconv.ParseFloat(m[1], 64); err == nil {
					e.Rating = &r
				}
			}
			if rest := ratingRe.ReplaceAllString(label, ""); rest != "" {
				if m := reviewsRe.FindString(rest); m != "" {
					if c, err := strconv.Atoi(strings.ReplaceAll(m, ",", "")); err == nil {
						e.ReviewsCount = &c
					}
				}
			}
		}
		if body, err := row.Locator(selRowCategory).First().InnerText(playwright.LocatorInnerTextOptions{
			Timeout: playwright.Float(500),
		}); err == nil {
			e.Category = firstSegment(body)
		}

		entries = append(entries, e)
	}
	return entries, nil
}

func (p *Playwright) ScrollFeed(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Evaluate(`() => {
		const feed = document.querySelector('div[role="feed"]');
		if (feed) feed.scrollTop += 800;
	}`)
	if err != nil {
		return eris.Wrap(err, "browser: scroll feed")
	}
	return nil
}

func (p *Playwright) TotalEstimate(ctx context.Context) (int, bool) {
	if ctx.Err() != nil {
		return 0, false
	}
	label, err := p.page.Locator(selResultsHeader).First().GetAttribute("aria-label", playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(500),
	})
	if err != nil {
		return 0, false
	}
	m := reviewsRe.FindString(label)
	if m == "" {
		return 0, false
	}
	total, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil || total <= 0 {
		return 0, false
	}
	return total, true
}

func (p *Playwright) OpenDetail(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	link := p.page.Locator(`a[href="` + e.ID + `"]`).First()
	if n, err := link.Count(); err != nil || n == 0 {
		return eris.Errorf("browser: entry %q no longer rendered", e.Name)
	}
	if err := link.ScrollIntoViewIfNeeded(); err != nil {
		return eris.Wrap(err, "browser: scroll entry into view")
	}
	if err := link.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
		return eris.Wrapf(err, "browser: activate entry %q", e.Name)
	}
	return nil
}

func (p *Playwright) DetailReady(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	// The same semantic panel appears under different markup per entry type.
	for _, sel := range []string{selPhoneButton, selAddressButton, selDetailTitle} {
		if visible, err := p.page.Locator(sel).First().IsVisible(); err == nil && visible {
			return true
		}
	}
	return false
}

func (p *Playwright) ScrollDetail(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Evaluate(`() => {
		const main = document.querySelector('div[role="main"]');
		if (main) main.scrollTop += 600;
	}`)
	if err != nil {
		return eris.Wrap(err, "browser: scroll detail")
	}
	return nil
}

func (p *Playwright) DetailFields(ctx context.Context) (DetailFields, error) {
	if err := ctx.Err(); err != nil {
		return DetailFields{}, err
	}

	var f DetailFields
	f.ViewURL = p.page.URL()

	phones := p.page.Locator(selPhoneButton)
	if n, err := phones.Count(); err == nil {
		for i := 0; i < n; i++ {
			if text, err := phones.Nth(i).InnerText(playwright.LocatorInnerTextOptions{
				Timeout: playwright.Float(1000),
			}); err == nil && strings.TrimSpace(text) != "" {
				f.PhoneTexts = append(f.PhoneTexts, strings.TrimSpace(text))
			}
		}
	}

	if href, err := p.page.Locator(selWebsiteLink).First().GetAttribute("href", playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(1000),
	}); err == nil {
		f.Website = strings.TrimSpace(href)
	}

	if text, err := p.page.Locator(selAddressButton).First().InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(1000),
	}); err == nil {
		f.Address = strings.TrimSpace(text)
	}

	if label, err := p.page.Locator(selReviewsLabel).First().GetAttribute("aria-label", playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(1000),
	}); err == nil {
		f.ReviewsText = label
	}

	return f, nil
}

func (p *Playwright) CloseDetail(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	back := p.page.Locator(selBackButton).First()
	if n, err := back.Count(); err != nil || n == 0 {
		return ErrBackUnavailable
	}
	if err := back.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
		return ErrBackUnavailable
	}
	return nil
}

func (p *Playwright) Close() error {
	p.page.Close()
	p.bctx.Close()
	p.browser.Close()
	return p.pw.Stop()
}

// firstSegment returns the text before the first "·" separator, which is
// where the list row keeps the category.
func firstSegment(s string) string {
	if i := strings.IndexRune(s, '·'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
