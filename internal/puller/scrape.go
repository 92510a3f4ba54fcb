package puller

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/gocolly/colly/v2"
)

// Page is an HTML document fetched by Scrape.
type Page struct {
	// Doc is the root element of the parsed document.
	Doc *goquery.Selection
	// Body is the raw response, decoded to UTF-8.
	Body string
}

// contextTransport binds every request of a collector to ctx, so that cancelling it aborts an ongoing transfer.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(r.WithContext(t.ctx))
}

// Scrape fetches an HTML page with a fresh collector.
// Non 2xx responses are returned as errors. Cancelling ctx aborts the transfer.
func Scrape(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	c := colly.NewCollector()
	c.SetRequestTimeout(timeout)
	c.WithTransport(contextTransport{ctx: ctx, base: http.DefaultTransport})

	var page Page
	var reqErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", constants.UserAgent)
	})
	c.OnResponse(func(r *colly.Response) {
		page.Body = string(r.Body)
	})
	c.OnHTML("html", func(e *colly.HTMLElement) {
		page.Doc = e.DOM
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			reqErr = fmt.Errorf("%d %v for url: %s", r.StatusCode, err, url)
			return
		}
		reqErr = err
	})

	if err := c.Visit(url); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, ctxErr
		}
		if reqErr != nil {
			return Page{}, reqErr
		}
		return Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if reqErr != nil {
		return Page{}, reqErr
	}

	// Pages served without an HTML content type are not handed to OnHTML.
	if page.Doc == nil {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
		if err != nil {
			return Page{}, fmt.Errorf("could not parse HTML: %v", err)
		}
		page.Doc = doc.Selection
	}

	return page, nil
}
