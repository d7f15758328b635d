package vinted

import "net/http"

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// browserHeaders are sent on every request. They stay fixed for the life of
// the process so all requests look like one desktop Chrome.
var browserHeaders = map[string]string{
	"User-Agent":         browserUserAgent,
	"Accept-Language":    "en-US,en;q=0.9",
	"Sec-Ch-Ua":          `"Chromium";v="122", "Google Chrome";v="122"`,
	"Sec-Ch-Ua-Mobile":   "?0",
	"Sec-Ch-Ua-Platform": `"Windows"`,
	"Sec-Fetch-Site":     "same-origin",
}

func setDocumentHeaders(h http.Header) {
	for k, v := range browserHeaders {
		h.Set(k, v)
	}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Upgrade-Insecure-Requests", "1")
}

func setAPIHeaders(h http.Header) {
	for k, v := range browserHeaders {
		h.Set(k, v)
	}
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("X-Requested-With", "XMLHttpRequest")
}
