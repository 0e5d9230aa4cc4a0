package fetcher

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/waywo/internal/config"
)

// NewSessionJar returns a cookie jar pre-loaded with the configured session
// cookies for the forum host.
func NewSessionJar(auth *config.AuthConfig, baseURL string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	if len(auth.Cookies) == 0 {
		return jar, nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(auth.Cookies))
	for _, c := range auth.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(u, cookies)

	return jar, nil
}

// browserCookies converts the configured session cookies for a headless
// browser page.
func browserCookies(auth *config.AuthConfig, baseURL string) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(auth.Cookies))
	for _, c := range auth.Cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:  c.Name,
			Value: c.Value,
			URL:   baseURL,
			Path:  "/",
		})
	}
	return params
}
