package myhttp

import (
	"fmt"
	"net/http"
	"os"
)

func HostnameWithScheme(r *http.Request) string {
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL != "" {
		return baseURL
	}

	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GuessHostnameWithScheme is used outside of a request, e.g. to compose push-subscription endpoints
func GuessHostnameWithScheme() string {
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL != "" {
		return baseURL
	}

	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if project != "" {
		return fmt.Sprintf("https://%s.appspot.com", project)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s", port)
}
