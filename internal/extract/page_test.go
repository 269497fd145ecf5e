package extract

import "testing"

func TestParsePage_Metadata(t *testing.T) {
	html := `
	<html>
	<head>
		<title>  Acme   Holdings
		 - Wikipedia </title>
		<meta name="description" content="Acme Holdings is a  bakery group.">
		<link rel="canonical" href="/wiki/Acme_Holdings">
	</head>
	<body><h1>Acme Holdings</h1></body>
	</html>
	`

	page, err := ParsePage(html, "https://en.wikipedia.org/wiki/Acme")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if page.Title != "Acme Holdings - Wikipedia" {
		t.Errorf("Unexpected title: %q", page.Title)
	}
	if page.Description != "Acme Holdings is a bakery group." {
		t.Errorf("Unexpected description: %q", page.Description)
	}
	if page.Canonical != "https://en.wikipedia.org/wiki/Acme_Holdings" {
		t.Errorf("Unexpected canonical: %q", page.Canonical)
	}
}

func TestParsePage_HeadingFallback(t *testing.T) {
	html := `<html><body><h1>Registry <b>entry</b></h1><h1>Second</h1></body></html>`

	page, err := ParsePage(html, "https://registry.example/acme")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if page.Title != "Registry entry" {
		t.Errorf("Expected first h1 as title, got %q", page.Title)
	}
	if page.Canonical != "" {
		t.Errorf("Expected no canonical, got %q", page.Canonical)
	}
}

func TestParsePage_OpenGraphDescription(t *testing.T) {
	html := `<html><head><meta property="og:description" content="OG text"></head></html>`

	page, err := ParsePage(html, "https://example.com")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if page.Description != "OG text" {
		t.Errorf("Expected og:description, got %q", page.Description)
	}
}

func TestParsePage_SkipsNonHTTPCanonical(t *testing.T) {
	html := `<html><head><link rel="canonical" href="javascript:void(0)"></head></html>`

	page, err := ParsePage(html, "https://example.com")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if page.Canonical != "" {
		t.Errorf("Expected javascript canonical to be skipped, got %q", page.Canonical)
	}
}

func TestParsePage_InvalidSourceURL(t *testing.T) {
	if _, err := ParsePage("<html></html>", "://bad"); err == nil {
		t.Error("Expected error for invalid source URL")
	}
}
