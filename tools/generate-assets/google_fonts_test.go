package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestParseGoogleFontSpec(t *testing.T) {
	family, weight, ok := ParseGoogleFontSpec("google:Inter:800")
	if !ok || family != "Inter" || weight != "800" {
		t.Fatalf("got (%q, %q, %v)", family, weight, ok)
	}
	for _, bad := range []string{"Inter:800", "google:Inter", "google::800", "local:Inter:800"} {
		if _, _, ok := ParseGoogleFontSpec(bad); ok {
			t.Errorf("ParseGoogleFontSpec(%q) accepted", bad)
		}
	}
}

func TestFontFetcher_DownloadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/css2", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("family") != "Inter:wght@800" {
			http.Error(w, "bad family", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, "@font-face { src: url(%s/inter.ttf) format('truetype'); }", srv.URL)
	})
	mux.HandleFunc("/inter.ttf", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write(goregular.TTF)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	f := newFontFetcher(t.TempDir())
	f.cssBase = srv.URL + "/css2"

	for i := range 2 {
		data, err := f.Fetch("google:Inter:800")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if !bytes.Equal(data, goregular.TTF) {
			t.Fatalf("fetch %d returned %d bytes, want the TTF", i, len(data))
		}
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want 2 (second fetch from cache)", got)
	}
}

func TestFontFetcher_NoURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "/* nothing here */")
	}))
	defer srv.Close()

	f := newFontFetcher(t.TempDir())
	f.cssBase = srv.URL
	if _, err := f.Fetch("google:Inter:800"); err == nil {
		t.Fatal("expected an error for a stylesheet without a font URL")
	}
}

func TestToSFNT_PassesThroughTTF(t *testing.T) {
	data, err := toSFNT("x.ttf", goregular.TTF)
	if err != nil || !bytes.Equal(data, goregular.TTF) {
		t.Fatalf("toSFNT changed a TTF (%v)", err)
	}
}
