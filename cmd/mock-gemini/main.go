package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/shpitdev/synthdata/internal/mockgemini"
	"github.com/shpitdev/synthdata/internal/requirements"
)

func main() {
	addr := defaultString("MOCK_GEMINI_ADDR", ":8090")
	replyFile := defaultString("MOCK_GEMINI_REPLY_FILE", "")
	apiKey := defaultString("MOCK_GEMINI_API_KEY", "")

	fs := flag.NewFlagSet("mock-gemini", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&replyFile, "reply-file", replyFile, "Requirements document (YAML or JSON) returned for every request")
	fs.StringVar(&apiKey, "api-key", apiKey, "Reject requests without this API key (also supports env: MOCK_GEMINI_API_KEY)")
	_ = fs.Parse(os.Args[1:])

	reply, err := replyText(replyFile)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "reply error: %v\n", err)
		os.Exit(2)
	}

	srv := mockgemini.New(reply)
	srv.RequireAPIKey(apiKey)

	_, _ = fmt.Fprintf(os.Stdout, "mock-gemini listening on %s (point GEMINI_BASE_URL at http://localhost%s)\n", addr, addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

const defaultReply = `{"domain":"retail","num_entries":1000,"fields":[` +
	`{"name":"purchase date","type":"date","constraints":""},` +
	`{"name":"product category","type":"categorical","constraints":"categories: Electronics, Clothing, Groceries"},` +
	`{"name":"customer age","type":"integer","constraints":"between 18 and 90"},` +
	`{"name":"total spent","type":"float","constraints":"between 0 and 1000"}]}`

// replyText loads a requirements document and re-encodes it as the JSON a model reply
// would carry.
func replyText(path string) (string, error) {
	if path == "" {
		return defaultReply, nil
	}
	reqs, err := requirements.LoadFile(path)
	if err != nil {
		return "", err
	}
	n := reqs.NumEntries
	b, err := json.Marshal(requirements.Document{Domain: reqs.Domain, NumEntries: &n, Fields: reqs.Fields})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
