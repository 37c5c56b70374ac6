// Package mockgemini serves a minimal Gemini generateContent endpoint with canned
// replies, for tests and for running the CLI without network access.
package mockgemini

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	Model  string
	Prompt string
}

// Reply is one queued response. A zero Status means 200 with Text as the model output.
type Reply struct {
	Status  int
	Text    string
	Message string
}

// Server implements just enough of the Gemini API surface for structured output calls.
type Server struct {
	mu       sync.Mutex
	calls    []Call
	queue    []Reply
	fallback string
	apiKey   string
}

// New returns a server that answers every request with text unless a reply is queued.
func New(text string) *Server {
	return &Server{fallback: text}
}

// RequireAPIKey rejects requests that do not carry key. An empty key disables the check.
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = strings.TrimSpace(key)
}

// Enqueue adds replies that are served, in order, before the fallback text.
func (s *Server) Enqueue(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, replies...)
}

// SetText replaces the fallback reply.
func (s *Server) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = text
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleGenerate)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	// /{version}/models/{model}:generateContent
	path := r.URL.Path
	if r.Method != http.MethodPost || !strings.HasSuffix(path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	model := strings.TrimSuffix(path, ":generateContent")
	if i := strings.LastIndex(model, "/models/"); i >= 0 {
		model = model[i+len("/models/"):]
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}
	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: path, Model: model, Prompt: promptText(req)})
	expected := s.apiKey
	reply := Reply{Text: s.fallback}
	if len(s.queue) > 0 {
		reply = s.queue[0]
		s.queue = s.queue[1:]
	}
	s.mu.Unlock()

	if expected != "" && r.Header.Get("x-goog-api-key") != expected && r.URL.Query().Get("key") != expected {
		writeError(w, http.StatusUnauthorized, "API key not valid")
		return
	}
	if reply.Status != 0 && reply.Status != http.StatusOK {
		msg := reply.Message
		if msg == "" {
			msg = http.StatusText(reply.Status)
		}
		writeError(w, reply.Status, msg)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(generateResponse{
		Candidates: []candidate{{
			Content:      content{Role: "model", Parts: []part{{Text: reply.Text}}},
			FinishReason: "STOP",
		}},
	})
}

func promptText(req generateRequest) string {
	var b strings.Builder
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func writeError(w http.ResponseWriter, code int, msg string) {
	var body apiError
	body.Error.Code = code
	body.Error.Message = msg
	body.Error.Status = strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
