package main

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
)

const defaultQuestionPoints = 100

// Question is an opaque payload from the question bank. The server never
// validates it beyond defensive defaults; the host client selects questions
// and sends them back verbatim when starting a round.
type Question struct {
	ID            string   `json:"id,omitempty"`
	Question      string   `json:"question,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Points        int      `json:"points,omitempty"`
	Type          string   `json:"type,omitempty"`
	AudioFile     string   `json:"audio_file,omitempty"`
}

// basePoints returns the question's point value, defaulting when absent.
func (q *Question) basePoints() int {
	if q == nil || q.Points == 0 {
		return defaultQuestionPoints
	}
	return q.Points
}

// correctLetter maps the correct answer value to its option letter (A, B, C...).
// Returns "" when the value is missing from the option list, in which case no
// submission can ever be correct.
func (q *Question) correctLetter() string {
	if q == nil {
		return ""
	}
	for i, opt := range q.Options {
		if opt == q.CorrectAnswer {
			return string(rune('A' + i))
		}
	}
	return ""
}

// isMusic reports whether the automatic countdown should be suppressed,
// leaving playback timing to the host.
func (q *Question) isMusic() bool {
	return q != nil && q.Type == "music"
}

// QuestionBank holds the category -> question list mapping backed by a JSON
// file on disk. A missing file is treated as an empty bank.
type QuestionBank struct {
	mu         sync.RWMutex
	path       string
	Categories map[string][]Question `json:"categories"`
}

func loadQuestionBank(path string) (*QuestionBank, error) {
	bank := &QuestionBank{
		path:       path,
		Categories: make(map[string][]Question),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return bank, nil
	case err != nil:
		return nil, err
	}

	if err := json.Unmarshal(data, bank); err != nil {
		return nil, err
	}
	if bank.Categories == nil {
		bank.Categories = make(map[string][]Question)
	}

	return bank, nil
}

// CategoryNames returns the sorted category names, satisfying the narrow
// question source interface the room session consumes.
func (b *QuestionBank) CategoryNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.Categories))
	for name := range b.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (b *QuestionBank) marshal() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return json.MarshalIndent(struct {
		Categories map[string][]Question `json:"categories"`
	}{Categories: b.Categories}, "", "  ")
}

// replace swaps in a new category mapping and rewrites the backing file via a
// temp file rename, so a failed write never truncates the bank.
func (b *QuestionBank) replace(categories map[string][]Question) error {
	if categories == nil {
		categories = make(map[string][]Question)
	}

	data, err := json.MarshalIndent(struct {
		Categories map[string][]Question `json:"categories"`
	}{Categories: categories}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".questions-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	b.mu.Lock()
	b.Categories = categories
	b.mu.Unlock()

	return nil
}

func serveQuestions(cfg *Config, bank *QuestionBank, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		data, err := bank.marshal()
		if err != nil {
			http.Error(w, "unable to serialize question bank", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Question bank (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func updateQuestions(cfg *Config, bank *QuestionBank) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<22))
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		var update struct {
			Categories map[string][]Question `json:"categories"`
		}
		if err := json.Unmarshal(body, &update); err != nil {
			http.Error(w, "malformed question bank", http.StatusBadRequest)
			return
		}

		if err := bank.replace(update.Categories); err != nil {
			http.Error(w, "unable to save question bank", http.StatusInternalServerError)
			return
		}

		logf(cfg, "BANK: Updated question bank (%d categories) from %s", len(update.Categories), realIP(r))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)
		w.Write([]byte(`{"status":"ok"}`))
	}
}
