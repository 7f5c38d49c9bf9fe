// Package fallback serves the static question set used when AI generation is unavailable.
package fallback

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"ccee-sentinel/internal/domain"
)

// GeneralKey holds questions usable for any module.
const GeneralKey = "general"

//go:embed questions.json
var embedded []byte

// Bank samples fallback questions per module.
type Bank struct {
	mu        sync.Mutex
	rng       *rand.Rand
	questions map[string][]domain.Question
}

// Load parses the embedded question set. A nil src seeds from the runtime.
func Load(src rand.Source) (*Bank, error) {
	return Parse(embedded, src)
}

func Parse(data []byte, src rand.Source) (*Bank, error) {
	var questions map[string][]domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode fallback questions: %w", err)
	}
	for key, qs := range questions {
		valid := qs[:0]
		for _, q := range qs {
			if err := q.Validate(); err != nil {
				return nil, fmt.Errorf("fallback question %s/%q: %w", key, q.Question, err)
			}
			q.Source = domain.SourceFallback
			valid = append(valid, q)
		}
		questions[key] = valid
	}
	return New(questions, src), nil
}

func New(questions map[string][]domain.Question, src rand.Source) *Bank {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Bank{rng: rand.New(src), questions: questions}
}

// Size returns how many questions are available to moduleID, general ones included.
func (b *Bank) Size(moduleID string) int {
	n := len(b.questions[GeneralKey])
	if key := b.keyFor(moduleID); key != GeneralKey {
		n += len(b.questions[key])
	}
	return n
}

// Sample draws up to n distinct questions for moduleID. Questions on one of topics come
// first, then the rest of the module, then general ones.
func (b *Bank) Sample(moduleID string, topics []string, n int) []domain.Question {
	if n <= 0 {
		return nil
	}
	key := b.keyFor(moduleID)

	var onTopic, offTopic []domain.Question
	if key != GeneralKey {
		for _, q := range b.questions[key] {
			if matchesAny(q.Topic, topics) {
				onTopic = append(onTopic, q)
			} else {
				offTopic = append(offTopic, q)
			}
		}
	}

	b.mu.Lock()
	b.shuffle(onTopic)
	b.shuffle(offTopic)
	general := append([]domain.Question(nil), b.questions[GeneralKey]...)
	b.shuffle(general)
	b.mu.Unlock()

	out := make([]domain.Question, 0, n)
	for _, group := range [][]domain.Question{onTopic, offTopic, general} {
		for _, q := range group {
			if len(out) == n {
				return out
			}
			out = append(out, q)
		}
	}
	return out
}

func (b *Bank) shuffle(qs []domain.Question) {
	b.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

// keyFor picks the exact module key, else the longest key contained in the id.
func (b *Bank) keyFor(moduleID string) string {
	id := strings.ToLower(moduleID)
	if _, ok := b.questions[id]; ok {
		return id
	}
	keys := make([]string, 0, len(b.questions))
	for k := range b.questions {
		if k != GeneralKey && strings.Contains(id, k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return GeneralKey
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys[0]
}

func matchesAny(topic string, topics []string) bool {
	t := strings.ToLower(topic)
	if t == "" {
		return false
	}
	for _, want := range topics {
		w := strings.ToLower(want)
		if w != "" && (strings.Contains(w, t) || strings.Contains(t, w)) {
			return true
		}
	}
	return false
}
