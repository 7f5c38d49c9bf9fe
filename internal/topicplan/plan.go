// Package topicplan assigns question numbers to syllabus topics so a generated exam
// covers the module evenly.
package topicplan

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
)

// GeneralTopic is used when a module has no topic list.
const GeneralTopic = "General Concepts"

var (
	sdmKeywords = []string{"software", "sdlc", "agile", "devops", "git", "scrum", "testing", "jenkins", "docker", "kubernetes"}
	graphTopic  = regexp.MustCompile(`(?i)graph|bfs|dfs|spanning|path|dijkstra|prim|kruskal|tree`)
)

// Range assigns questions Start..End (1-based, inclusive) to Topic.
type Range struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Topic string `json:"topic"`
}

func (r Range) Len() int {
	return r.End - r.Start + 1
}

// Plan is an ordered list of contiguous ranges covering 1..Total.
type Plan struct {
	Total  int     `json:"total"`
	Ranges []Range `json:"ranges"`
}

// String renders the plan in the line format the prompts embed:
//
//	Question 1-5: Deadlocks
//	Question 6-10: Paging
func (p Plan) String() string {
	var b strings.Builder
	for _, r := range p.Ranges {
		fmt.Fprintf(&b, "Question %d-%d: %s\n", r.Start, r.End, r.Topic)
	}
	return b.String()
}

// Counts returns how many questions each topic received.
func (p Plan) Counts() map[string]int {
	counts := make(map[string]int, len(p.Ranges))
	for _, r := range p.Ranges {
		counts[r.Topic] += r.Len()
	}
	return counts
}

// Topics lists the distinct topics in plan order.
func (p Plan) Topics() []string {
	seen := make(map[string]bool, len(p.Ranges))
	var topics []string
	for _, r := range p.Ranges {
		if !seen[r.Topic] {
			seen[r.Topic] = true
			topics = append(topics, r.Topic)
		}
	}
	return topics
}

// Slice cuts questions offset+1..offset+count out of the plan and renumbers them from 1,
// keeping the topic order of the full plan. A window that overlaps nothing falls back to
// GeneralTopic.
func (p Plan) Slice(offset, count int) Plan {
	if count <= 0 {
		return Plan{}
	}
	start := offset + 1
	end := offset + count
	if p.Total > 0 && end > p.Total {
		end = p.Total
	}

	sub := Plan{Total: count}
	for _, r := range p.Ranges {
		if r.Start > end || r.End < start {
			continue
		}
		sub.Ranges = append(sub.Ranges, Range{
			Start: max(r.Start, start) - offset,
			End:   min(r.End, end) - offset,
			Topic: r.Topic,
		})
	}
	if len(sub.Ranges) == 0 {
		sub.Ranges = []Range{{Start: 1, End: count, Topic: GeneralTopic}}
	}
	return sub
}

// Planner builds plans. It owns the random source so plans are reproducible under a seed.
type Planner struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlanner returns a planner drawing from src; a nil src gets a randomly seeded PCG.
func NewPlanner(src rand.Source) *Planner {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Planner{rng: rand.New(src)}
}

// Build assigns every question in 1..total to exactly one topic.
func (p *Planner) Build(moduleID string, total int, topics []string) Plan {
	if total <= 0 {
		return Plan{}
	}
	if len(topics) == 0 {
		return Plan{Total: total, Ranges: []Range{{Start: 1, End: total, Topic: GeneralTopic}}}
	}

	groups := SplitGroups(moduleID, topics)
	quotas := GroupQuotas(moduleID, total, len(groups))

	plan := Plan{Total: total}
	next := 1
	for i, group := range groups {
		if quotas[i] <= 0 || len(group) == 0 {
			continue
		}
		ranges := distribute(next, quotas[i], p.shuffle(group))
		plan.Ranges = append(plan.Ranges, ranges...)
		next += quotas[i]
	}
	return plan
}

// Shuffle returns a uniformly permuted copy of items.
func (p *Planner) Shuffle(items []string) []string {
	return p.shuffle(items)
}

// IntN draws from the planner's source.
func (p *Planner) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

func (p *Planner) shuffle(items []string) []string {
	out := append([]string(nil), items...)
	p.mu.Lock()
	p.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	p.mu.Unlock()
	return out
}

// distribute spreads count questions over the first min(count, len(topics)) topics:
// floor(count/n) each, one extra for the first count%n.
func distribute(start, count int, topics []string) []Range {
	n := min(count, len(topics))
	per := count / n
	extra := count % n

	ranges := make([]Range, 0, n)
	for i := 0; i < n; i++ {
		size := per
		if i < extra {
			size++
		}
		ranges = append(ranges, Range{Start: start, End: start + size - 1, Topic: topics[i]})
		start += size
	}
	return ranges
}

// IsCombinedModule reports whether the module merges Operating Systems with
// Software Development Methodologies.
func IsCombinedModule(moduleID string) bool {
	id := strings.ToLower(moduleID)
	return strings.Contains(id, "cos") && strings.Contains(id, "sdm")
}

// SplitGroups divides a combined module's topic list at its first SDM topic. The split
// only happens when that topic is not the first one; everything else is one group.
func SplitGroups(moduleID string, topics []string) [][]string {
	if IsCombinedModule(moduleID) {
		if idx := firstSDMTopic(topics); idx > 0 {
			return [][]string{topics[:idx], topics[idx:]}
		}
	}
	return [][]string{topics}
}

func firstSDMTopic(topics []string) int {
	for i, t := range topics {
		lower := strings.ToLower(t)
		for _, kw := range sdmKeywords {
			if strings.Contains(lower, kw) {
				return i
			}
		}
	}
	return -1
}

// GroupQuotas returns the number of questions owed to each topic group.
func GroupQuotas(moduleID string, total, groups int) []int {
	if groups <= 1 {
		return []int{total}
	}
	if IsCombinedModule(moduleID) && groups == 2 {
		switch total {
		case 40:
			return []int{15, 25}
		case 10:
			return []int{4, 6}
		default:
			first := int(math.Round(float64(total) * 0.375))
			return []int{first, total - first}
		}
	}

	quotas := make([]int, groups)
	for i := range quotas {
		quotas[i] = total / groups
		if i < total%groups {
			quotas[i]++
		}
	}
	return quotas
}

// BoostGraphTopics lists graph and tree topics a second time for algorithm modules,
// doubling their share of the plan.
func BoostGraphTopics(moduleID string, topics []string) []string {
	id := strings.ToLower(moduleID)
	if !strings.Contains(id, "ads") && !strings.Contains(id, "algorithm") {
		return topics
	}
	boosted := append([]string(nil), topics...)
	for _, t := range topics {
		if graphTopic.MatchString(t) {
			boosted = append(boosted, t)
		}
	}
	return boosted
}
