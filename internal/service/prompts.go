package service

import (
	"fmt"
	"strings"

	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/topicplan"
)

// ModuleType decides the question balance of a mock exam.
type ModuleType string

const (
	ModuleCodeHeavy ModuleType = "CODE_HEAVY"
	ModuleAptitude  ModuleType = "APTITUDE_CCEE"
	ModuleBalanced  ModuleType = "BALANCED"
)

func moduleTypeOf(moduleID string) ModuleType {
	id := strings.ToLower(moduleID)
	switch {
	case strings.Contains(id, "cplusplus"), strings.Contains(id, "c++"):
		return ModuleCodeHeavy
	case strings.Contains(id, "java") && !strings.Contains(id, "wbjp"):
		return ModuleCodeHeavy
	case strings.Contains(id, "aptitude"):
		return ModuleAptitude
	}
	return ModuleBalanced
}

func moduleInstruction(moduleID string) string {
	id := strings.ToLower(moduleID)
	switch moduleTypeOf(moduleID) {
	case ModuleCodeHeavy:
		return `CODE-HEAVY MODULE: 80% code output questions, 20% knowledge. Include 10-20 line code snippets.
Focus on execution tracing, method overriding, static blocks, exception handling.
- 30% of snippets MUST end in a COMPILATION ERROR, 20% in a RUNTIME EXCEPTION, 50% valid with tricky output.
- Options MUST include "Compilation Error" and "Runtime Exception" where applicable.
TRAP PATTERNS (40% of questions): string immutability, Arrays.asList backed by the array,
ignored return values, Integer cache (-128 to 127), pass-by-value of references, static context,
private members not inherited, catch block order, ConcurrentModificationException.`
	case ModuleAptitude:
		return `CCEE APTITUDE MODULE: HIGH DIFFICULTY. Quantitative aptitude and logical reasoning.
TOPICS: Time & Work, Speed & Distance, Probability, Permutations, Ratios, Blood Relations, Syllogisms, Series, Data Sufficiency.
EXCLUDE: English grammar, antonyms, synonyms, spelling, sentence correction.
STYLE: Multi-step word problems. NO CODE.`
	}
	switch {
	case strings.Contains(id, "dbt"), strings.Contains(id, "dbms"):
		return `DATABASE MODULE: SQL queries, normalization, transactions, indexing.
TRAPS: NULL = NULL is UNKNOWN, COUNT(*) vs COUNT(col), aggregates without GROUP BY return one row,
TRUNCATE vs DELETE, implicit commits on DDL.`
	case strings.Contains(id, "cos"), strings.Contains(id, "sdm"):
		return `OS & SDM MODULE: Operating system concepts and software development methodology.
TRAPS: Belady's anomaly only for FIFO, deadlock needs all four conditions, SJF optimal only for average waiting time,
Scrum has no project manager role, git reset vs revert.`
	case strings.Contains(id, "ads"):
		return `ADS MODULE: Algorithms and Data Structures.
TRAPS: Dijkstra fails on negative edges, BFS gives shortest paths only on unweighted graphs,
Prim vs Kruskal on disconnected graphs, worst case of quicksort, heap vs BST ordering.`
	case strings.Contains(id, "wpt"), strings.Contains(id, "web"):
		return `WEB MODULE: HTML, CSS, JavaScript, Node and React facts.
TRAPS: == vs ===, hoisting of let/const, JSON.stringify drops undefined, CSS specificity order, event bubbling.`
	}
	return `BALANCED MODULE: 60% conceptual, 40% scenario. MINIMAL CODE, only short syntax examples.
Focus on definitions, comparisons, facts.`
}

const answerRules = `SINGLE CORRECT ANSWER ENFORCEMENT:
1. EXACTLY ONE option is correct. The other options are definitively wrong.
2. For code output, trace line by line to get the exact output.
3. NEVER use "All of the above" or "Both A and B".
4. For negative questions ("Which is FALSE"), exactly one option is false and correctAnswer points to it.`

// mockBatchPrompt asks for one batch of a mock exam following the batch's topic plan.
func mockBatchPrompt(m domain.Module, mode domain.ExamMode, size int, plan topicplan.Plan) string {
	allowed := "General module concepts"
	if len(m.Topics) > 0 {
		allowed = strings.Join(m.Topics, "\n- ")
	}
	style := `- Focus on CONCEPTUAL understanding, definitions, and facts.
- NO CODE SNIPPETS for this module.`
	focus := "KNOWLEDGE FOCUS: Definitions, default values, lifecycle methods, framework facts."
	switch moduleTypeOf(m.ID) {
	case ModuleCodeHeavy:
		style = "- CODE SNIPPETS are crucial. Trace every snippet before fixing the answer."
		focus = "CODE FOCUS: Static init order, exception catch order, overriding, autoboxing, constructor/destructor order."
	case ModuleAptitude:
		focus = "NO CODE: Ratios, percentages, logical reasoning, blood relations, directions."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CCEE EXAM PAPER SETTER - Generate %d questions.\n\n", size)
	fmt.Fprintf(&b, "MODULE: %q | MODE: %s | TYPE: %s\n\n", m.Name, mode, moduleTypeOf(m.ID))
	b.WriteString(moduleInstruction(m.ID))
	b.WriteString("\n\n===== DIFFICULTY =====\n- TRICKY & PRECISE: test edge cases and specific rules.\n")
	b.WriteString(style)
	b.WriteString(`

===== RULES =====
1. Format: "Choose the best option..." or "Select the correct statement..."
2. 15% negative questions: "Which is NOT true...", "Which is FALSE..."
3. Options must be technically close.
4. Each question tests ONE concept only.
5. The answer must NOT be visible in the code or question text.
6. ABSOLUTELY NO COMMENTS in code snippets.
7. Topic field must match the plan EXACTLY.

`)
	b.WriteString(answerRules)
	b.WriteString("\n\n===== TOPIC PLAN =====\n")
	b.WriteString(plan.String())
	fmt.Fprintf(&b, "\nALLOWED TOPICS ONLY:\n- %s\n", allowed)
	b.WriteString(`
===== OUTPUT FORMAT =====
Return JSON array ONLY:
[{"id":1,"topic":"exact topic","question":"...","snippet":null or "code\nhere","options":["A","B","C","D"],"correctAnswer":0-3,"type":"OUTPUT|CONCEPTUAL|VALIDATION","explanation":"1 line"}]

`)
	b.WriteString(focus)
	fmt.Fprintf(&b, "\n\nGenerate %d CCEE-grade questions NOW. JSON only, no markdown.", size)
	return b.String()
}

func topicQuestionsPrompt(m domain.Module, topic string, count int) string {
	return fmt.Sprintf(`CCEE EXAM - Generate %[1]d MCQs for SINGLE TOPIC ONLY.

MODULE: %[2]q
TOPIC: %[3]q (STRICT - all questions MUST be about this exact topic!)

RULES:
1. ALL %[1]d questions must be SPECIFICALLY about %[3]q
2. 15%% negative framing ("Which is NOT true...", "Which is FALSE...")
3. Options must be technically close
4. Include code snippets where relevant
5. Focus on tricky exam-style scenarios

%[4]s

OUTPUT FORMAT - JSON array ONLY:
[{"id":1,"topic":%[3]q,"question":"...","snippet":null or "code","options":["A","B","C","D"],"correctAnswer":0-3,"type":"OUTPUT|CONCEPTUAL","explanation":"1 line"}]

Generate %[1]d CCEE-grade questions about %[3]q NOW. JSON only.`, count, m.Name, topic, answerRules)
}

func flashcardPrompt(moduleID, topic string, count int) string {
	return fmt.Sprintf(`Generate %d flashcards for %q (%s) in JSON format: { "flashcards": [{ "type": "concept", "front": "question", "back": "answer" }] }. Strictly valid JSON object. No Markdown blocks.`,
		count, topic, moduleID)
}

func flashcardBatchPrompt(moduleID string, topics []string, batch, batches, count int) string {
	return fmt.Sprintf(`Generate %[1]d flashcards (Batch %[2]d/%[3]d) covering important concepts from these topics: %[4]s for module %[5]q.

Mix of concept, definition, and application questions.

JSON format: { "flashcards": [{ "type": "concept|definition|application", "front": "question", "back": "answer" }] }.

CRITICAL: Return EXACTLY %[1]d flashcards.
Strictly valid JSON object. No Markdown blocks.`, count, batch, batches, strings.Join(topics, ", "), moduleID)
}

func notesPrompt(moduleID, topic string) string {
	return fmt.Sprintf(`You are a CCEE Exam Expert. Create STRATEGIC, CONCISE study notes for %[1]q (Module: %[2]s).
Output STRICT JSON ONLY. No Markdown.
CRITICAL: Keep descriptions brief and punchy. Avoid long paragraphs.
Follow this schema exactly:

{
  "topic": %[1]q,
  "orientation": {
    "examinerIntent": "string (Max 30 words)",
    "primaryTrap": "string (Max 30 words)",
    "secondaryTrap": "string",
    "failurePattern": "string",
    "timeToMaster": "string"
  },
  "absoluteFacts": ["string"],
  "assumptions": [{ "assumption": "string", "reality": "string" }],
  "trapZones": [{ "trap": "string", "why": "string", "reality": "string", "cceeQuestion": "string", "eliminationLogic": "string" }],
  "internalMechanism": ["string"],
  "codeTricks": [{ "concept": "string", "snippet": "code string", "behavior": "string", "whyFail": "string", "memoryHook": "string" }],
  "binaryTables": [{ "title": "string", "headers": ["col1", "col2"], "rows": [["val1", "val2"]] }],
  "killShots": ["string (One-liner tips)"],
  "checkpoint": ["string"]
}`, topic, moduleID)
}
