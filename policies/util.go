package policies

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/zeu5/rl-trainer/core"
	"github.com/zeu5/rl-trainer/util"
)

// Hasher lets an observation choose its own table key
type Hasher interface {
	Hash() string
}

func stateKey(obs core.Observation) string {
	if h, ok := obs.(Hasher); ok {
		return h.Hash()
	}
	return util.JsonHash(obs)
}

func actionKey(a int) string {
	return strconv.Itoa(a)
}

type QTable struct {
	table map[string]map[string]float64
}

func NewQTable() *QTable {
	return &QTable{
		table: make(map[string]map[string]float64),
	}
}

func (q *QTable) Get(state, action string, def float64) float64 {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	if _, ok := q.table[state][action]; !ok {
		q.table[state][action] = def
	}
	return q.table[state][action]
}

func (q *QTable) Set(state, action string, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	q.table[state][action] = val
}

func (q *QTable) Exists(state string) bool {
	_, ok := q.table[state]
	return ok
}

func (q *QTable) Size() int {
	return len(q.table)
}

// MaxAmong returns the first action with the highest value. Missing entries
// are initialized to def.
func (q *QTable) MaxAmong(state string, actions []string, def float64) (string, float64) {
	if len(actions) == 0 {
		return "", def
	}
	maxAction := ""
	maxVal := math.Inf(-1)
	for _, a := range actions {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	return maxAction, maxVal
}

type qTableLine struct {
	State   string             `json:"state"`
	Entries map[string]float64 `json:"entries"`
}

// Write stores the table as one JSON object per state, sorted by state
func (q *QTable) Write(w io.Writer) error {
	states := make([]string, 0, len(q.table))
	for state := range q.table {
		states = append(states, state)
	}
	sort.Strings(states)

	enc := json.NewEncoder(w)
	for _, state := range states {
		if err := enc.Encode(qTableLine{State: state, Entries: q.table[state]}); err != nil {
			return fmt.Errorf("error writing q-table: %w", err)
		}
	}
	return nil
}

// Read replaces the contents of the table with the ones written by Write
func (q *QTable) Read(r io.Reader) error {
	table := make(map[string]map[string]float64)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var line qTableLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return fmt.Errorf("error reading q-table contents: %w", err)
		}
		if line.Entries == nil {
			line.Entries = make(map[string]float64)
		}
		table[line.State] = line.Entries
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading q-table: %w", err)
	}
	q.table = table
	return nil
}
