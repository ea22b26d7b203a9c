package domain

import "fmt"

// WeightTable maps each archetype to its per-question weight.
type WeightTable map[Archetype]map[QuestionID]int

// MaxPossible returns the sum of an archetype's weights over all questions.
func (t WeightTable) MaxPossible(a Archetype) int {
	total := 0
	for q := QuestionID(1); q <= QuestionCount; q++ {
		total += t[a][q]
	}
	return total
}

// Archetypes returns the table's archetypes sorted by name.
func (t WeightTable) Archetypes() []Archetype {
	out := make([]Archetype, 0, len(t))
	for a := range t {
		out = append(out, a)
	}
	sortArchetypes(out)
	return out
}

// Validate checks that every archetype has a weight in {1,2,3} for each question.
func (t WeightTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("weight table is empty")
	}
	for _, a := range t.Archetypes() {
		if !a.IsValid() {
			return fmt.Errorf("unknown archetype %q in weight table", a)
		}
		for q := QuestionID(1); q <= QuestionCount; q++ {
			w, ok := t[a][q]
			if !ok {
				return fmt.Errorf("archetype %s: missing weight for question %d", a, q)
			}
			if w < 1 || w > 3 {
				return fmt.Errorf("archetype %s: weight %d for question %d out of range", a, w, q)
			}
		}
	}
	return nil
}

func row(weights ...int) map[QuestionID]int {
	out := make(map[QuestionID]int, len(weights))
	for i, w := range weights {
		out[QuestionID(i+1)] = w
	}
	return out
}

// DefaultWeights returns a fresh copy of the production weight table.
func DefaultWeights() WeightTable {
	return WeightTable{
		ArchetypeLeader:       row(3, 1, 2, 1, 3, 3, 1, 2, 1, 3),
		ArchetypeAnalyst:      row(2, 3, 1, 2, 3, 2, 3, 2, 3, 2),
		ArchetypeCollaborator: row(1, 2, 3, 3, 1, 1, 2, 3, 2, 3),
		ArchetypeVisionary:    row(1, 1, 2, 1, 1, 2, 1, 1, 2, 2),
		ArchetypeAchiever:     row(3, 3, 1, 1, 2, 1, 1, 3, 1, 3),
		ArchetypeScholar:      row(2, 3, 1, 2, 3, 2, 3, 2, 3, 2),
		ArchetypeMentor:       row(1, 2, 3, 3, 1, 1, 2, 3, 2, 3),
		ArchetypeCreator:      row(1, 1, 2, 1, 1, 2, 1, 1, 2, 2),
	}
}

// Option is one selectable answer of a question.
type Option struct {
	Text      string    `json:"text"`
	Value     int       `json:"value"`
	Archetype Archetype `json:"archetype"`
}

// Question is a catalogue entry shown to quiz takers.
type Question struct {
	ID       QuestionID `json:"id"`
	Question string     `json:"question"`
	Options  []Option   `json:"options"`
}

func options(pairs ...any) []Option {
	out := make([]Option, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Option{
			Text:      pairs[i].(string),
			Value:     len(out) + 1,
			Archetype: pairs[i+1].(Archetype),
		})
	}
	return out
}

// Questions returns the question catalogue in display order.
func Questions() []Question {
	return []Question{
		{ID: 1, Question: "How do you approach new challenges?", Options: options(
			"Head-on with confidence", ArchetypeLeader,
			"Carefully analyze first", ArchetypeAnalyst,
			"Collaborate with others", ArchetypeCollaborator,
			"Trust my intuition", ArchetypeVisionary,
		)},
		{ID: 2, Question: "What motivates you most?", Options: options(
			"Achieving goals", ArchetypeAchiever,
			"Learning and growth", ArchetypeScholar,
			"Helping others succeed", ArchetypeMentor,
			"Creating something new", ArchetypeCreator,
		)},
		{ID: 3, Question: "How do you handle stress?", Options: options(
			"Take action immediately", ArchetypeLeader,
			"Step back and reflect", ArchetypeAnalyst,
			"Seek support from others", ArchetypeMentor,
			"Find creative solutions", ArchetypeCreator,
		)},
		{ID: 4, Question: "What's your ideal work environment?", Options: options(
			"Fast-paced and dynamic", ArchetypeAchiever,
			"Structured and organized", ArchetypeAnalyst,
			"Supportive and collaborative", ArchetypeCollaborator,
			"Flexible and autonomous", ArchetypeVisionary,
		)},
		{ID: 5, Question: "How do you make decisions?", Options: options(
			"Quickly and decisively", ArchetypeLeader,
			"Based on data and logic", ArchetypeAnalyst,
			"Considering impact on others", ArchetypeMentor,
			"Following my gut feeling", ArchetypeVisionary,
		)},
		{ID: 6, Question: "What's your greatest strength?", Options: options(
			"Leadership and influence", ArchetypeLeader,
			"Problem-solving ability", ArchetypeAnalyst,
			"Empathy and understanding", ArchetypeMentor,
			"Creativity and innovation", ArchetypeCreator,
		)},
		{ID: 7, Question: "How do you approach learning?", Options: options(
			"Hands-on experience", ArchetypeAchiever,
			"Deep research and study", ArchetypeScholar,
			"Learning from others", ArchetypeMentor,
			"Experimentation and discovery", ArchetypeCreator,
		)},
		{ID: 8, Question: "What drives your success?", Options: options(
			"Competition and winning", ArchetypeAchiever,
			"Excellence and mastery", ArchetypeScholar,
			"Team success", ArchetypeCollaborator,
			"Personal growth", ArchetypeCreator,
		)},
		{ID: 9, Question: "How do you handle conflicts?", Options: options(
			"Address them directly", ArchetypeLeader,
			"Analyze the root cause", ArchetypeAnalyst,
			"Mediate and find compromise", ArchetypeCollaborator,
			"Look for creative solutions", ArchetypeCreator,
		)},
		{ID: 10, Question: "What's your life philosophy?", Options: options(
			"Make things happen", ArchetypeAchiever,
			"Understand the world", ArchetypeScholar,
			"Connect with others", ArchetypeCollaborator,
			"Create and innovate", ArchetypeCreator,
		)},
	}
}
