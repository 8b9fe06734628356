package sim

import (
	"fmt"
	"math/rand"
	"time"
)

type Persona struct {
	Name   string
	Email  string
	PlanID string
}

type Scenario struct {
	Name     string
	Personas []Persona
	Prompts  []string
}

func SupportFloorScenario() Scenario {
	return Scenario{
		Name: "SupportFloorMorning",
		Personas: []Persona{
			{Name: "Dana Whitfield", Email: "dana.whitfield", PlanID: "pro"},
			{Name: "Marcus Oyelaran", Email: "marcus.oyelaran", PlanID: "basic"},
			{Name: "Priya Raman", Email: "priya.raman", PlanID: "enterprise"},
		},
		Prompts: []string{
			"Hello there!",
			"What can you help me with?",
			"Tell me about yourself",
			"What's the weather like today?",
			"Tell me a joke",
			"Thanks, that was helpful",
			"Goodbye for now",
			"How do I upgrade my plan?",
		},
	}
}

type Generator struct {
	scenario Scenario
	rnd      *rand.Rand
}

func NewGenerator(seed int64) Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return Generator{scenario: SupportFloorScenario(), rnd: rand.New(rand.NewSource(seed))}
}

func (g Generator) NextPrompt() string {
	return g.scenario.Prompts[g.rnd.Intn(len(g.scenario.Prompts))]
}

// NextPersona returns a persona with a unique email suffix so repeated runs
// against the same server never collide on signup.
func (g Generator) NextPersona() Persona {
	p := g.scenario.Personas[g.rnd.Intn(len(g.scenario.Personas))]
	p.Email = fmt.Sprintf("%s+%d@demo.loquia.org", p.Email, g.rnd.Int63())
	return p
}

func (g Generator) Personas() []Persona {
	return append([]Persona(nil), g.scenario.Personas...)
}

func (g *Generator) OverridePrompts(prompts []string) {
	g.scenario.Prompts = append([]string(nil), prompts...)
}
