package testkit

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// StudyGeneratorConfig configures the synthetic study generator
type StudyGeneratorConfig struct {
	ArmCount       int     `json:"arm_count"`
	SubjectsPerArm int     `json:"subjects_per_arm"`
	EventTerms     int     `json:"event_terms"`
	EventRateBase  float64 `json:"event_rate_base"`
	DropoutRate    float64 `json:"dropout_rate"`
	LocationCount  int     `json:"location_count"`
	Seed           int64   `json:"seed"`
}

// DefaultStudyConfig returns a mid-sized two-arm trial
func DefaultStudyConfig() StudyGeneratorConfig {
	return StudyGeneratorConfig{
		ArmCount:       2,
		SubjectsPerArm: 60,
		EventTerms:     8,
		EventRateBase:  0.15,
		DropoutRate:    0.05,
		LocationCount:  4,
		Seed:           42,
	}
}

var (
	eventTerms = []string{
		"Cough", "Headache", "Nausea", "Fatigue", "Pyrexia", "Diarrhoea",
		"Nasal congestion", "Oropharyngeal pain", "Rash", "Dizziness",
	}
	organSystems = map[string]string{
		"Cough":              "Respiratory, thoracic and mediastinal disorders",
		"Nasal congestion":   "Respiratory, thoracic and mediastinal disorders",
		"Oropharyngeal pain": "Respiratory, thoracic and mediastinal disorders",
		"Headache":           "Nervous system disorders",
		"Dizziness":          "Nervous system disorders",
		"Nausea":             "Gastrointestinal disorders",
		"Diarrhoea":          "Gastrointestinal disorders",
		"Fatigue":            "General disorders",
		"Pyrexia":            "General disorders",
		"Rash":               "Skin and subcutaneous tissue disorders",
	}
	cities = []struct {
		city, country string
		lat, lon      float64
	}{
		{"Boston", "United States", 42.3601, -71.0589},
		{"Toronto", "Canada", 43.6532, -79.3832},
		{"Paris", "France", 48.8566, 2.3522},
		{"Berlin", "Germany", 52.52, 13.405},
		{"Madrid", "Spain", 40.4168, -3.7038},
		{"Melbourne", "Australia", -37.8136, 144.9631},
	}
)

// StudyGenerator builds synthetic study documents shaped like registry exports
type StudyGenerator struct {
	config StudyGeneratorConfig
	rng    *rand.Rand
}

// NewStudyGenerator creates a new generator
func NewStudyGenerator(config StudyGeneratorConfig) *StudyGenerator {
	return &StudyGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate returns a decoded-shape document for the given study id
func (g *StudyGenerator) Generate(id string) map[string]any {
	arms := g.config.ArmCount
	if arms < 1 {
		arms = 1
	}

	var armGroups, flowGroups, eventGroups, started, completed []any
	enrolled := make([]int, arms)
	for i := 0; i < arms; i++ {
		label := fmt.Sprintf("Arm %c", 'A'+i)
		armType := "EXPERIMENTAL"
		if i == arms-1 && arms > 1 {
			label, armType = "Placebo", "PLACEBO_COMPARATOR"
		}
		n := g.config.SubjectsPerArm + g.rng.Intn(g.config.SubjectsPerArm/5+1)
		enrolled[i] = n
		dropped := int(math.Round(float64(n) * g.config.DropoutRate * g.rng.Float64() * 2))

		armGroups = append(armGroups, map[string]any{
			"label":             label,
			"type":              armType,
			"interventionNames": []any{"Drug: " + label},
		})
		flowGroups = append(flowGroups, map[string]any{"id": fmt.Sprintf("FG%03d", i), "title": label})
		started = append(started, map[string]any{"groupId": fmt.Sprintf("FG%03d", i), "numSubjects": fmt.Sprint(n)})
		completed = append(completed, map[string]any{"groupId": fmt.Sprintf("FG%03d", i), "numSubjects": fmt.Sprint(n - dropped)})
		eventGroups = append(eventGroups, map[string]any{
			"id":             fmt.Sprintf("EG%03d", i),
			"title":          label,
			"otherNumAtRisk": n,
		})
	}

	terms := g.config.EventTerms
	if terms > len(eventTerms) {
		terms = len(eventTerms)
	}
	var otherEvents []any
	for t := 0; t < terms; t++ {
		term := eventTerms[t]
		var stats []any
		for i := 0; i < arms; i++ {
			// later arms drift toward the base rate, the first arm runs hotter
			rate := g.config.EventRateBase * (1 + 0.5*float64(arms-1-i)) * (0.5 + g.rng.Float64())
			affected := int(math.Round(rate * float64(enrolled[i])))
			stats = append(stats, map[string]any{
				"groupId":     fmt.Sprintf("EG%03d", i),
				"numEvents":   affected + g.rng.Intn(affected/3+1),
				"numAffected": affected,
				"numAtRisk":   enrolled[i],
			})
		}
		otherEvents = append(otherEvents, map[string]any{
			"term":        term,
			"organSystem": organSystems[term],
			"stats":       stats,
		})
	}

	var locations []any
	for i := 0; i < g.config.LocationCount; i++ {
		c := cities[i%len(cities)]
		loc := map[string]any{
			"facility": fmt.Sprintf("%s Research Site %d", c.city, i+1),
			"city":     c.city,
			"country":  c.country,
		}
		// roughly one site in five has no geocode
		if g.rng.Float64() >= 0.2 {
			loc["geoPoint"] = map[string]any{"lat": c.lat, "lon": c.lon}
		}
		locations = append(locations, loc)
	}

	return map[string]any{
		"protocolSection": map[string]any{
			"identificationModule": map[string]any{
				"nctId":      id,
				"briefTitle": fmt.Sprintf("Synthetic Study %s", id),
			},
			"statusModule":               map[string]any{"overallStatus": "COMPLETED"},
			"sponsorCollaboratorsModule": map[string]any{"leadSponsor": map[string]any{"name": "Synthetic Sponsor"}},
			"armsInterventionsModule":    map[string]any{"armGroups": armGroups},
			"outcomesModule": map[string]any{
				"primaryOutcomes": []any{map[string]any{"measure": "Change From Baseline", "timeFrame": "Week 12"}},
			},
			"contactsLocationsModule": map[string]any{"locations": locations},
		},
		"resultsSection": map[string]any{
			"participantFlowModule": map[string]any{
				"groups": flowGroups,
				"periods": []any{map[string]any{
					"title": "Overall Study",
					"milestones": []any{
						map[string]any{"type": "STARTED", "achievements": started},
						map[string]any{"type": "COMPLETED", "achievements": completed},
					},
				}},
			},
			"adverseEventsModule": map[string]any{
				"eventGroups":   eventGroups,
				"seriousEvents": []any{},
				"otherEvents":   otherEvents,
			},
		},
	}
}

// GenerateJSON returns the generated document encoded as JSON
func (g *StudyGenerator) GenerateJSON(id string) ([]byte, error) {
	data, err := json.MarshalIndent(g.Generate(id), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode synthetic study %s: %w", id, err)
	}
	return data, nil
}
