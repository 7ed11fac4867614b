package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Skill dimensions. Order is the index into every SkillVector.
var SkillNames = [NumSkills]string{
	"programming",
	"data_analysis",
	"machine_learning",
	"ai_collaboration",
	"digital_literacy",
	"communication",
	"leadership",
	"creativity",
	"critical_thinking",
	"problem_solving",
	"customer_service",
	"manual_dexterity",
	"physical_stamina",
	"technical_maintenance",
	"financial_analysis",
	"writing",
	"project_management",
	"sales",
	"healthcare_practice",
	"teaching",
}

const NumSkills = 20

// SkillAI is the personal AI-augmentation skill.
const SkillAI = 3

type SkillVector [NumSkills]float64

var skillIndex = func() map[string]int {
	m := make(map[string]int, NumSkills)
	for i, n := range SkillNames {
		m[n] = i
	}
	return m
}()

func SkillIndex(name string) (int, bool) {
	i, ok := skillIndex[name]
	return i, ok
}

// Policies tracked by every worker's support vector.
var PolicyNames = [NumPolicies]string{
	"ubi",
	"retraining",
	"wage_subsidy",
	"ai_regulation",
	"robot_tax",
	"job_guarantee",
	"reduced_workweek",
	"education_funding",
	"minimum_wage_increase",
}

const NumPolicies = 9

const (
	PolicyUBI = iota
	PolicyRetraining
	PolicyWageSubsidy
	PolicyAIRegulation
	PolicyRobotTax
	PolicyJobGuarantee
	PolicyReducedWorkweek
	PolicyEducationFunding
	PolicyMinimumWage
)

type PolicyVector [NumPolicies]float64

func PolicyIndex(name string) (int, bool) {
	for i, n := range PolicyNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

type Education int

const (
	HighSchool Education = iota
	Associate
	Bachelor
	Master
	Doctorate
)

var educationNames = [...]string{"high_school", "associate", "bachelor", "master", "doctorate"}

func (e Education) String() string {
	if e < 0 || int(e) >= len(educationNames) {
		return fmt.Sprintf("education(%d)", int(e))
	}
	return educationNames[e]
}

func (e Education) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *Education) UnmarshalText(b []byte) error {
	for i, n := range educationNames {
		if n == string(b) {
			*e = Education(i)
			return nil
		}
	}
	return fmt.Errorf("unknown education level %q", string(b))
}

// EducationShares is the population distribution of education levels.
var EducationShares = []float64{0.38, 0.12, 0.32, 0.14, 0.04}

var EducationWageMult = [...]float64{0.85, 0.95, 1.1, 1.25, 1.4}

const (
	TaskRoutineCognitive = iota
	TaskRoutineManual
	TaskNonRoutineCognitive
	TaskNonRoutineManual
	TaskCreative
	TaskInterpersonal
	NumTaskCategories
)

var TaskCategoryNames = [NumTaskCategories]string{
	"routine_cognitive",
	"routine_manual",
	"non_routine_cognitive",
	"non_routine_manual",
	"creative",
	"interpersonal",
}

// TaskSensitivity scales the frontier level into each category's capability
// rate: routine cognition is automated first, interpersonal work last.
var TaskSensitivity = [NumTaskCategories]float64{1.0, 0.75, 0.6, 0.35, 0.45, 0.2}

type TaskWeights [NumTaskCategories]float64

type Industry struct {
	ID                  string  `json:"id"`
	WageMultiplier      float64 `json:"wage_multiplier"`
	AutomationPotential float64 `json:"automation_potential"`
	AIAffinity          float64 `json:"ai_affinity"`
}

type Occupation struct {
	ID             string             `json:"id"`
	Industry       string             `json:"industry"`
	BaseWage       float64            `json:"base_wage"`
	Education      Education          `json:"education"`
	RequiredSkills map[string]float64 `json:"required_skills"`
	Tasks          TaskWeights        `json:"tasks"`
}

type RegionTemplate struct {
	Name           string             `json:"name"`
	Kind           string             `json:"kind"`
	Population     int                `json:"population"`
	CostOfLiving   float64            `json:"cost_of_living"`
	WageMultiplier float64            `json:"wage_multiplier"`
	IndustryMix    map[string]float64 `json:"industry_mix"`
}

type Catalog struct {
	Industries  []Industry
	Occupations []Occupation
	Regions     []RegionTemplate

	industryIdx   map[string]int
	occupationIdx map[string]int
	byIndustry    map[string][]int
	Digest        string
}

func (c *Catalog) Industry(id string) (Industry, bool) {
	i, ok := c.industryIdx[id]
	if !ok {
		return Industry{}, false
	}
	return c.Industries[i], true
}

func (c *Catalog) Occupation(id string) (Occupation, bool) {
	i, ok := c.occupationIdx[id]
	if !ok {
		return Occupation{}, false
	}
	return c.Occupations[i], true
}

// OccupationsIn returns the occupations belonging to an industry.
func (c *Catalog) OccupationsIn(industry string) []Occupation {
	idx := c.byIndustry[industry]
	out := make([]Occupation, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.Occupations[i])
	}
	return out
}

func (c *Catalog) IndustryIDs() []string {
	out := make([]string, 0, len(c.Industries))
	for _, ind := range c.Industries {
		out = append(out, ind.ID)
	}
	return out
}

// Build indexes the tables and computes the catalog digest.
func Build(industries []Industry, occupations []Occupation, regions []RegionTemplate) (*Catalog, error) {
	c := &Catalog{
		Industries:    industries,
		Occupations:   occupations,
		Regions:       regions,
		industryIdx:   map[string]int{},
		occupationIdx: map[string]int{},
		byIndustry:    map[string][]int{},
	}
	for i, ind := range industries {
		if _, dup := c.industryIdx[ind.ID]; dup {
			return nil, fmt.Errorf("duplicate industry %q", ind.ID)
		}
		c.industryIdx[ind.ID] = i
	}
	for i, occ := range occupations {
		if _, dup := c.occupationIdx[occ.ID]; dup {
			return nil, fmt.Errorf("duplicate occupation %q", occ.ID)
		}
		if _, ok := c.industryIdx[occ.Industry]; !ok {
			return nil, fmt.Errorf("occupation %q: unknown industry %q", occ.ID, occ.Industry)
		}
		for name := range occ.RequiredSkills {
			if _, ok := SkillIndex(name); !ok {
				return nil, fmt.Errorf("occupation %q: unknown skill %q", occ.ID, name)
			}
		}
		c.occupationIdx[occ.ID] = i
		c.byIndustry[occ.Industry] = append(c.byIndustry[occ.Industry], i)
	}
	for _, ind := range industries {
		if len(c.byIndustry[ind.ID]) == 0 {
			return nil, fmt.Errorf("industry %q has no occupations", ind.ID)
		}
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("no region templates")
	}
	d, err := digest(c)
	if err != nil {
		return nil, err
	}
	c.Digest = d
	return c, nil
}

func digest(c *Catalog) (string, error) {
	occ := append([]Occupation(nil), c.Occupations...)
	sort.Slice(occ, func(i, j int) bool { return occ[i].ID < occ[j].ID })
	b, err := json.Marshal(struct {
		Skills      [NumSkills]string   `json:"skills"`
		Policies    [NumPolicies]string `json:"policies"`
		Industries  []Industry          `json:"industries"`
		Occupations []Occupation        `json:"occupations"`
		Regions     []RegionTemplate    `json:"regions"`
	}{SkillNames, PolicyNames, c.Industries, occ, c.Regions})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
