package catalogs

// Illustrative tables; wages are annual and in national currency units.

var defaultIndustries = []Industry{
	{ID: "technology", WageMultiplier: 1.35, AutomationPotential: 0.55, AIAffinity: 0.9},
	{ID: "finance", WageMultiplier: 1.25, AutomationPotential: 0.65, AIAffinity: 0.75},
	{ID: "healthcare", WageMultiplier: 1.1, AutomationPotential: 0.3, AIAffinity: 0.45},
	{ID: "manufacturing", WageMultiplier: 0.95, AutomationPotential: 0.7, AIAffinity: 0.5},
	{ID: "retail", WageMultiplier: 0.75, AutomationPotential: 0.6, AIAffinity: 0.4},
	{ID: "education", WageMultiplier: 0.9, AutomationPotential: 0.25, AIAffinity: 0.35},
	{ID: "transportation", WageMultiplier: 0.9, AutomationPotential: 0.65, AIAffinity: 0.45},
	{ID: "professional_services", WageMultiplier: 1.15, AutomationPotential: 0.5, AIAffinity: 0.65},
}

var defaultOccupations = []Occupation{
	{
		ID: "software_developer", Industry: "technology", BaseWage: 98000, Education: Bachelor,
		RequiredSkills: map[string]float64{"programming": 0.7, "problem_solving": 0.6, "ai_collaboration": 0.4},
		Tasks:          TaskWeights{0.2, 0, 0.5, 0, 0.25, 0.05},
	},
	{
		ID: "it_support", Industry: "technology", BaseWage: 52000, Education: Associate,
		RequiredSkills: map[string]float64{"technical_maintenance": 0.6, "customer_service": 0.5, "digital_literacy": 0.6},
		Tasks:          TaskWeights{0.5, 0.1, 0.2, 0.05, 0, 0.15},
	},
	{
		ID: "financial_analyst", Industry: "finance", BaseWage: 82000, Education: Bachelor,
		RequiredSkills: map[string]float64{"financial_analysis": 0.7, "data_analysis": 0.6, "critical_thinking": 0.5},
		Tasks:          TaskWeights{0.45, 0, 0.4, 0, 0.05, 0.1},
	},
	{
		ID: "bank_teller", Industry: "finance", BaseWage: 36000, Education: HighSchool,
		RequiredSkills: map[string]float64{"customer_service": 0.6, "digital_literacy": 0.4},
		Tasks:          TaskWeights{0.6, 0.05, 0.05, 0, 0, 0.3},
	},
	{
		ID: "registered_nurse", Industry: "healthcare", BaseWage: 77000, Education: Bachelor,
		RequiredSkills: map[string]float64{"healthcare_practice": 0.75, "communication": 0.6, "physical_stamina": 0.5},
		Tasks:          TaskWeights{0.1, 0.1, 0.25, 0.3, 0, 0.25},
	},
	{
		ID: "medical_records_clerk", Industry: "healthcare", BaseWage: 42000, Education: Associate,
		RequiredSkills: map[string]float64{"digital_literacy": 0.6, "writing": 0.4},
		Tasks:          TaskWeights{0.7, 0.05, 0.1, 0, 0, 0.15},
	},
	{
		ID: "assembly_worker", Industry: "manufacturing", BaseWage: 38000, Education: HighSchool,
		RequiredSkills: map[string]float64{"manual_dexterity": 0.6, "physical_stamina": 0.5},
		Tasks:          TaskWeights{0.1, 0.7, 0.05, 0.15, 0, 0},
	},
	{
		ID: "industrial_engineer", Industry: "manufacturing", BaseWage: 88000, Education: Bachelor,
		RequiredSkills: map[string]float64{"problem_solving": 0.7, "project_management": 0.5, "technical_maintenance": 0.5},
		Tasks:          TaskWeights{0.2, 0.05, 0.5, 0.05, 0.15, 0.05},
	},
	{
		ID: "cashier", Industry: "retail", BaseWage: 28000, Education: HighSchool,
		RequiredSkills: map[string]float64{"customer_service": 0.5},
		Tasks:          TaskWeights{0.55, 0.2, 0, 0.05, 0, 0.2},
	},
	{
		ID: "store_manager", Industry: "retail", BaseWage: 55000, Education: Associate,
		RequiredSkills: map[string]float64{"leadership": 0.6, "sales": 0.5, "customer_service": 0.5},
		Tasks:          TaskWeights{0.2, 0.05, 0.3, 0.05, 0.05, 0.35},
	},
	{
		ID: "teacher", Industry: "education", BaseWage: 60000, Education: Bachelor,
		RequiredSkills: map[string]float64{"teaching": 0.7, "communication": 0.6},
		Tasks:          TaskWeights{0.1, 0, 0.3, 0.05, 0.15, 0.4},
	},
	{
		ID: "teaching_assistant", Industry: "education", BaseWage: 31000, Education: Associate,
		RequiredSkills: map[string]float64{"teaching": 0.4, "communication": 0.5},
		Tasks:          TaskWeights{0.35, 0.05, 0.15, 0.05, 0.05, 0.35},
	},
	{
		ID: "truck_driver", Industry: "transportation", BaseWage: 48000, Education: HighSchool,
		RequiredSkills: map[string]float64{"physical_stamina": 0.5, "manual_dexterity": 0.4},
		Tasks:          TaskWeights{0.15, 0.55, 0.05, 0.2, 0, 0.05},
	},
	{
		ID: "logistics_coordinator", Industry: "transportation", BaseWage: 50000, Education: Associate,
		RequiredSkills: map[string]float64{"project_management": 0.5, "data_analysis": 0.4, "communication": 0.4},
		Tasks:          TaskWeights{0.5, 0.05, 0.25, 0, 0, 0.2},
	},
	{
		ID: "management_consultant", Industry: "professional_services", BaseWage: 92000, Education: Master,
		RequiredSkills: map[string]float64{"critical_thinking": 0.7, "communication": 0.6, "leadership": 0.5},
		Tasks:          TaskWeights{0.1, 0, 0.45, 0, 0.15, 0.3},
	},
	{
		ID: "paralegal", Industry: "professional_services", BaseWage: 52000, Education: Associate,
		RequiredSkills: map[string]float64{"writing": 0.6, "critical_thinking": 0.4},
		Tasks:          TaskWeights{0.6, 0, 0.25, 0, 0.05, 0.1},
	},
}

var defaultRegions = []RegionTemplate{
	{
		Name: "Metro North", Kind: "urban", Population: 4_200_000, CostOfLiving: 1.35, WageMultiplier: 1.25,
		IndustryMix: map[string]float64{"technology": 0.22, "finance": 0.18, "healthcare": 0.14, "professional_services": 0.16, "retail": 0.12, "education": 0.08, "transportation": 0.05, "manufacturing": 0.05},
	},
	{
		Name: "Lakeside", Kind: "urban", Population: 2_600_000, CostOfLiving: 1.15, WageMultiplier: 1.1,
		IndustryMix: map[string]float64{"technology": 0.12, "finance": 0.14, "healthcare": 0.16, "professional_services": 0.12, "retail": 0.14, "education": 0.1, "transportation": 0.1, "manufacturing": 0.12},
	},
	{
		Name: "River Valley", Kind: "suburban", Population: 1_400_000, CostOfLiving: 1.0, WageMultiplier: 1.0,
		IndustryMix: map[string]float64{"technology": 0.06, "finance": 0.08, "healthcare": 0.18, "professional_services": 0.08, "retail": 0.18, "education": 0.12, "transportation": 0.12, "manufacturing": 0.18},
	},
	{
		Name: "Iron Belt", Kind: "suburban", Population: 1_100_000, CostOfLiving: 0.9, WageMultiplier: 0.92,
		IndustryMix: map[string]float64{"technology": 0.03, "finance": 0.05, "healthcare": 0.15, "professional_services": 0.05, "retail": 0.15, "education": 0.09, "transportation": 0.16, "manufacturing": 0.32},
	},
	{
		Name: "High Plains", Kind: "rural", Population: 600_000, CostOfLiving: 0.8, WageMultiplier: 0.85,
		IndustryMix: map[string]float64{"technology": 0.02, "finance": 0.04, "healthcare": 0.2, "professional_services": 0.04, "retail": 0.2, "education": 0.14, "transportation": 0.18, "manufacturing": 0.18},
	},
	{
		Name: "Coastal South", Kind: "urban", Population: 2_000_000, CostOfLiving: 1.1, WageMultiplier: 1.05,
		IndustryMix: map[string]float64{"technology": 0.1, "finance": 0.1, "healthcare": 0.17, "professional_services": 0.1, "retail": 0.17, "education": 0.1, "transportation": 0.12, "manufacturing": 0.14},
	},
	{
		Name: "Desert Corridor", Kind: "suburban", Population: 900_000, CostOfLiving: 0.95, WageMultiplier: 0.95,
		IndustryMix: map[string]float64{"technology": 0.08, "finance": 0.06, "healthcare": 0.16, "professional_services": 0.08, "retail": 0.2, "education": 0.1, "transportation": 0.16, "manufacturing": 0.16},
	},
	{
		Name: "Pine Hills", Kind: "rural", Population: 450_000, CostOfLiving: 0.78, WageMultiplier: 0.82,
		IndustryMix: map[string]float64{"technology": 0.02, "finance": 0.03, "healthcare": 0.22, "professional_services": 0.03, "retail": 0.22, "education": 0.16, "transportation": 0.14, "manufacturing": 0.18},
	},
	{
		Name: "Capital District", Kind: "urban", Population: 1_800_000, CostOfLiving: 1.25, WageMultiplier: 1.2,
		IndustryMix: map[string]float64{"technology": 0.14, "finance": 0.12, "healthcare": 0.14, "professional_services": 0.24, "retail": 0.1, "education": 0.14, "transportation": 0.06, "manufacturing": 0.06},
	},
	{
		Name: "Harbor Flats", Kind: "suburban", Population: 750_000, CostOfLiving: 0.92, WageMultiplier: 0.94,
		IndustryMix: map[string]float64{"technology": 0.04, "finance": 0.05, "healthcare": 0.15, "professional_services": 0.06, "retail": 0.16, "education": 0.1, "transportation": 0.24, "manufacturing": 0.2},
	},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Build(defaultIndustries, defaultOccupations, defaultRegions)
	if err != nil {
		panic("catalogs: built-in tables are inconsistent: " + err.Error())
	}
	return c
}
