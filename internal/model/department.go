package model

// DepartmentLoad answers a single department's capacity query.
type DepartmentLoad struct {
	Department      string  `json:"department"`
	MaxCapacity     int     `json:"max_capacity"`
	CurrentPatients int     `json:"current_patients"`
	LoadPercentage  float64 `json:"load_percentage"`
	Overloaded      bool    `json:"overloaded"`
}

// DepartmentStatus is the outward department list entry.
type DepartmentStatus = DepartmentLoad

// DashboardStats is the aggregate overview exposed to the UI layer.
type DashboardStats struct {
	TotalPatientsToday     int            `json:"total_patients_today"`
	HighRiskCount          int            `json:"high_risk_count"`
	MediumRiskCount        int            `json:"medium_risk_count"`
	LowRiskCount           int            `json:"low_risk_count"`
	RiskDistribution       map[string]int `json:"risk_distribution"`
	DepartmentDistribution map[string]int `json:"department_distribution"`
}
