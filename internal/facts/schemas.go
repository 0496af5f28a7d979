// Package facts extracts structured, typed fact records from natural-language
// answers about onboarding topics.
package facts

// FactSchema is implemented by every extractable fact record. Instructions
// documents the JSON shape the completion service must emit for the schema.
type FactSchema interface {
	Instructions() string
}

// HealthInsuranceFacts are discrete facts about the health insurance plan.
// Unknown facts stay nil.
type HealthInsuranceFacts struct {
	MonthlyPremium    *float64 `json:"monthlyPremium"`
	DeductibleAmount  *float64 `json:"deductibleAmount"`
	CoverageStartDays *int     `json:"coverageStartDays"`
	HasDentalCoverage *bool    `json:"hasDentalCoverage"`
	HasVisionCoverage *bool    `json:"hasVisionCoverage"`
	PlanNames         []string `json:"planNames"`
}

func (HealthInsuranceFacts) Instructions() string {
	return `{"monthlyPremium": number or null, "deductibleAmount": number or null, ` +
		`"coverageStartDays": number or null, "hasDentalCoverage": boolean or null, ` +
		`"hasVisionCoverage": boolean or null, "planNames": array of strings or null}`
}

// RetirementFacts are discrete facts about the retirement plan.
type RetirementFacts struct {
	MatchPercentage   *float64 `json:"matchPercentage"`
	VestingYears      *int     `json:"vestingYears"`
	HasRothOption     *bool    `json:"hasRothOption"`
	ProviderName      *string  `json:"providerName"`
	EligibilityMonths *int     `json:"eligibilityMonths"`
}

func (RetirementFacts) Instructions() string {
	return `{"matchPercentage": number or null, "vestingYears": number or null, ` +
		`"hasRothOption": boolean or null, "providerName": string or null, ` +
		`"eligibilityMonths": number or null}`
}

// VacationFacts are discrete facts about vacation policy.
type VacationFacts struct {
	AnnualDays          *int     `json:"annualDays"`
	AccrualRatePerMonth *float64 `json:"accrualRatePerMonth"`
	MaxCarryoverDays    *int     `json:"maxCarryoverDays"`
	RequiresApproval    *bool    `json:"requiresApproval"`
}

func (VacationFacts) Instructions() string {
	return `{"annualDays": number or null, "accrualRatePerMonth": number or null, ` +
		`"maxCarryoverDays": number or null, "requiresApproval": boolean or null}`
}

// ParentalLeaveFacts are discrete facts about parental leave.
type ParentalLeaveFacts struct {
	PaidWeeks         *int  `json:"paidWeeks"`
	UnpaidWeeks       *int  `json:"unpaidWeeks"`
	AppliesToAdoption *bool `json:"appliesToAdoption"`
	NoticeWeeks       *int  `json:"noticeWeeks"`
}

func (ParentalLeaveFacts) Instructions() string {
	return `{"paidWeeks": number or null, "unpaidWeeks": number or null, ` +
		`"appliesToAdoption": boolean or null, "noticeWeeks": number or null}`
}

// LifeInsuranceFacts are discrete facts about life insurance coverage.
type LifeInsuranceFacts struct {
	CoverageMultiplier    *float64 `json:"coverageMultiplier"`
	MaxCoverageAmount     *float64 `json:"maxCoverageAmount"`
	IsEmployerPaid        *bool    `json:"isEmployerPaid"`
	SupplementalAvailable *bool    `json:"supplementalAvailable"`
}

func (LifeInsuranceFacts) Instructions() string {
	return `{"coverageMultiplier": number or null, "maxCoverageAmount": number or null, ` +
		`"isEmployerPaid": boolean or null, "supplementalAvailable": boolean or null}`
}

// FSAFacts are discrete facts about the flexible spending account.
type FSAFacts struct {
	AnnualContributionLimit *float64 `json:"annualContributionLimit"`
	HasGracePeriod          *bool    `json:"hasGracePeriod"`
	RolloverAmount          *float64 `json:"rolloverAmount"`
	EligibleExpenses        []string `json:"eligibleExpenses"`
}

func (FSAFacts) Instructions() string {
	return `{"annualContributionLimit": number or null, "hasGracePeriod": boolean or null, ` +
		`"rolloverAmount": number or null, "eligibleExpenses": array of strings or null}`
}
