package analytics

// ModelMetrics is one precomputed evaluation of a credit risk classifier.
// Precision, Recall, F1 and Support read "class 0 / class 1". SMOTE is empty
// for models trained without oversampling.
type ModelMetrics struct {
	Split     string `json:"split"`
	SMOTE     string `json:"smote,omitempty"`
	Precision string `json:"precision"`
	Recall    string `json:"recall"`
	F1        string `json:"f1"`
	Support   string `json:"support"`
	AUC       string `json:"auc"`
}

type ModelReport struct {
	Model       string         `json:"model"`
	Description string         `json:"description"`
	Metrics     []ModelMetrics `json:"metrics"`
}

// ModelReports returns the static evaluation tables, in display order.
// A fresh copy is returned on every call.
func ModelReports() []ModelReport {
	return []ModelReport{
		{
			Model:       "Random Forest",
			Description: "Ensemble of Decision Trees",
			Metrics: []ModelMetrics{
				{Split: "80-20", Precision: "0.77 / 0.37", Recall: "0.88 / 0.22", F1: "0.82 / 0.27", Support: "233 / 79", AUC: "0.5658"},
				{Split: "75-25", Precision: "0.79 / 0.48", Recall: "0.90 / 0.27", F1: "0.84 / 0.34", Support: "291 / 98", AUC: "0.5758"},
				{Split: "70-30", Precision: "0.77 / 0.45", Recall: "0.91 / 0.21", F1: "0.84 / 0.29", Support: "349 / 118", AUC: "0.5900"},
			},
		},
		{
			Model:       "Logistic Regression",
			Description: "Probability-Based Classification",
			Metrics: []ModelMetrics{
				{Split: "80-20", SMOTE: "0.6500", Precision: "0.98 / 0.22", Recall: "0.62 / 0.90", F1: "0.76 / 0.35", Support: "179 / 21", AUC: "0.81"},
				{Split: "75-25", SMOTE: "0.6280", Precision: "0.99 / 0.21", Recall: "0.59 / 0.96", F1: "0.74 / 0.35", Support: "224 / 26", AUC: "0.79"},
				{Split: "70-30", SMOTE: "0.5933", Precision: "0.99 / 0.20", Recall: "0.55 / 0.97", F1: "0.71 / 0.33", Support: "269 / 31", AUC: "0.75"},
			},
		},
		{
			Model:       "XGBoost",
			Description: "Gradient Boosted Trees",
			Metrics: []ModelMetrics{
				{Split: "80-20", Precision: "0.80 / 0.33", Recall: "0.69 / 0.47", F1: "0.74 / 0.39", Support: "236 / 76", AUC: "0.6217"},
				{Split: "75-25", Precision: "0.81 / 0.33", Recall: "0.65 / 0.53", F1: "0.72 / 0.40", Support: "295 / 94", AUC: "0.6417"},
				{Split: "70-30", Precision: "0.82 / 0.32", Recall: "0.61 / 0.58", F1: "0.70 / 0.42", Support: "354 / 113", AUC: "0.6240"},
			},
		},
	}
}
