package validator

var (
	sourceRequiredFields = []string{
		"source_id",
		"name",
		"url",
		"layer",
		"data_points",
		"frequency",
		"format",
		"credibility_tier",
		"api_available",
		"scrape_required",
		"known_bias",
		"active",
		"puller_module",
		"last_verified",
	}

	analystRequiredFields = []string{
		"analyst_id",
		"name",
		"specialty",
		"background",
		"methodology_visibility",
		"known_bias",
		"platforms",
		"affiliation",
		"accuracy_log",
	}

	benchmarkRootFields    = []string{"benchmark_date", "primary_benchmark", "competitors", "design_differentiation"}
	benchmarkPrimaryFields = []string{"name", "type", "cnv_number", "byma_member", "urls", "strengths", "weaknesses", "data_conventions"}

	// Allowed values, sorted.
	sourceFrequencies   = []string{"daily", "irregular", "monthly", "realtime", "weekly"}
	sourceTiers         = []string{"T1", "T2", "T3", "T4", "T5"}
	analystVisibilities = []string{"extreme", "high", "low", "medium"}
)
